package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sant0-9/surasura/internal/server"
	"github.com/sant0-9/surasura/internal/source"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web API for uploads and revisions",
		Long: `Serve exposes the analysis over HTTP:

  POST /api/runs                      multipart "file" (PDF) or "url"
  GET  /api/runs/:id                  original and revised sections
  POST /api/runs/:id/revisions        {"comment": "..."}
  GET  /api/runs/:id/report.pdf       PDF report
  GET  /api/runs/:id/report.md        Markdown report
  GET  /api/stages                    stages of the template set
  GET  /healthz

Runs are kept in memory for server.run_ttl_minutes and are lost on restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger, sync, err := newLogger(cmd, cfg, true)
			if err != nil {
				return err
			}
			defer sync()

			p, err := newPipeline(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s (template set %s)\n", cfg.Server.Addr, p.Registry().Set())
			return server.New(cfg, p, source.NewAuto(cfg.Source), logger).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default server.addr)")
	return cmd
}

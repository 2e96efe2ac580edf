// Package commands holds the surasura CLI.
package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sant0-9/surasura/internal/config"
	"github.com/sant0-9/surasura/internal/errors"
	"github.com/sant0-9/surasura/internal/llm"
	"github.com/sant0-9/surasura/internal/logging"
	"github.com/sant0-9/surasura/internal/pipeline"
	"github.com/sant0-9/surasura/internal/prompts"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "surasura",
		Short: "Find the friction (sludge) in a document",
		Long: `surasura reads a PDF or web page and runs a fixed chain of model prompts
over it: who the document is for, what it wants them to do, the steps they
go through, where those steps create friction, five ranked improvements and
ideas that cut across the process.

A reviewer comment re-runs the analysis stages with that comment in mind.

Examples:
  surasura analyze flyer.pdf                      # interactive screen
  surasura analyze https://city.example.jp/apply --plain --format md
  surasura analyze flyer.pdf --comment "most readers are over 70"
  surasura serve --addr :8080                     # web upload API
  surasura stages --template-set east             # list the stages of a set`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("provider", "", "Model provider (gemini, openai, anthropic, ollama)")
	root.PersistentFlags().String("model", "", "Model name (defaults to the provider's default)")
	root.PersistentFlags().String("template-set", "", "Stage template set (sludge, east or a set in templates.dir)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Also write log lines to stderr")

	root.AddCommand(
		newAnalyzeCmd(),
		newServeCmd(),
		newStagesCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the config file and environment, then applies the
// persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("provider"); v != "" {
		cfg.UseProvider(v)
	}
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Model = v
	}
	if v, _ := cmd.Flags().GetString("template-set"); v != "" {
		cfg.Templates.Set = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config, console bool) (*zap.SugaredLogger, func(), error) {
	if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
		console = false
	}
	l, err := logging.New(cfg.Log, console)
	if err != nil {
		return nil, nil, err
	}
	return l.Sugar(), func() { _ = l.Sync() }, nil
}

// newPipeline checks the credential first: a missing key stops the command
// before any document is read.
func newPipeline(cfg *config.Config, logger *zap.SugaredLogger) (*pipeline.Pipeline, error) {
	completer, err := llm.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	reg, err := prompts.Load(cfg.Templates.Set, cfg.Templates.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "load templates")
	}
	logger.Infow("Pipeline ready",
		"provider", completer.Provider(),
		"model", completer.Model(),
		"template_set", reg.Set(),
		"stages", len(reg.Stages()),
	)
	return pipeline.New(reg, completer, cfg.Templates.Language, logger), nil
}

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sant0-9/surasura/internal/config"
	"github.com/sant0-9/surasura/internal/errors"
	"github.com/sant0-9/surasura/internal/pipeline"
	"github.com/sant0-9/surasura/internal/render"
	"github.com/sant0-9/surasura/internal/source"
	"github.com/sant0-9/surasura/internal/tui"
)

type analyzeOptions struct {
	comment  string
	outDir   string
	formats  []string
	plain    bool
	language string
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <file.pdf|url>",
		Short: "Analyze a PDF or web page for sludge",
		Long: `Analyze runs every stage of the template set over the document.

On a terminal it opens the interactive screen, where you can add a reviewer
comment to revise the analysis and save reports. With --plain (or when
output is not a terminal) progress and sections are printed instead, and
reports are written when --out or --format is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.comment, "comment", "", "Reviewer comment; revises the analysis once the first pass is done")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "Directory for reports (default report.output_dir)")
	cmd.Flags().StringSliceVar(&opts.formats, "format", []string{"pdf", "md"}, "Report formats to write: pdf, md")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Print progress and results instead of opening the interactive screen")
	cmd.Flags().StringVar(&opts.language, "language", "", "Language of the answers (default templates.language)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, ref string, opts *analyzeOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if opts.language != "" {
		cfg.Templates.Language = opts.language
	}
	if opts.outDir == "" {
		opts.outDir = cfg.Report.OutputDir
	}
	for _, f := range opts.formats {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "pdf" && f != "md" {
			return errors.Mark(errors.Newf("unknown format %q (use pdf or md)", f), errors.ErrInvalidRequest)
		}
	}

	out := cmd.OutOrStdout()
	plain := opts.plain || !isTerminal(out)

	logger, sync, err := newLogger(cmd, cfg, plain)
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

	doc, err := source.NewAuto(cfg.Source).Extract(ctx, ref)
	if err != nil {
		return err
	}
	logger.Infow("Document loaded", "source", doc.Name, "kind", doc.Kind, "chars", doc.Metadata.CharCount)

	sess := pipeline.NewSession(p)
	if plain {
		writeReports := cmd.Flags().Changed("out") || cmd.Flags().Changed("format")
		return runPlain(ctx, out, cfg, sess, doc, opts, writeReports, logger)
	}

	app := tui.NewApp(tui.Options{
		Config:   cfg,
		Session:  sess,
		Document: doc,
		Comment:  opts.comment,
		OutDir:   opts.outDir,
		Logger:   logger,
	})
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	app.SetProgram(program)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "interactive screen")
	}
	return nil
}

func runPlain(ctx context.Context, w io.Writer, cfg *config.Config, sess *pipeline.Session, doc *source.Document,
	opts *analyzeOptions, writeReports bool, logger *zap.SugaredLogger) error {
	width := terminalWidth(w)
	heading := lipgloss.NewStyle().Bold(true)

	sess.Pipeline().SetProgressCallback(func(pr pipeline.Progress) {
		if !pr.Done {
			return
		}
		status := "done"
		if pr.Absent {
			status = "unavailable: " + pr.Message
		}
		fmt.Fprintf(w, "[%d/%d] %s ... %s\n", pr.StageIndex+1, pr.TotalStages, pr.Title, status)
	})

	fmt.Fprintln(w, heading.Render("Analyzing "+doc.Name)+"  "+doc.Summary())
	original, err := sess.Analyze(ctx, doc)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, render.Terminal(render.Sections(original), width))

	if strings.TrimSpace(opts.comment) != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, heading.Render("Revising with comment: "+opts.comment))
		rev, err := sess.Revise(ctx, opts.comment)
		if err != nil {
			return err
		}
		fmt.Fprintln(w)
		fmt.Fprint(w, render.Terminal(render.Sections(rev), width))
	}

	if failed := len(original.Failed()); failed > 0 {
		fmt.Fprintf(w, "\n%d of %d stages were unavailable; see the log for details.\n", failed, len(original.Results))
	}
	if !writeReports {
		return nil
	}

	report := render.NewReport(sess.Original(), sess.Revision(), render.Meta{
		Title:  cfg.Report.Title,
		Footer: cfg.Report.Footer,
	})
	fmt.Fprintln(w)
	for _, format := range opts.formats {
		path, err := render.Save(opts.outDir, report, strings.TrimSpace(format), render.PDFOptions{FontPath: cfg.Report.FontPath, Logger: logger})
		if err != nil {
			return err
		}
		logger.Infow("Report saved", "path", path)
		fmt.Fprintln(w, "Saved", path)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(f.Fd()); err == nil && width > 0 {
			return width
		}
	}
	return 100
}

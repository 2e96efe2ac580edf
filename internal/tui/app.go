// Package tui is the interactive screen for one document: stage progress
// while the chain runs, then the sections with a comment box that triggers
// a revision and keys to save reports.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sant0-9/surasura/internal/config"
	"github.com/sant0-9/surasura/internal/logging"
	"github.com/sant0-9/surasura/internal/pipeline"
	"github.com/sant0-9/surasura/internal/render"
	"github.com/sant0-9/surasura/internal/source"
)

type view int

const (
	viewProcessing view = iota
	viewResult
	viewError
	viewHelp
	viewSettings
)

// Options configure an App.
type Options struct {
	Config   *config.Config
	Session  *pipeline.Session
	Document *source.Document
	// Comment, when set, is submitted as soon as the first pass finishes.
	Comment string
	OutDir  string
	Logger  *zap.SugaredLogger
}

type App struct {
	width    int
	height   int
	view     view
	back     view
	state    *state
	program  *tea.Program
	ctx      context.Context
	cancel   context.CancelFunc
	outDir   string
	logger   *zap.SugaredLogger
	quitting bool
}

func NewApp(opts Options) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		view:   viewProcessing,
		state:  newState(opts.Config, opts.Session, opts.Document),
		ctx:    ctx,
		cancel: cancel,
		outDir: opts.OutDir,
		logger: logging.OrNop(opts.Logger),
	}
	if a.outDir == "" {
		a.outDir = opts.Config.Report.OutputDir
	}
	a.state.pendingComment = strings.TrimSpace(opts.Comment)
	a.state.resetStatus(false)
	opts.Session.Pipeline().SetProgressCallback(a.onProgress)
	return a
}

// SetProgram lets pipeline progress reach the running program.
func (a *App) SetProgram(p *tea.Program) {
	a.program = p
}

func (a *App) onProgress(p pipeline.Progress) {
	if a.program != nil {
		a.program.Send(progressMsg(p))
	}
}

type progressMsg pipeline.Progress
type analysisDoneMsg struct {
	run *pipeline.Run
	err error
}
type revisionDoneMsg struct {
	run *pipeline.Run
	err error
}
type savedMsg struct {
	path string
	err  error
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.WindowSize(), a.state.spinner.Tick, a.analyze())
}

func (a *App) analyze() tea.Cmd {
	sess, doc := a.state.session, a.state.document
	return func() tea.Msg {
		run, err := sess.Analyze(a.ctx, doc)
		return analysisDoneMsg{run: run, err: err}
	}
}

func (a *App) revise(comment string) tea.Cmd {
	a.state.revising = true
	a.state.resetStatus(true)
	a.view = viewProcessing
	sess := a.state.session
	return tea.Batch(a.state.spinner.Tick, func() tea.Msg {
		run, err := sess.Revise(a.ctx, comment)
		return revisionDoneMsg{run: run, err: err}
	})
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a, a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resizeViewport()
		a.refreshViewport(false)

	case spinner.TickMsg:
		if a.view == viewProcessing {
			var cmd tea.Cmd
			a.state.spinner, cmd = a.state.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case progressMsg:
		switch {
		case !msg.Done:
			a.state.status[msg.StageID] = stageRunning
		case msg.Absent:
			a.state.status[msg.StageID] = stageFailed
			a.state.lastError = msg.Message
		default:
			a.state.status[msg.StageID] = stageDone
		}

	case analysisDoneMsg:
		if msg.err != nil {
			a.state.err = msg.err
			a.view = viewError
			return a, nil
		}
		a.state.original = msg.run
		a.view = viewResult
		a.refreshViewport(true)
		if c := a.state.pendingComment; c != "" {
			a.state.pendingComment = ""
			return a, a.revise(c)
		}

	case revisionDoneMsg:
		a.state.revising = false
		a.view = viewResult
		if msg.err != nil {
			a.state.notice = "Revision failed: " + msg.err.Error()
			return a, nil
		}
		a.state.revision = msg.run
		a.state.showRevised = true
		a.state.notice = ""
		if n := len(msg.run.Failed()); n > 0 {
			a.state.notice = "Revision finished with failed stages; they show as unavailable"
		}
		a.refreshViewport(true)

	case savedMsg:
		if msg.err != nil {
			a.state.notice = "Save failed: " + msg.err.Error()
		} else {
			a.state.notice = "Saved " + msg.path
		}
	}

	if a.view == viewResult && a.state.commenting {
		var cmd tea.Cmd
		a.state.comment, cmd = a.state.comment.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if a.view == viewResult && a.state.commenting {
		return a.handleCommentKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		switch a.view {
		case viewHelp, viewSettings:
			a.view = a.back
			return nil
		case viewProcessing:
			// remaining stages finish absent once the context is cancelled
			a.cancel()
		}
		a.quitting = true
		return tea.Quit

	case key.Matches(msg, keys.Help) && a.view != viewHelp:
		a.back, a.view = a.view, viewHelp
		return nil

	case key.Matches(msg, keys.Settings) && a.view != viewSettings && a.view != viewProcessing:
		a.back, a.view = a.view, viewSettings
		return nil
	}

	if a.view != viewResult {
		return nil
	}

	switch {
	case key.Matches(msg, keys.Comment):
		a.state.commenting = true
		a.state.notice = ""
		a.state.comment.Focus()
		return textinput.Blink

	case key.Matches(msg, keys.Tab):
		if a.state.revision == nil {
			a.state.notice = "No revision yet: press c to add a comment"
			return nil
		}
		a.state.showRevised = !a.state.showRevised
		a.refreshViewport(true)
		return nil

	case key.Matches(msg, keys.SavePDF):
		return a.save("pdf")

	case key.Matches(msg, keys.SaveMD):
		return a.save("md")
	}

	var cmd tea.Cmd
	a.state.viewport, cmd = a.state.viewport.Update(msg)
	return cmd
}

func (a *App) handleCommentKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		a.state.commenting = false
		a.state.comment.Blur()
		return nil

	case key.Matches(msg, keys.Enter):
		comment := strings.TrimSpace(a.state.comment.Value())
		if comment == "" {
			a.state.notice = "Comment is empty"
			return nil
		}
		a.state.commenting = false
		a.state.comment.Blur()
		a.state.comment.Reset()
		return a.revise(comment)
	}

	var cmd tea.Cmd
	a.state.comment, cmd = a.state.comment.Update(msg)
	return cmd
}

func (a *App) report() *render.Report {
	return render.NewReport(a.state.original, a.state.revision, render.Meta{
		Title:  a.state.config.Report.Title,
		Footer: a.state.config.Report.Footer,
	})
}

func (a *App) save(format string) tea.Cmd {
	r := a.report()
	dir := a.outDir
	opts := render.PDFOptions{FontPath: a.state.config.Report.FontPath, Logger: a.logger}
	logger := a.logger
	return func() tea.Msg {
		path, err := render.Save(dir, r, format, opts)
		if err != nil {
			logger.Errorw("Save report failed", "format", format, "error", err)
		} else {
			logger.Infow("Report saved", "path", path)
		}
		return savedMsg{path: path, err: err}
	}
}

func (a *App) resizeViewport() {
	w := max(a.width-4, 20)
	h := max(a.height-headerLines-footerLines, 5)
	a.state.viewport.Width = w
	a.state.viewport.Height = h
	a.state.comment.Width = max(min(70, a.width-8), 10)
}

func (a *App) currentRun() *pipeline.Run {
	if a.state.showRevised && a.state.revision != nil {
		return a.state.revision
	}
	return a.state.original
}

func (a *App) refreshViewport(top bool) {
	run := a.currentRun()
	if run == nil {
		return
	}
	var b strings.Builder
	if run.IsRevision() {
		b.WriteString(styleSubtitle.Width(a.state.viewport.Width).Render("Comment: "+run.Comment) + "\n\n")
	}
	b.WriteString(render.Terminal(render.Sections(run), a.state.viewport.Width))
	a.state.viewport.SetContent(b.String())
	if top {
		a.state.viewport.GotoTop()
	}
}

func (a *App) View() string {
	if a.quitting {
		return ""
	}

	switch a.view {
	case viewProcessing:
		return a.renderProcessing()
	case viewResult:
		return a.renderResult()
	case viewError:
		return a.renderError()
	case viewHelp:
		return a.renderHelp()
	case viewSettings:
		return a.renderSettings()
	default:
		return a.renderProcessing()
	}
}

func (a *App) centerVertically(content string) string {
	lines := strings.Count(content, "\n") + 1
	padding := (a.height - lines) / 2
	if padding < 0 {
		padding = 0
	}
	return strings.Repeat("\n", padding) + content
}

package tui

import (
	"context"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sant0-9/surasura/internal/config"
	"github.com/sant0-9/surasura/internal/errors"
	"github.com/sant0-9/surasura/internal/pipeline"
	"github.com/sant0-9/surasura/internal/prompts"
	"github.com/sant0-9/surasura/internal/source"
)

type stubCompleter struct{}

func (stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "over 70") {
		return "| Point | Detail |\n|---|---|\n| print | too small for older readers |", nil
	}
	return "| Point | Detail |\n|---|---|\n| deadline | hidden on page two |", nil
}

func newTestApp(t *testing.T, comment string) (*App, *pipeline.Session) {
	t.Helper()
	cfg := config.DefaultConfig()
	reg, err := prompts.Load(prompts.DefaultSet, "")
	require.NoError(t, err)
	doc, err := source.New("notice.pdf", source.KindPDF, "Renew your parking permit before April.")
	require.NoError(t, err)

	sess := pipeline.NewSession(pipeline.New(reg, stubCompleter{}, "English", nil))
	a := NewApp(Options{Config: cfg, Session: sess, Document: doc, Comment: comment, OutDir: t.TempDir()})
	a.Update(tea.WindowSizeMsg{Width: 110, Height: 40})
	return a, sess
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func analyzed(t *testing.T, a *App, sess *pipeline.Session) tea.Cmd {
	t.Helper()
	run, err := sess.Analyze(context.Background(), a.state.document)
	require.NoError(t, err)
	_, cmd := a.Update(analysisDoneMsg{run: run})
	return cmd
}

func TestProcessingChecklist(t *testing.T) {
	a, _ := newTestApp(t, "")
	assert.Equal(t, viewProcessing, a.view)
	assert.Len(t, a.state.status, 6)

	a.Update(progressMsg{StageID: "target_audience", Title: "Target audience"})
	assert.Equal(t, stageRunning, a.state.status["target_audience"])
	a.Update(progressMsg{StageID: "target_audience", Done: true})
	a.Update(progressMsg{StageID: "target_action", Done: true, Absent: true, Message: "quota exhausted"})

	out := a.View()
	assert.Contains(t, out, "Analyzing")
	assert.Contains(t, out, "[x]")
	assert.Contains(t, out, "[!]")
	assert.Contains(t, out, "quota exhausted")
	assert.Contains(t, out, "2/6")
	assert.Contains(t, out, "notice.pdf")
}

func TestAnalysisShowsSections(t *testing.T) {
	a, sess := newTestApp(t, "")
	analyzed(t, a, sess)

	assert.Equal(t, viewResult, a.view)
	out := a.View()
	assert.Contains(t, out, "Original analysis")
	assert.Contains(t, out, "hidden on page two")
	assert.Contains(t, out, "[c] Comment")
	assert.NotContains(t, out, "[Tab]")
}

func TestAnalysisErrorView(t *testing.T) {
	a, _ := newTestApp(t, "")
	a.Update(analysisDoneMsg{err: errors.Wrap(errors.ErrEmptyDocument, "scan.pdf")})

	assert.Equal(t, viewError, a.view)
	out := a.View()
	assert.Contains(t, out, "Something went wrong")
	assert.Contains(t, out, "no extractable text")
	assert.Contains(t, out, "OCR")
}

func TestCommentTriggersRevision(t *testing.T) {
	a, sess := newTestApp(t, "")
	analyzed(t, a, sess)

	a.Update(keyRunes("c"))
	require.True(t, a.state.commenting)

	// an empty comment is refused without leaving the input
	a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Comment is empty", a.state.notice)
	assert.Equal(t, viewResult, a.view)

	a.Update(keyRunes("Most readers are over 70"))
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, a.state.commenting)
	assert.True(t, a.state.revising)
	assert.Equal(t, viewProcessing, a.view)
	assert.Len(t, a.state.status, 2, "only comment stages run again")

	rev, err := sess.Revise(context.Background(), "Most readers are over 70")
	require.NoError(t, err)
	a.Update(revisionDoneMsg{run: rev})

	assert.Equal(t, viewResult, a.view)
	assert.True(t, a.state.showRevised)
	out := a.View()
	assert.Contains(t, out, "Revised analysis")
	assert.Contains(t, out, "too small for older readers")
	assert.Contains(t, out, "[Tab]")

	a.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.False(t, a.state.showRevised)
	assert.Contains(t, a.View(), "Original analysis")
}

func TestPendingCommentRunsAfterAnalysis(t *testing.T) {
	a, sess := newTestApp(t, "  Most readers are over 70  ")
	cmd := analyzed(t, a, sess)

	require.NotNil(t, cmd)
	assert.True(t, a.state.revising)
	assert.Empty(t, a.state.pendingComment)
	assert.Contains(t, a.View(), "Revising with your comment")
}

func TestTabWithoutRevision(t *testing.T) {
	a, sess := newTestApp(t, "")
	analyzed(t, a, sess)

	a.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.False(t, a.state.showRevised)
	assert.Contains(t, a.state.notice, "No revision yet")
}

func TestSaveMarkdown(t *testing.T) {
	a, sess := newTestApp(t, "")
	analyzed(t, a, sess)

	_, cmd := a.Update(keyRunes("m"))
	require.NotNil(t, cmd)
	msg := cmd()
	saved, ok := msg.(savedMsg)
	require.True(t, ok)
	require.NoError(t, saved.err)
	assert.True(t, strings.HasSuffix(saved.path, ".md"))

	data, err := os.ReadFile(saved.path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hidden on page two")

	a.Update(saved)
	assert.Contains(t, a.View(), "Saved ")
}

func TestHelpAndSettingsReturn(t *testing.T) {
	a, sess := newTestApp(t, "")
	analyzed(t, a, sess)

	a.Update(keyRunes("?"))
	assert.Equal(t, viewHelp, a.view)
	assert.Contains(t, a.View(), "Save the PDF report")
	a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, viewResult, a.view)

	a.Update(keyRunes("s"))
	assert.Equal(t, viewSettings, a.view)
	out := a.View()
	assert.Contains(t, out, "Google Gemini")
	assert.Contains(t, out, "sludge")
	a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, viewResult, a.view)
}

func TestQuitDuringProcessingCancels(t *testing.T) {
	a, _ := newTestApp(t, "")
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.True(t, a.quitting)
	assert.Error(t, a.ctx.Err())
	assert.Empty(t, a.View())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hel...", truncate("hello world", 6))
	assert.Equal(t, "保育...", truncate("保育園の申請について", 5))
}

package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/sant0-9/surasura/internal/config"
	"github.com/sant0-9/surasura/internal/pipeline"
	"github.com/sant0-9/surasura/internal/prompts"
	"github.com/sant0-9/surasura/internal/source"
)

type stageStatus int

const (
	stagePending stageStatus = iota
	stageRunning
	stageDone
	stageFailed
)

type state struct {
	config   *config.Config
	session  *pipeline.Session
	document *source.Document

	// Processing
	stages    []*prompts.Stage
	status    map[string]stageStatus
	revising  bool
	lastError string

	// Results
	original    *pipeline.Run
	revision    *pipeline.Run
	showRevised bool
	notice      string

	// Comment typed before the first analysis finished, run once it does
	pendingComment string

	err error

	spinner    spinner.Model
	viewport   viewport.Model
	comment    textinput.Model
	commenting bool
}

func newState(cfg *config.Config, sess *pipeline.Session, doc *source.Document) *state {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleTitle

	comment := textinput.New()
	comment.Placeholder = "Reviewer comment, e.g. most readers are over 70..."
	comment.CharLimit = 2000
	comment.Width = 60

	return &state{
		config:   cfg,
		session:  sess,
		document: doc,
		stages:   sess.Pipeline().Registry().Stages(),
		status:   map[string]stageStatus{},
		spinner:  sp,
		viewport: viewport.New(80, 20),
		comment:  comment,
	}
}

// resetStatus marks the stages a pass will run as pending.
func (s *state) resetStatus(revision bool) {
	s.status = map[string]stageStatus{}
	for _, st := range s.stages {
		if !revision || st.AcceptsComment {
			s.status[st.ID] = stagePending
		}
	}
	s.lastError = ""
}

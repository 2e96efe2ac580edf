package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/sant0-9/surasura/internal/errors"
	"github.com/sant0-9/surasura/internal/source"
)

// State of a Session.
type State int

const (
	StateInitial State = iota
	StateAnalyzed
	StateRevised
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateAnalyzed:
		return "analyzed"
	case StateRevised:
		return "revised"
	default:
		return "unknown"
	}
}

// Session is one document's analysis plus at most one current revision.
// It is safe for concurrent use; revisions are serialized.
type Session struct {
	pipeline *Pipeline

	mu        sync.RWMutex
	state     State
	analyzing bool
	original  *Run
	revision  *Run

	reviseMu sync.Mutex
}

func NewSession(p *Pipeline) *Session {
	return &Session{pipeline: p}
}

// Analyze runs the full chain once. A second call fails with
// ErrAlreadyAnalyzed.
func (s *Session) Analyze(ctx context.Context, doc *source.Document) (*Run, error) {
	s.mu.Lock()
	if s.state != StateInitial || s.analyzing {
		s.mu.Unlock()
		return nil, errors.Wrapf(errors.ErrAlreadyAnalyzed, "session is %s", s.state)
	}
	s.analyzing = true
	s.mu.Unlock()

	run, err := s.pipeline.Run(ctx, doc)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzing = false
	if err != nil {
		return nil, err
	}
	s.original = run
	s.state = StateAnalyzed
	return run, nil
}

// Revise recomputes the comment-accepting stages of the original run. Each
// call derives from the original and replaces the previous revision.
func (s *Session) Revise(ctx context.Context, comment string) (*Run, error) {
	s.mu.RLock()
	state, original := s.state, s.original
	s.mu.RUnlock()

	if state == StateInitial || original == nil {
		return nil, errors.Wrap(errors.ErrNotAnalyzed, "session")
	}
	if strings.TrimSpace(comment) == "" {
		return nil, errors.Wrap(errors.ErrEmptyComment, "session")
	}

	s.reviseMu.Lock()
	defer s.reviseMu.Unlock()

	rev, err := s.pipeline.Revise(ctx, original, comment)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.revision = rev
	s.state = StateRevised
	s.mu.Unlock()
	return rev, nil
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Original returns the analyzed run, or nil before Analyze completes.
func (s *Session) Original() *Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.original
}

// Revision returns the latest revision, or nil.
func (s *Session) Revision() *Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Pipeline returns the pipeline the session runs on.
func (s *Session) Pipeline() *Pipeline {
	return s.pipeline
}

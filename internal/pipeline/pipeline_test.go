package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sant0-9/surasura/internal/errors"
	"github.com/sant0-9/surasura/internal/prompts"
	"github.com/sant0-9/surasura/internal/source"
)

// fakeCompleter answers "<tag>-<call number>" and fails the calls listed in
// failOn. It records every prompt it receives.
type fakeCompleter struct {
	mu      sync.Mutex
	tag     string
	failOn  map[int]bool
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if f.failOn[call] {
		return "", errors.Mark(errors.Newf("quota exhausted on call %d", call), errors.ErrCompletionFailed)
	}
	return fmt.Sprintf("%s-%d", f.tag, call), nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func setup(t *testing.T, fc *fakeCompleter) (*Pipeline, *source.Document) {
	t.Helper()
	reg, err := prompts.Load("sludge", "")
	require.NoError(t, err)
	doc, err := source.New("flyer.pdf", source.KindPDF, "Apply for the childcare subsidy at the city office by March 31.")
	require.NoError(t, err)
	return New(reg, fc, "English", nil), doc
}

func stageIDs(results []StageResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.StageID
	}
	return ids
}

func TestRunOneResultPerStageInOrder(t *testing.T) {
	fc := &fakeCompleter{tag: "out"}
	p, doc := setup(t, fc)

	run, err := p.Run(context.Background(), doc)
	require.NoError(t, err)

	var want []string
	for _, st := range p.Registry().Stages() {
		want = append(want, st.ID)
	}
	assert.Equal(t, want, stageIDs(run.Results))
	assert.Equal(t, len(want), fc.calls())
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "sludge", run.TemplateSet)

	for i, res := range run.Results {
		assert.False(t, res.Absent)
		assert.Equal(t, fmt.Sprintf("out-%d", i), res.Output)
		assert.False(t, res.CompletedAt.Before(res.StartedAt))
	}
}

func TestRunThreadsOutputsIntoLaterPrompts(t *testing.T) {
	fc := &fakeCompleter{tag: "out"}
	p, doc := setup(t, fc)

	_, err := p.Run(context.Background(), doc)
	require.NoError(t, err)

	// target_action reads target_audience (call 0)
	assert.Contains(t, fc.prompts[1], "out-0")
	// process_map reads both
	assert.Contains(t, fc.prompts[2], "out-0")
	assert.Contains(t, fc.prompts[2], "out-1")
	// every prompt carries the document and the first pass comment filler
	for _, pr := range fc.prompts {
		assert.Contains(t, pr, "childcare subsidy")
		assert.NotContains(t, pr, "{{")
	}
	assert.Contains(t, fc.prompts[3], prompts.NoComment)
}

func TestRunContinuesAfterFailure(t *testing.T) {
	fc := &fakeCompleter{tag: "out", failOn: map[int]bool{1: true}}
	p, doc := setup(t, fc)

	run, err := p.Run(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, run.Results, 6)
	assert.Equal(t, 6, fc.calls(), "stages after the failure still execute")

	failed := run.Results[1]
	assert.Equal(t, "target_action", failed.StageID)
	assert.True(t, failed.Absent)
	assert.Empty(t, failed.Output)
	assert.Contains(t, failed.Err, "quota exhausted on call 1")

	// process_map consumes target_action and sees the filler
	assert.Contains(t, fc.prompts[2], prompts.Unavailable)
	assert.NotContains(t, fc.prompts[2], "out-1")
	for _, res := range run.Results[2:] {
		assert.False(t, res.Absent, res.StageID)
	}
	assert.Len(t, run.Failed(), 1)
}

func TestRunAllStagesFail(t *testing.T) {
	fc := &fakeCompleter{failOn: map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true, 5: true}}
	p, doc := setup(t, fc)

	run, err := p.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Len(t, run.Failed(), 6)
	assert.Contains(t, fc.prompts[5], prompts.Unavailable)
}

func TestRunCancelledContext(t *testing.T) {
	fc := &fakeCompleter{tag: "out"}
	p, doc := setup(t, fc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := p.Run(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 0, fc.calls())
	require.Len(t, run.Results, 6)
	for _, res := range run.Results {
		assert.True(t, res.Absent)
		assert.Contains(t, res.Err, "canceled")
	}
}

func TestRunRejectsEmptyDocument(t *testing.T) {
	p, _ := setup(t, &fakeCompleter{})
	_, err := p.Run(context.Background(), nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyDocument))
}

func TestProgressEvents(t *testing.T) {
	fc := &fakeCompleter{tag: "out", failOn: map[int]bool{2: true}}
	p, doc := setup(t, fc)

	var events []Progress
	p.SetProgressCallback(func(pr Progress) { events = append(events, pr) })

	_, err := p.Run(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, events, 12)
	assert.Equal(t, "target_audience", events[0].StageID)
	assert.False(t, events[0].Done)
	assert.True(t, events[1].Done)
	assert.Equal(t, 6, events[1].TotalStages)
	assert.True(t, events[5].Absent, "process_map finished absent")
	assert.Equal(t, 5, events[11].StageIndex)
}

func TestReviseReusesUpstreamVerbatim(t *testing.T) {
	fc := &fakeCompleter{tag: "orig"}
	p, doc := setup(t, fc)

	original, err := p.Run(context.Background(), doc)
	require.NoError(t, err)
	snapshot := append([]StageResult(nil), original.Results...)

	fc.tag = "rev"
	rev, err := p.Revise(context.Background(), original, "Most readers are over 70.")
	require.NoError(t, err)

	assert.Equal(t, original.ID, rev.ParentID)
	assert.NotEqual(t, original.ID, rev.ID)
	assert.Equal(t, "Most readers are over 70.", rev.Comment)
	assert.Same(t, original.Document, rev.Document)

	assert.Equal(t, []string{"target_audience", "target_action", "process_map", "sludge_analysis", "improvements"}, stageIDs(rev.Results))

	for _, id := range []string{"target_audience", "target_action", "process_map"} {
		o, _ := original.Result(id)
		r, _ := rev.Result(id)
		assert.Equal(t, o.Output, r.Output, id)
		assert.True(t, r.Reused, id)
	}
	for _, id := range []string{"sludge_analysis", "improvements"} {
		o, _ := original.Result(id)
		r, _ := rev.Result(id)
		assert.NotEqual(t, o.Output, r.Output, id)
		assert.False(t, r.Reused, id)
		assert.True(t, strings.HasPrefix(r.Output, "rev-"), id)
	}

	// only the two comment stages called the model
	assert.Equal(t, 8, fc.calls())
	revSludgePrompt, revImprovementsPrompt := fc.prompts[6], fc.prompts[7]
	assert.Contains(t, revSludgePrompt, "Most readers are over 70.")
	assert.Contains(t, revSludgePrompt, "orig-2", "reads the original process map")
	assert.Contains(t, revImprovementsPrompt, "rev-6", "reads the revised sludge analysis")

	assert.Equal(t, snapshot, original.Results, "original run untouched")
}

func TestReviseRejectsEmptyComment(t *testing.T) {
	fc := &fakeCompleter{tag: "out"}
	p, doc := setup(t, fc)
	run, err := p.Run(context.Background(), doc)
	require.NoError(t, err)
	before := fc.calls()

	for _, comment := range []string{"", "   ", "\n\t"} {
		_, err := p.Revise(context.Background(), run, comment)
		assert.True(t, errors.Is(err, errors.ErrEmptyComment), "%q", comment)
	}
	assert.Equal(t, before, fc.calls(), "no completion call for an empty comment")
}

func TestReviseCarriesAbsentUpstream(t *testing.T) {
	fc := &fakeCompleter{tag: "out", failOn: map[int]bool{2: true}}
	p, doc := setup(t, fc)
	run, err := p.Run(context.Background(), doc)
	require.NoError(t, err)

	rev, err := p.Revise(context.Background(), run, "check the deadline wording")
	require.NoError(t, err)

	pm, ok := rev.Result("process_map")
	require.True(t, ok)
	assert.True(t, pm.Absent)
	assert.True(t, pm.Reused)
	assert.Contains(t, fc.prompts[6], prompts.Unavailable)
}

func TestSessionStateMachine(t *testing.T) {
	fc := &fakeCompleter{tag: "out"}
	p, doc := setup(t, fc)
	s := NewSession(p)
	ctx := context.Background()

	assert.Equal(t, StateInitial, s.State())
	_, err := s.Revise(ctx, "too early")
	assert.True(t, errors.Is(err, errors.ErrNotAnalyzed))
	assert.Equal(t, 0, fc.calls())

	original, err := s.Analyze(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, StateAnalyzed, s.State())
	assert.Same(t, original, s.Original())
	assert.Nil(t, s.Revision())

	_, err = s.Analyze(ctx, doc)
	assert.True(t, errors.Is(err, errors.ErrAlreadyAnalyzed))

	_, err = s.Revise(ctx, "  ")
	assert.True(t, errors.Is(err, errors.ErrEmptyComment))
	assert.Equal(t, StateAnalyzed, s.State())

	first, err := s.Revise(ctx, "first comment")
	require.NoError(t, err)
	assert.Equal(t, StateRevised, s.State())

	second, err := s.Revise(ctx, "second comment")
	require.NoError(t, err)
	assert.Same(t, second, s.Revision())
	assert.Equal(t, original.ID, first.ParentID)
	assert.Equal(t, original.ID, second.ParentID, "revisions derive from the original")
	assert.Same(t, original, s.Original())
	assert.NotContains(t, fc.prompts[len(fc.prompts)-2], "first comment")
}

func TestSessionAnalyzeFailureStaysInitial(t *testing.T) {
	p, _ := setup(t, &fakeCompleter{})
	s := NewSession(p)

	_, err := s.Analyze(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, StateInitial, s.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "initial", StateInitial.String())
	assert.Equal(t, "analyzed", StateAnalyzed.String())
	assert.Equal(t, "revised", StateRevised.String())
	assert.Equal(t, "unknown", State(9).String())
}

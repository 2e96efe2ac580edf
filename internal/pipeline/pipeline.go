// Package pipeline runs the stage chain over a document and derives
// revisions from a reviewer comment.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sant0-9/surasura/internal/errors"
	"github.com/sant0-9/surasura/internal/logging"
	"github.com/sant0-9/surasura/internal/prompts"
	"github.com/sant0-9/surasura/internal/source"
)

// Completer is the one call the pipeline makes per stage.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Progress represents pipeline progress. It is reported once when a stage
// starts and once when it finishes (Done set).
type Progress struct {
	StageID     string
	Title       string
	StageIndex  int
	TotalStages int
	Done        bool
	Absent      bool
	Revision    bool
	Message     string
}

// Pipeline executes a template set's stages strictly in order.
type Pipeline struct {
	registry   *prompts.Registry
	completer  Completer
	language   string
	logger     *zap.SugaredLogger
	onProgress func(Progress)
}

// New creates a pipeline. language fills the {{language}} slot.
func New(registry *prompts.Registry, completer Completer, language string, logger *zap.SugaredLogger) *Pipeline {
	if language == "" {
		language = "the same language as the document"
	}
	return &Pipeline{
		registry:  registry,
		completer: completer,
		language:  language,
		logger:    logging.OrNop(logger),
	}
}

// SetProgressCallback sets the progress callback
func (p *Pipeline) SetProgressCallback(fn func(Progress)) {
	p.onProgress = fn
}

// Registry returns the template set the pipeline runs.
func (p *Pipeline) Registry() *prompts.Registry {
	return p.registry
}

func (p *Pipeline) progress(pr Progress) {
	if p.onProgress != nil {
		p.onProgress(pr)
	}
}

// Run executes every stage over doc. Stage failures do not stop the run:
// the failed stage is recorded absent and later stages see
// prompts.Unavailable in its place. The returned run always holds one
// result per stage, in order.
func (p *Pipeline) Run(ctx context.Context, doc *source.Document) (*Run, error) {
	if doc == nil || strings.TrimSpace(doc.Text) == "" {
		return nil, errors.Mark(errors.New("pipeline: no document text"), errors.ErrEmptyDocument)
	}

	run := &Run{
		ID:          uuid.NewString(),
		TemplateSet: p.registry.Set(),
		Document:    doc,
		CreatedAt:   time.Now(),
	}
	log := p.logger.With("run", run.ID, "template_set", run.TemplateSet, "source", doc.Name)
	log.Infow("analysis started", "chars", doc.Metadata.CharCount)

	stages := p.registry.Stages()
	for i, st := range stages {
		res := p.execute(ctx, log, st, i, len(stages), false, prompts.NoComment, run, nil)
		run.Results = append(run.Results, res)
	}

	log.Infow("analysis finished", "stages", len(run.Results), "failed", len(run.Failed()))
	return run, nil
}

// Revise derives a new run from original with a reviewer comment.
//
// Comment-accepting stages are recomputed. Stages before the first
// comment-accepting stage are copied verbatim and flagged Reused; any other
// stage is left out of the revision. original is not modified.
func (p *Pipeline) Revise(ctx context.Context, original *Run, comment string) (*Run, error) {
	if original == nil {
		return nil, errors.Mark(errors.New("pipeline: no run to revise"), errors.ErrNotAnalyzed)
	}
	if strings.TrimSpace(comment) == "" {
		return nil, errors.Wrap(errors.ErrEmptyComment, "pipeline")
	}

	stages := p.registry.Stages()
	first := -1
	recompute := 0
	for i, st := range stages {
		if st.AcceptsComment {
			if first < 0 {
				first = i
			}
			recompute++
		}
	}
	if first < 0 {
		return nil, errors.Newf("template set %q has no stage that accepts a comment", p.registry.Set())
	}

	rev := &Run{
		ID:          uuid.NewString(),
		ParentID:    original.ID,
		TemplateSet: original.TemplateSet,
		Document:    original.Document,
		Comment:     comment,
		CreatedAt:   time.Now(),
	}
	log := p.logger.With("run", rev.ID, "parent", original.ID, "template_set", rev.TemplateSet)
	log.Infow("revision started", "comment_chars", len([]rune(comment)))

	step := 0
	for i, st := range stages {
		switch {
		case st.AcceptsComment:
			res := p.execute(ctx, log, st, step, recompute, true, comment, rev, original)
			rev.Results = append(rev.Results, res)
			step++
		case i < first:
			if res, ok := original.Result(st.ID); ok {
				res.Reused = true
				rev.Results = append(rev.Results, res)
			}
		}
	}

	log.Infow("revision finished", "recomputed", recompute, "failed", len(rev.Failed()))
	return rev, nil
}

// execute renders and completes one stage. Inputs resolve against run first,
// then fallback (the original run during a revision).
func (p *Pipeline) execute(ctx context.Context, log *zap.SugaredLogger, st *prompts.Stage, index, total int, revision bool, comment string, run, fallback *Run) StageResult {
	res := StageResult{StageID: st.ID, Title: st.Title, StartedAt: time.Now()}
	p.progress(Progress{StageID: st.ID, Title: st.Title, StageIndex: index, TotalStages: total, Revision: revision,
		Message: st.Title})

	fail := func(err error) StageResult {
		res.Absent = true
		res.Err = err.Error()
		res.CompletedAt = time.Now()
		log.Warnw("stage failed", "stage", st.ID, "error", err)
		p.progress(Progress{StageID: st.ID, Title: st.Title, StageIndex: index, TotalStages: total, Revision: revision,
			Done: true, Absent: true, Message: res.Err})
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(errors.Mark(errors.Wrap(err, "not started"), errors.ErrCompletionFailed))
	}

	inputs := map[string]string{
		prompts.SlotDocument: run.Document.Text,
		prompts.SlotLanguage: p.language,
	}
	for _, in := range st.Inputs {
		inputs[in] = resolveInput(in, run, fallback)
	}
	if st.AcceptsComment {
		inputs[prompts.SlotComment] = comment
	}

	prompt, err := p.registry.Render(st.ID, inputs)
	if err != nil {
		return fail(errors.Wrapf(err, "render %s", st.ID))
	}

	out, err := p.completer.Complete(ctx, prompt)
	if err != nil {
		return fail(err)
	}

	res.Output = out
	res.CompletedAt = time.Now()
	log.Infow("stage completed", "stage", st.ID, "elapsed", res.Duration(), "output_chars", len(out))
	p.progress(Progress{StageID: st.ID, Title: st.Title, StageIndex: index, TotalStages: total, Revision: revision,
		Done: true, Message: st.Title})
	return res
}

func resolveInput(stageID string, runs ...*Run) string {
	for _, r := range runs {
		if r == nil {
			continue
		}
		if res, ok := r.Result(stageID); ok {
			if res.Absent {
				return prompts.Unavailable
			}
			return res.Output
		}
	}
	return prompts.Unavailable
}

package pipeline

import (
	"time"

	"github.com/sant0-9/surasura/internal/source"
)

// StageResult is the outcome of one stage. Absent is set iff the stage
// produced no output; Err then holds the reason.
type StageResult struct {
	StageID     string    `json:"stage_id"`
	Title       string    `json:"title"`
	Output      string    `json:"output,omitempty"`
	Err         string    `json:"error,omitempty"`
	Absent      bool      `json:"absent"`
	Reused      bool      `json:"reused,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Duration is how long the stage took. Reused results report zero.
func (r StageResult) Duration() time.Duration {
	if r.Reused || r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Run holds every stage result for one submission, in stage order. A
// revision is a separate Run whose ParentID names the original.
type Run struct {
	ID          string           `json:"id"`
	ParentID    string           `json:"parent_id,omitempty"`
	TemplateSet string           `json:"template_set"`
	Document    *source.Document `json:"-"`
	Comment     string           `json:"comment,omitempty"`
	Results     []StageResult    `json:"results"`
	CreatedAt   time.Time        `json:"created_at"`
}

// IsRevision reports whether the run was derived from another run.
func (r *Run) IsRevision() bool {
	return r.ParentID != ""
}

// Result returns the result for a stage id.
func (r *Run) Result(stageID string) (StageResult, bool) {
	for _, res := range r.Results {
		if res.StageID == stageID {
			return res, true
		}
	}
	return StageResult{}, false
}

// Failed returns the absent results.
func (r *Run) Failed() []StageResult {
	var out []StageResult
	for _, res := range r.Results {
		if res.Absent {
			out = append(out, res)
		}
	}
	return out
}

// SourceName is the document's filename or URL, or "" when unknown.
func (r *Run) SourceName() string {
	if r.Document == nil {
		return ""
	}
	return r.Document.Name
}

package render

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/sant0-9/surasura/internal/errors"
	"github.com/sant0-9/surasura/internal/pipeline"
	"github.com/sant0-9/surasura/internal/prompts"
)

// Section is one titled block of a report or screen.
type Section struct {
	StageID   string `json:"stage_id"`
	Title     string `json:"title"`
	Body      Body   `json:"body"`
	Absent    bool   `json:"absent,omitempty"`
	Err       string `json:"error,omitempty"`
	Malformed bool   `json:"malformed,omitempty"`
}

// Sections converts a run into display sections in stage order. Results
// reused from an earlier run are skipped; they are already shown with it.
func Sections(run *pipeline.Run) []Section {
	if run == nil {
		return nil
	}
	var out []Section
	for _, res := range run.Results {
		if res.Reused {
			continue
		}
		out = append(out, sectionFor(res))
	}
	return out
}

func sectionFor(res pipeline.StageResult) Section {
	sec := Section{StageID: res.StageID, Title: res.Title}
	if sec.Title == "" {
		sec.Title = res.StageID
	}

	if res.Absent {
		sec.Absent = true
		sec.Err = res.Err
		sec.Body = Body{Paragraphs: []string{prompts.Unavailable}}
		if res.Err != "" {
			sec.Body.Paragraphs = append(sec.Body.Paragraphs, "Reason: "+res.Err)
		}
		return sec
	}

	body, err := ParseBody(res.Output)
	if err != nil {
		sec.Malformed = errors.Is(err, errors.ErrMalformedOutput)
		sec.Err = err.Error()
	}
	sec.Body = body
	return sec
}

// Meta is the report's title block.
type Meta struct {
	Title       string
	Source      string
	GeneratedAt time.Time
	Footer      string
}

// Revision is the revised part of a report.
type Revision struct {
	Comment  string    `json:"comment"`
	Sections []Section `json:"sections"`
}

// Report is a rendering of one run and, optionally, its revision.
type Report struct {
	Title       string    `json:"title"`
	Source      string    `json:"source,omitempty"`
	TemplateSet string    `json:"template_set"`
	GeneratedAt time.Time `json:"generated_at"`
	Footer      string    `json:"footer,omitempty"`
	Sections    []Section `json:"sections"`
	Revision    *Revision `json:"revision,omitempty"`
}

// NewReport builds a report. revision may be nil.
func NewReport(original, revision *pipeline.Run, meta Meta) *Report {
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now()
	}
	if meta.Title == "" {
		meta.Title = "Surasura Diagnosis"
	}
	if meta.Source == "" && original != nil {
		meta.Source = original.SourceName()
	}

	r := &Report{
		Title:       meta.Title,
		Source:      meta.Source,
		GeneratedAt: meta.GeneratedAt,
		Footer:      meta.Footer,
		Sections:    Sections(original),
	}
	if original != nil {
		r.TemplateSet = original.TemplateSet
	}
	if revision != nil {
		r.Revision = &Revision{Comment: revision.Comment, Sections: Sections(revision)}
	}
	return r
}

// Titles lists every section title in report order, revision included.
func (r *Report) Titles() []string {
	var out []string
	for _, s := range r.Sections {
		out = append(out, s.Title)
	}
	if r.Revision != nil {
		for _, s := range r.Revision.Sections {
			out = append(out, s.Title)
		}
	}
	return out
}

var unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// Filename builds "<tool>_<source stem>_<20060102-150405>.<ext>". Letters
// of any script are kept, so Japanese source names survive.
func Filename(tool, source string, t time.Time, ext string) string {
	return fmt.Sprintf("%s_%s_%s.%s",
		slug(tool, "report"), slug(sourceStem(source), "document"),
		t.Format("20060102-150405"), strings.TrimPrefix(ext, "."))
}

func sourceStem(source string) string {
	source = strings.TrimSpace(source)
	if u, err := url.Parse(source); err == nil && u.Host != "" {
		base := path.Base(strings.TrimSuffix(u.Path, "/"))
		if base == "." || base == "/" || base == "" {
			return u.Hostname()
		}
		return strings.TrimSuffix(base, path.Ext(base))
	}
	base := path.Base(strings.ReplaceAll(source, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

func slug(s, fallback string) string {
	s = strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if s == "" {
		return fallback
	}
	if r := []rune(s); len(r) > 60 {
		s = strings.TrimRight(string(r[:60]), "-")
	}
	return s
}

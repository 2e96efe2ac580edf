// Package prompts holds the ordered catalog of analysis stages.
//
// A template set is a directory of Markdown files, one per stage. Each file
// starts with YAML front matter naming the stage, its position, the earlier
// stages it reads and whether it takes a reviewer comment. The body is the
// prompt, with {{slot}} placeholders:
//
//	{{document}}   the extracted document text
//	{{language}}   the language the answer must be written in
//	{{<stage id>}} the output of a declared input stage
//	{{comment}}    the reviewer comment (accepts_comment stages only)
//
// Two sets are embedded: "sludge" (default) and "east". A directory
// configured with templates.dir may add sets or replace embedded ones by name.
package prompts

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sant0-9/surasura/internal/errors"
)

//go:embed templates
var embedded embed.FS

const (
	SlotDocument = "document"
	SlotLanguage = "language"
	SlotComment  = "comment"

	// Unavailable replaces the output of a stage that failed.
	Unavailable = "unavailable (information not obtained)"
	// NoComment fills the comment slot on the first pass.
	NoComment = "none (first analysis, no reviewer comment yet)"

	DefaultSet = "sludge"
)

// Registry is one loaded template set, ordered.
type Registry struct {
	set    string
	stages []*Stage
	byID   map[string]*Stage
}

// Load returns the named set, preferring <dir>/<set> when dir holds it.
func Load(set, dir string) (*Registry, error) {
	if set == "" {
		set = DefaultSet
	}
	if dir != "" {
		userSet := filepath.Join(dir, set)
		if info, err := os.Stat(userSet); err == nil && info.IsDir() {
			return LoadFS(os.DirFS(userSet), set)
		}
	}

	sub, err := fs.Sub(embedded, "templates/"+set)
	if err != nil {
		return nil, errors.Wrapf(err, "template set %q", set)
	}
	if _, err := fs.Stat(sub, "."); err != nil {
		return nil, errors.Mark(
			errors.Newf("unknown template set %q (available: %s)", set, strings.Join(Sets(dir), ", ")),
			errors.ErrNotFound)
	}
	return LoadFS(sub, set)
}

// LoadFS reads every *.md file at the root of fsys as a stage.
func LoadFS(fsys fs.FS, set string) (*Registry, error) {
	files, err := fs.Glob(fsys, "*.md")
	if err != nil {
		return nil, errors.Wrap(err, "list templates")
	}
	if len(files) == 0 {
		return nil, errors.Newf("template set %q has no stages", set)
	}

	r := &Registry{set: set, byID: make(map[string]*Stage)}
	for _, name := range files {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", name)
		}
		st, err := parseStage(name, content)
		if err != nil {
			return nil, err
		}
		if _, dup := r.byID[st.ID]; dup {
			return nil, errors.Newf("duplicate stage id %q in set %q", st.ID, set)
		}
		r.byID[st.ID] = st
		r.stages = append(r.stages, st)
	}

	sort.SliceStable(r.stages, func(i, j int) bool {
		if r.stages[i].Order != r.stages[j].Order {
			return r.stages[i].Order < r.stages[j].Order
		}
		return r.stages[i].ID < r.stages[j].ID
	})

	if err := r.checkInputs(); err != nil {
		return nil, err
	}
	return r, nil
}

// checkInputs enforces the linear chain: a stage reads only stages that run
// strictly before it.
func (r *Registry) checkInputs() error {
	seen := make(map[string]bool)
	for _, st := range r.stages {
		for _, in := range st.Inputs {
			if in == SlotDocument || in == SlotLanguage || in == SlotComment {
				return errors.Newf("stage %s: input %q collides with a reserved slot", st.ID, in)
			}
			if !seen[in] {
				if _, exists := r.byID[in]; exists {
					return errors.Newf("stage %s: input %q does not run before it", st.ID, in)
				}
				return errors.Newf("stage %s: unknown input %q", st.ID, in)
			}
		}
		seen[st.ID] = true
	}
	return nil
}

// Set returns the template set name.
func (r *Registry) Set() string { return r.set }

// Stages returns the stages in execution order.
func (r *Registry) Stages() []*Stage {
	out := make([]*Stage, len(r.stages))
	copy(out, r.stages)
	return out
}

// Stage looks a stage up by id.
func (r *Registry) Stage(id string) (*Stage, bool) {
	st, ok := r.byID[id]
	return st, ok
}

// Render fills the stage's template. Every declared slot must be present in
// inputs; callers pass Unavailable or NoComment rather than leaving one out.
func (r *Registry) Render(stageID string, inputs map[string]string) (string, error) {
	st, ok := r.byID[stageID]
	if !ok {
		return "", errors.Mark(errors.Newf("unknown stage %q", stageID), errors.ErrNotFound)
	}
	for _, slot := range st.DeclaredSlots() {
		if _, ok := inputs[slot]; !ok {
			return "", errors.Newf("stage %s: missing slot %q", stageID, slot)
		}
	}
	return st.Template.Execute(inputs)
}

// Sets lists the embedded set names plus any set directories under dir.
func Sets(dir string) []string {
	names := make(map[string]bool)
	if entries, err := fs.ReadDir(embedded, "templates"); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				names[e.Name()] = true
			}
		}
	}
	if dir != "" {
		if entries, err := os.ReadDir(dir); err == nil {
			for _, e := range entries {
				if e.IsDir() {
					names[e.Name()] = true
				}
			}
		}
	}

	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

package prompts

import (
	"bytes"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sant0-9/surasura/internal/errors"
)

// Stage is one step of the analysis chain, loaded from a Markdown file with
// YAML front matter.
type Stage struct {
	ID             string   `yaml:"id"`
	Title          string   `yaml:"title"`
	Description    string   `yaml:"description"`
	Inputs         []string `yaml:"inputs"`
	AcceptsComment bool     `yaml:"accepts_comment"`
	Order          int      `yaml:"order"`

	Path     string    `yaml:"-"`
	Template *Template `yaml:"-"`
}

// DeclaredSlots returns every slot Render requires for this stage.
func (s *Stage) DeclaredSlots() []string {
	slots := []string{SlotDocument, SlotLanguage}
	slots = append(slots, s.Inputs...)
	if s.AcceptsComment {
		slots = append(slots, SlotComment)
	}
	return slots
}

// parseStage reads front matter and body from a template file. The body is
// parsed against the slots the front matter declares.
func parseStage(name string, content []byte) (*Stage, error) {
	frontmatter, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", name)
	}

	var st Stage
	if err := yaml.Unmarshal(frontmatter, &st); err != nil {
		return nil, errors.Wrapf(err, "%s: front matter", name)
	}
	st.Path = name

	// Use the filename as fallback if no id in front matter
	if st.ID == "" {
		st.ID = idFromFilename(name)
	}
	if st.Title == "" {
		st.Title = st.ID
	}

	allowed := make(map[string]bool)
	for _, slot := range st.DeclaredSlots() {
		allowed[slot] = true
	}
	tmpl, err := ParseTemplate(body, allowed)
	if err != nil {
		return nil, errors.Wrapf(err, "stage %s", st.ID)
	}
	st.Template = tmpl
	return &st, nil
}

func splitFrontmatter(content []byte) ([]byte, string, error) {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return nil, "", errors.New("missing front matter")
	}
	rest := content[len("---\n"):]
	end := bytes.Index(rest, []byte("\n---\n"))
	if end < 0 {
		return nil, "", errors.New("unterminated front matter")
	}
	body := strings.TrimSpace(string(rest[end+len("\n---\n"):]))
	return rest[:end], body + "\n", nil
}

// idFromFilename turns "04_sludge_analysis.md" into "sludge_analysis".
func idFromFilename(name string) string {
	stem := strings.TrimSuffix(path.Base(name), path.Ext(name))
	return strings.TrimLeft(stem, "0123456789_-")
}

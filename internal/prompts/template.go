package prompts

import (
	"regexp"
	"strings"

	"github.com/sant0-9/surasura/internal/errors"
)

// Template is a parsed stage body with {{slot}} placeholders.
type Template struct {
	raw      string
	segments []segment
}

// segment is either a literal run of text or a slot name.
type segment struct {
	literal bool
	content string
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// ParseTemplate splits raw into literal and slot segments. Every slot must be
// in allowed.
func ParseTemplate(raw string, allowed map[string]bool) (*Template, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("empty template")
	}

	t := &Template{raw: raw}
	lastEnd := 0
	for _, match := range placeholderPattern.FindAllStringSubmatchIndex(raw, -1) {
		start, end := match[0], match[1]
		slot := raw[match[2]:match[3]]

		if !allowed[slot] {
			return nil, errors.Newf("unknown slot {{%s}}", slot)
		}
		if start > lastEnd {
			t.segments = append(t.segments, segment{literal: true, content: raw[lastEnd:start]})
		}
		t.segments = append(t.segments, segment{content: slot})
		lastEnd = end
	}
	if lastEnd < len(raw) {
		t.segments = append(t.segments, segment{literal: true, content: raw[lastEnd:]})
	}
	return t, nil
}

// Execute substitutes values literally. Values are never re-scanned, so a
// stage output containing "{{document}}" is inserted as-is.
func (t *Template) Execute(values map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(t.raw) * 2)

	for _, seg := range t.segments {
		if seg.literal {
			b.WriteString(seg.content)
			continue
		}
		v, ok := values[seg.content]
		if !ok {
			return "", errors.Newf("missing value for {{%s}}", seg.content)
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

// Slots returns the distinct slot names in order of first use.
func (t *Template) Slots() []string {
	seen := make(map[string]bool)
	var out []string
	for _, seg := range t.segments {
		if seg.literal || seen[seg.content] {
			continue
		}
		seen[seg.content] = true
		out = append(out, seg.content)
	}
	return out
}

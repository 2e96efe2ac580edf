// Package render turns pipeline runs into display sections and reports.
//
// Stage output is parsed with one rule. After an optional surrounding ```
// fence is removed, the output is a table when its first non-blank line
// contains "|" and its second non-blank line is a separator row made only of
// "|", "-", ":" and spaces with at least one "-". The first line gives the
// column titles. Each following line that contains a pipe is a row and must
// have exactly as many cells as the header. The table ends at the first
// blank line or line without a pipe; what follows is kept as trailing
// paragraphs. An escaped "\|" stays inside its cell.
//
// Anything else is a paragraph block, one paragraph per non-blank line. A
// table whose rows do not match the header is reported as
// ErrMalformedOutput and falls back to paragraphs.
package render

import (
	"strings"

	"github.com/sant0-9/surasura/internal/errors"
)

// Table is a parsed Markdown table.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Body is the display form of one stage output: a table or paragraphs,
// optionally followed by trailing paragraphs.
type Body struct {
	Table      *Table   `json:"table,omitempty"`
	Paragraphs []string `json:"paragraphs,omitempty"`
	Trailing   []string `json:"trailing,omitempty"`
}

// IsTable reports whether the body holds a table.
func (b Body) IsTable() bool { return b.Table != nil }

// ParseBody applies the table rule to raw. On ErrMalformedOutput the
// returned Body is the paragraph fallback, so callers can always display it.
func ParseBody(raw string) (Body, error) {
	lines := nonBlankIndexed(stripFence(raw))
	if len(lines) == 0 {
		return Body{}, nil
	}

	fallback := Body{Paragraphs: texts(lines)}
	if len(lines) < 2 || !strings.Contains(lines[0].text, "|") || !isSeparator(lines[1].text) {
		return fallback, nil
	}

	header := splitRow(lines[0].text)
	table := &Table{Header: header}

	all := strings.Split(stripFence(raw), "\n")
	i := lines[1].index + 1
	for ; i < len(all); i++ {
		line := strings.TrimSpace(all[i])
		if line == "" || !strings.Contains(line, "|") {
			break
		}
		cells := splitRow(line)
		if len(cells) != len(header) {
			return fallback, errors.Mark(
				errors.Newf("table row %d has %d cells, header has %d", len(table.Rows)+1, len(cells), len(header)),
				errors.ErrMalformedOutput)
		}
		table.Rows = append(table.Rows, cells)
	}

	body := Body{Table: table}
	for ; i < len(all); i++ {
		if line := strings.TrimSpace(all[i]); line != "" {
			body.Trailing = append(body.Trailing, line)
		}
	}
	return body, nil
}

type indexedLine struct {
	index int
	text  string
}

func nonBlankIndexed(text string) []indexedLine {
	var out []indexedLine
	for i, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, indexedLine{index: i, text: line})
		}
	}
	return out
}

func texts(lines []indexedLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.text
	}
	return out
}

// stripFence removes a ``` fence wrapping the whole output.
func stripFence(raw string) string {
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return text
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

func isSeparator(line string) bool {
	if !strings.Contains(line, "-") {
		return false
	}
	for _, r := range line {
		switch r {
		case '|', '-', ':', ' ', '\t':
		default:
			return false
		}
	}
	return true
}

// splitRow splits a table line on unescaped pipes, dropping the optional
// outer pipes.
func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	if strings.HasSuffix(line, "|") && !strings.HasSuffix(line, `\|`) {
		line = strings.TrimSuffix(line, "|")
	}

	var cells []string
	var cell strings.Builder
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '\\' && i+1 < len(line) && line[i+1] == '|':
			cell.WriteByte('|')
			i++
		case line[i] == '|':
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		default:
			cell.WriteByte(line[i])
		}
	}
	return append(cells, strings.TrimSpace(cell.String()))
}

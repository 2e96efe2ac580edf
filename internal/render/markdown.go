package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sant0-9/surasura/internal/errors"
	"github.com/sant0-9/surasura/internal/prompts"
)

const revisedHeading = "Revised analysis"

// WriteMarkdown writes the report as Markdown: "# title", a metadata list,
// one "## " heading per section, and the revision under "# Revised analysis"
// with the comment as a block quote. Body lines that start with "#" are
// escaped so only section headings parse back as headings.
func WriteMarkdown(w io.Writer, r *Report) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# %s\n\n", oneLine(r.Title))
	fmt.Fprintf(bw, "- Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	if r.Source != "" {
		fmt.Fprintf(bw, "- Source: %s\n", oneLine(r.Source))
	}
	if r.TemplateSet != "" {
		fmt.Fprintf(bw, "- Template set: %s\n", r.TemplateSet)
	}
	bw.WriteString("\n")

	writeSections(bw, r.Sections)

	if r.Revision != nil {
		fmt.Fprintf(bw, "# %s\n\n", revisedHeading)
		for _, line := range strings.Split(strings.TrimSpace(r.Revision.Comment), "\n") {
			fmt.Fprintf(bw, "> %s\n", line)
		}
		bw.WriteString("\n")
		writeSections(bw, r.Revision.Sections)
	}

	if r.Footer != "" {
		fmt.Fprintf(bw, "---\n\n%s\n", escapeLine(r.Footer))
	}
	return errors.Wrap(bw.Flush(), "write markdown")
}

func writeSections(bw *bufio.Writer, sections []Section) {
	for _, s := range sections {
		fmt.Fprintf(bw, "## %s\n\n", oneLine(s.Title))
		writeBody(bw, s.Body)
		if s.Malformed {
			fmt.Fprintf(bw, "_Note: the model's table could not be parsed (%s)._\n\n", escapeLine(s.Err))
		}
	}
}

func writeBody(bw *bufio.Writer, b Body) {
	if b.Table != nil {
		writeRow(bw, b.Table.Header)
		seps := make([]string, len(b.Table.Header))
		for i := range seps {
			seps[i] = "---"
		}
		fmt.Fprintf(bw, "| %s |\n", strings.Join(seps, " | "))
		for _, row := range b.Table.Rows {
			writeRow(bw, row)
		}
		bw.WriteString("\n")
	}
	for _, p := range append(append([]string(nil), b.Paragraphs...), b.Trailing...) {
		fmt.Fprintf(bw, "%s\n\n", escapeLine(p))
	}
	if b.Table == nil && len(b.Paragraphs) == 0 && len(b.Trailing) == 0 {
		fmt.Fprintf(bw, "_%s_\n\n", prompts.Unavailable)
	}
}

func writeRow(bw *bufio.Writer, cells []string) {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = strings.ReplaceAll(oneLine(c), "|", `\|`)
	}
	fmt.Fprintf(bw, "| %s |\n", strings.Join(escaped, " | "))
}

func escapeLine(s string) string {
	s = oneLine(s)
	if strings.HasPrefix(s, "#") {
		return `\` + s
	}
	return s
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseMarkdownTitles reads back the section titles written by
// WriteMarkdown, original sections first, then revised ones.
func ParseMarkdownTitles(r io.Reader) ([]string, error) {
	var titles []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "## ") {
			titles = append(titles, strings.TrimSpace(strings.TrimPrefix(line, "## ")))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read markdown")
	}
	return titles, nil
}

package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/sant0-9/surasura/internal/errors"
	"github.com/sant0-9/surasura/internal/logging"
)

const (
	pageMargin   = 15.0 // mm
	bottomMargin = 20.0
	lineHeight   = 5.0
	cellPadding  = 1.5
	bodySize     = 10.0
)

// PDFOptions control fonts. FontPath points at a TTF with the glyphs the
// report needs (for example a Japanese font); without it the core Helvetica
// font is used and text is mapped to cp1252.
type PDFOptions struct {
	FontPath string
	Logger   *zap.SugaredLogger
}

type pdfWriter struct {
	pdf    *fpdf.Fpdf
	family string
	tr     func(string) string
	width  float64
}

// WritePDF renders the report on A4 pages: a title block, one heading per
// section followed by its table or paragraphs, then the revision with its
// comment. Every page carries the footer text and a page number.
func WritePDF(w io.Writer, r *Report, opts PDFOptions) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.SetTitle(r.Title, true)
	pdf.SetCreator("surasura", true)
	pdf.AliasNbPages("")

	pw := &pdfWriter{pdf: pdf, family: "Helvetica", tr: func(s string) string { return s }}
	if opts.FontPath != "" {
		for _, style := range []string{"", "B", "I"} {
			pdf.AddUTF8Font("report", style, opts.FontPath)
		}
		if err := pdf.Error(); err != nil {
			return errors.Wrapf(err, "load font %s", opts.FontPath)
		}
		pw.family = "report"
	} else {
		pw.tr = pdf.UnicodeTranslatorFromDescriptor("")
		if NeedsFont(r) {
			logging.OrNop(opts.Logger).Warnw("Report has characters outside cp1252; set report.font_path to a TTF with those glyphs",
				"title", r.Title, "source", r.Source)
		}
	}
	pageW, _ := pdf.GetPageSize()
	pw.width = pageW - 2*pageMargin

	pdf.SetFooterFunc(func() {
		pdf.SetY(-bottomMargin + 5)
		pdf.SetFont(pw.family, "I", 8)
		pdf.SetTextColor(120, 120, 120)
		footer := fmt.Sprintf("%d / {nb}", pdf.PageNo())
		if r.Footer != "" {
			footer = r.Footer + "    " + footer
		}
		pdf.CellFormat(0, 8, pw.tr(footer), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	pdf.AddPage()
	pw.titleBlock(r)
	for _, s := range r.Sections {
		pw.section(s)
	}
	if r.Revision != nil {
		pw.heading(revisedHeading, 16)
		pw.comment(r.Revision.Comment)
		for _, s := range r.Revision.Sections {
			pw.section(s)
		}
	}

	if err := pdf.Error(); err != nil {
		return errors.Wrap(err, "render pdf")
	}
	return errors.Wrap(pdf.Output(w), "write pdf")
}

// NeedsFont reports whether some report text cannot be drawn with the core
// fonts, which only cover cp1252. Japanese text always needs a TTF font.
func NeedsFont(r *Report) bool {
	enc := charmap.Windows1252.NewEncoder()
	fits := func(s string) bool {
		_, err := enc.String(s)
		return err == nil
	}
	texts := []string{r.Title, r.Source, r.Footer}
	collect := func(sections []Section) {
		for _, s := range sections {
			texts = append(texts, s.Title)
			texts = append(texts, s.Body.Paragraphs...)
			texts = append(texts, s.Body.Trailing...)
			if t := s.Body.Table; t != nil {
				texts = append(texts, t.Header...)
				for _, row := range t.Rows {
					texts = append(texts, row...)
				}
			}
		}
	}
	collect(r.Sections)
	if r.Revision != nil {
		texts = append(texts, r.Revision.Comment)
		collect(r.Revision.Sections)
	}
	for _, s := range texts {
		if !fits(s) {
			return true
		}
	}
	return false
}

func (pw *pdfWriter) titleBlock(r *Report) {
	pdf := pw.pdf
	pdf.SetFont(pw.family, "B", 20)
	pdf.MultiCell(pw.width, 10, pw.tr(r.Title), "", "L", false)
	pdf.Ln(1)

	pdf.SetFont(pw.family, "", 9)
	pdf.SetTextColor(90, 90, 90)
	pdf.MultiCell(pw.width, lineHeight, pw.tr("Generated: "+r.GeneratedAt.Format("2006-01-02 15:04:05")), "", "L", false)
	if r.Source != "" {
		pdf.MultiCell(pw.width, lineHeight, pw.tr("Source: "+r.Source), "", "L", false)
	}
	if r.TemplateSet != "" {
		pdf.MultiCell(pw.width, lineHeight, pw.tr("Template set: "+r.TemplateSet), "", "L", false)
	}
	pdf.SetTextColor(0, 0, 0)

	y := pdf.GetY() + 2
	pdf.SetDrawColor(180, 180, 180)
	pdf.Line(pageMargin, y, pageMargin+pw.width, y)
	pdf.Ln(6)
}

func (pw *pdfWriter) heading(text string, size float64) {
	pdf := pw.pdf
	// keep a heading together with at least a few lines of its body
	pw.ensureSpace(size/2 + 4*lineHeight)
	pdf.SetFont(pw.family, "B", size)
	pdf.MultiCell(pw.width, size/2+1, pw.tr(text), "", "L", false)
	pdf.Ln(2)
}

func (pw *pdfWriter) comment(text string) {
	pdf := pw.pdf
	pdf.SetFont(pw.family, "I", bodySize)
	pdf.SetFillColor(242, 242, 242)
	pdf.MultiCell(pw.width, lineHeight+1, pw.tr("Reviewer comment: "+strings.TrimSpace(text)), "L", "L", true)
	pdf.Ln(4)
}

func (pw *pdfWriter) section(s Section) {
	pw.heading(s.Title, 13)
	if s.Body.Table != nil {
		pw.table(s.Body.Table)
	}
	pw.paragraphs(s.Body.Paragraphs)
	pw.paragraphs(s.Body.Trailing)
	if s.Malformed {
		pdf := pw.pdf
		pdf.SetFont(pw.family, "I", 8)
		pdf.MultiCell(pw.width, 4, pw.tr("Note: the model's table could not be parsed."), "", "L", false)
	}
	pw.pdf.Ln(4)
}

func (pw *pdfWriter) paragraphs(ps []string) {
	pdf := pw.pdf
	pdf.SetFont(pw.family, "", bodySize)
	for _, p := range ps {
		pdf.MultiCell(pw.width, lineHeight, pw.tr(p), "", "L", false)
		pdf.Ln(1.5)
	}
}

// table draws a bordered table whose cells wrap. Column widths follow the
// longest content of each column, with a floor so narrow columns stay
// readable. The header row repeats after a page break.
func (pw *pdfWriter) table(t *Table) {
	pdf := pw.pdf
	widths := pw.columnWidths(t)

	layout := func(cells []string, style string) ([][]string, float64) {
		pdf.SetFont(pw.family, style, bodySize-1)
		lines := make([][]string, len(widths))
		maxLines := 1
		for i, w := range widths {
			text := ""
			if i < len(cells) {
				text = pw.tr(cells[i])
			}
			lines[i] = pw.wrap(text, w-2*cellPadding-2*pdf.GetCellMargin())
			if len(lines[i]) > maxLines {
				maxLines = len(lines[i])
			}
		}
		return lines, float64(maxLines)*lineHeight + 2*cellPadding
	}

	drawRow := func(cells []string, header bool) {
		style, fill := "", "D"
		if header {
			style, fill = "B", "FD"
			pdf.SetFillColor(230, 236, 245)
		}
		lines, h := layout(cells, style)
		if pw.ensureSpace(h) && !header {
			hl, hh := layout(t.Header, "B")
			pw.drawCells(widths, hl, hh, "FD")
			pdf.SetFont(pw.family, style, bodySize-1)
		}
		pw.drawCells(widths, lines, h, fill)
	}

	pw.ensureSpace(lineHeight * 4)
	drawRow(t.Header, true)
	for _, row := range t.Rows {
		drawRow(row, false)
	}
	pdf.Ln(2)
}

func (pw *pdfWriter) drawCells(widths []float64, lines [][]string, h float64, fill string) {
	pdf := pw.pdf
	if fill == "FD" {
		pdf.SetFont(pw.family, "B", bodySize-1)
		pdf.SetFillColor(230, 236, 245)
	}
	x, y := pageMargin, pdf.GetY()
	for i, w := range widths {
		pdf.Rect(x, y, w, h, fill)
		pdf.SetXY(x+cellPadding, y+cellPadding)
		pdf.MultiCell(w-2*cellPadding, lineHeight, strings.Join(lines[i], "\n"), "", "L", false)
		x += w
	}
	pdf.SetXY(pageMargin, y+h)
}

// wrap breaks text into lines no wider than w in the current font. Words
// break at spaces; CJK characters may break anywhere; a word wider than w
// is cut.
func (pw *pdfWriter) wrap(text string, w float64) []string {
	var lines []string
	push := func(line string) {
		line = strings.TrimRight(line, " ")
		for pw.pdf.GetStringWidth(line) > w {
			cut := pw.fit(line, w)
			lines = append(lines, line[:cut])
			line = line[cut:]
		}
		lines = append(lines, line)
	}

	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, tok := range tokens(para) {
			candidate := line + tok
			if line == "" || pw.pdf.GetStringWidth(strings.TrimRight(candidate, " ")) <= w {
				line = candidate
				continue
			}
			push(line)
			line = strings.TrimLeft(tok, " ")
		}
		push(line)
	}
	return lines
}

// fit returns the byte length of the longest prefix of s that fits in w,
// always at least one rune.
func (pw *pdfWriter) fit(s string, w float64) int {
	end := 0
	for end < len(s) {
		_, size := utf8.DecodeRuneInString(s[end:])
		if end > 0 && pw.pdf.GetStringWidth(s[:end+size]) > w {
			break
		}
		end += size
	}
	return end
}

// tokens splits a line into words that keep their trailing spaces. Each CJK
// character is its own token.
func tokens(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		switch {
		case r == ' ':
			out = append(out, s[start:i+1])
			start = i + 1
		case r >= 0x2E80 && r != utf8.RuneError:
			if i > start {
				out = append(out, s[start:i])
			}
			size := utf8.RuneLen(r)
			out = append(out, s[i:i+size])
			start = i + size
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func (pw *pdfWriter) columnWidths(t *Table) []float64 {
	n := len(t.Header)
	if n == 0 {
		return nil
	}
	weights := make([]float64, n)
	for i, h := range t.Header {
		weights[i] = math.Max(float64(len([]rune(h))), 4)
	}
	for _, row := range t.Rows {
		for i := 0; i < n && i < len(row); i++ {
			// long cells wrap anyway, so cap their pull on the layout
			weights[i] = math.Max(weights[i], math.Min(float64(len([]rune(row[i]))), 60))
		}
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	floor := math.Min(18, pw.width/float64(n))
	widths := make([]float64, n)
	rest := pw.width - floor*float64(n)
	for i, w := range weights {
		widths[i] = floor + rest*w/total
	}
	return widths
}

// ensureSpace starts a new page when fewer than h millimetres remain. It
// reports whether it did.
func (pw *pdfWriter) ensureSpace(h float64) bool {
	_, pageH := pw.pdf.GetPageSize()
	if pw.pdf.GetY()+h > pageH-bottomMargin {
		pw.pdf.AddPage()
		return true
	}
	return false
}

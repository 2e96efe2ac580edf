package render

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sant0-9/surasura/internal/errors"
	"github.com/sant0-9/surasura/internal/pipeline"
	"github.com/sant0-9/surasura/internal/prompts"
	"github.com/sant0-9/surasura/internal/source"
)

func TestParseBodyTable(t *testing.T) {
	body, err := ParseBody("| A | B |\n|---|---|\n| x | y |")
	require.NoError(t, err)
	require.True(t, body.IsTable())
	assert.Equal(t, []string{"A", "B"}, body.Table.Header)
	assert.Equal(t, [][]string{{"x", "y"}}, body.Table.Rows)
	assert.Empty(t, body.Paragraphs)
	assert.Empty(t, body.Trailing)
}

func TestParseBody(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		header     []string
		rows       [][]string
		paragraphs []string
		trailing   []string
		malformed  bool
	}{
		{
			name:       "no pipe",
			raw:        "The flyer targets parents.\n\nThey must apply by March.",
			paragraphs: []string{"The flyer targets parents.", "They must apply by March."},
		},
		{
			name:       "pipe without separator",
			raw:        "a | b\nc | d",
			paragraphs: []string{"a | b", "c | d"},
		},
		{
			name:   "fenced",
			raw:    "```markdown\n| Step | Owner |\n| :--- | ---: |\n| Apply | Parent |\n```",
			header: []string{"Step", "Owner"},
			rows:   [][]string{{"Apply", "Parent"}},
		},
		{
			name:   "escaped pipe stays in the cell",
			raw:    "| Rule | Note |\n|---|---|\n| a \\| b | c |",
			header: []string{"Rule", "Note"},
			rows:   [][]string{{"a | b", "c"}},
		},
		{
			name:   "no outer pipes",
			raw:    "Rank | Idea\n--- | ---\n1 | Shorter form",
			header: []string{"Rank", "Idea"},
			rows:   [][]string{{"1", "Shorter form"}},
		},
		{
			name:     "trailing text",
			raw:      "| A | B |\n|---|---|\n| x | y |\n\nOverall the form is clear.\nDeadline is hidden.",
			header:   []string{"A", "B"},
			rows:     [][]string{{"x", "y"}},
			trailing: []string{"Overall the form is clear.", "Deadline is hidden."},
		},
		{
			name:       "ragged row",
			raw:        "| A | B |\n|---|---|\n| x | y | z |",
			paragraphs: []string{"| A | B |", "|---|---|", "| x | y | z |"},
			malformed:  true,
		},
		{
			name: "blank",
			raw:  "  \n\n ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := ParseBody(tt.raw)
			if tt.malformed {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrMalformedOutput))
				assert.False(t, body.IsTable())
			} else {
				require.NoError(t, err)
			}

			if tt.header != nil {
				require.True(t, body.IsTable())
				assert.Equal(t, tt.header, body.Table.Header)
				assert.Equal(t, tt.rows, body.Table.Rows)
			} else {
				assert.False(t, body.IsTable())
			}
			assert.Equal(t, tt.paragraphs, body.Paragraphs)
			assert.Equal(t, tt.trailing, body.Trailing)
		})
	}
}

func testRuns(t *testing.T) (*pipeline.Run, *pipeline.Run) {
	t.Helper()
	doc, err := source.New("childcare-flyer.pdf", source.KindPDF, "Apply for the childcare subsidy.")
	require.NoError(t, err)

	original := &pipeline.Run{
		ID:          "run-1",
		TemplateSet: "sludge",
		Document:    doc,
		Results: []pipeline.StageResult{
			{StageID: "target_audience", Title: "Audience", Output: "| Group | Detail |\n|---|---|\n| Parents | under 40 |"},
			{StageID: "target_action", Title: "Action", Output: "Submit the form."},
			{StageID: "process_map", Title: "Process", Absent: true, Err: "completion failed: quota"},
			{StageID: "sludge_analysis", Title: "Friction", Output: "| A | B |\n|---|---|\n| 1 | 2 | 3 |"},
			{StageID: "improvements", Title: "Improvements", Output: "| Rank | Idea |\n|---|---|\n| 1 | Put the deadline first |"},
		},
	}
	revision := &pipeline.Run{
		ID:       "run-2",
		ParentID: "run-1",
		Document: doc,
		Comment:  "Most readers are over 70.",
		Results: []pipeline.StageResult{
			{StageID: "target_audience", Title: "Audience", Output: original.Results[0].Output, Reused: true},
			{StageID: "target_action", Title: "Action", Output: original.Results[1].Output, Reused: true},
			{StageID: "process_map", Title: "Process", Absent: true, Reused: true},
			{StageID: "sludge_analysis", Title: "Eyesight", Output: "Small print is the main barrier."},
			{StageID: "improvements", Title: "Largeprint", Output: "| Rank | Idea |\n|---|---|\n| 1 | Use 14pt text |"},
		},
	}
	return original, revision
}

func TestSections(t *testing.T) {
	original, revision := testRuns(t)

	secs := Sections(original)
	require.Len(t, secs, 5)
	assert.True(t, secs[0].Body.IsTable())
	assert.Equal(t, []string{"Submit the form."}, secs[1].Body.Paragraphs)

	absent := secs[2]
	assert.True(t, absent.Absent)
	assert.Equal(t, prompts.Unavailable, absent.Body.Paragraphs[0])
	assert.Contains(t, absent.Body.Paragraphs[1], "quota")

	malformed := secs[3]
	assert.True(t, malformed.Malformed)
	assert.False(t, malformed.Body.IsTable())
	assert.NotEmpty(t, malformed.Body.Paragraphs)

	revised := Sections(revision)
	require.Len(t, revised, 2, "reused results are not repeated")
	assert.Equal(t, "sludge_analysis", revised[0].StageID)
	assert.Equal(t, "improvements", revised[1].StageID)

	assert.Nil(t, Sections(nil))
}

func TestSectionTitleFallsBackToStageID(t *testing.T) {
	secs := Sections(&pipeline.Run{Results: []pipeline.StageResult{{StageID: "process_ideas", Output: "x"}}})
	require.Len(t, secs, 1)
	assert.Equal(t, "process_ideas", secs[0].Title)
}

func TestNewReport(t *testing.T) {
	original, revision := testRuns(t)
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	r := NewReport(original, nil, Meta{GeneratedAt: at})
	assert.Equal(t, "Surasura Diagnosis", r.Title)
	assert.Equal(t, "childcare-flyer.pdf", r.Source)
	assert.Equal(t, "sludge", r.TemplateSet)
	assert.Nil(t, r.Revision)
	assert.Equal(t, []string{"Audience", "Action", "Process", "Friction", "Improvements"}, r.Titles())

	r = NewReport(original, revision, Meta{Title: "City flyer", GeneratedAt: at})
	assert.Equal(t, "City flyer", r.Title)
	require.NotNil(t, r.Revision)
	assert.Equal(t, "Most readers are over 70.", r.Revision.Comment)
	assert.Equal(t, []string{"Audience", "Action", "Process", "Friction", "Improvements", "Eyesight", "Largeprint"}, r.Titles())
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 5, 0, time.UTC)
	tests := []struct {
		source string
		want   string
	}{
		{"flyer.pdf", "surasura_flyer_20260301-093005.pdf"},
		{"/tmp/docs/Child Care Form.pdf", "surasura_child-care-form_20260301-093005.pdf"},
		{`C:\docs\notice.pdf`, "surasura_notice_20260301-093005.pdf"},
		{"https://city.example.jp/info/subsidy.html", "surasura_subsidy_20260301-093005.pdf"},
		{"https://city.example.jp/", "surasura_city-example-jp_20260301-093005.pdf"},
		{"", "surasura_document_20260301-093005.pdf"},
		{"保育.pdf", "surasura_保育_20260301-093005.pdf"},
		{"/home/city/児童手当 申請.pdf", "surasura_児童手当-申請_20260301-093005.pdf"},
		{"「お知らせ」.pdf", "surasura_お知らせ_20260301-093005.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename("surasura", tt.source, at, "pdf"))
		})
	}
	assert.Equal(t, "report_flyer_20260301-093005.md", Filename("", "flyer.pdf", at, ".md"))
}

func TestMarkdownTitlesRoundTrip(t *testing.T) {
	original, revision := testRuns(t)
	r := NewReport(original, revision, Meta{Footer: "# made with surasura", GeneratedAt: time.Now()})

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, r))
	md := buf.String()

	titles, err := ParseMarkdownTitles(strings.NewReader(md))
	require.NoError(t, err)
	assert.Equal(t, r.Titles(), titles)

	assert.Contains(t, md, "# Surasura Diagnosis\n")
	assert.Contains(t, md, "| Parents | under 40 |")
	assert.Contains(t, md, "# Revised analysis\n\n> Most readers are over 70.\n")
	assert.Contains(t, md, `\# made with surasura`)
	assert.Contains(t, md, prompts.Unavailable)
}

func TestMarkdownEscapesCellPipes(t *testing.T) {
	r := &Report{
		Title: "t",
		Sections: []Section{{
			Title: "Rules",
			Body:  Body{Table: &Table{Header: []string{"Rule", "Note"}, Rows: [][]string{{"a | b", "c"}}}},
		}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, r))
	assert.Contains(t, buf.String(), `| a \| b | c |`)

	// and the escaped row parses back into the same cells
	idx := strings.Index(buf.String(), "| Rule")
	body, err := ParseBody(buf.String()[idx:])
	require.NoError(t, err)
	require.True(t, body.IsTable())
	assert.Equal(t, [][]string{{"a | b", "c"}}, body.Table.Rows)
}

func TestPDFTitlesInOrder(t *testing.T) {
	original, revision := testRuns(t)
	r := NewReport(original, revision, Meta{Footer: "surasura", GeneratedAt: time.Now()})

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, r, PDFOptions{}))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	doc, err := source.NewPDFExtractor(0).ExtractBytes(context.Background(), "report.pdf", buf.Bytes())
	require.NoError(t, err)
	text := strings.Join(strings.Fields(doc.Text), "")

	pos := -1
	for _, title := range r.Titles() {
		idx := strings.Index(text[pos+1:], title)
		require.GreaterOrEqual(t, idx, 0, "title %q missing after offset %d", title, pos)
		pos += 1 + idx
	}
	assert.Contains(t, text, "Revisedanalysis")
}

func TestNeedsFont(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"ascii", "Apply by March 31", false},
		{"cp1252 accents", "Café menu €5", false},
		{"japanese", "児童手当の申請", true},
		{"unavailable marker", prompts.Unavailable, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Report{Title: "Report", Sections: []Section{{Title: "S", Body: Body{Table: &Table{
				Header: []string{"Step"}, Rows: [][]string{{tt.text}},
			}}}}}
			assert.Equal(t, tt.want, NeedsFont(r))
		})
	}

	r := &Report{Title: "Report", Revision: &Revision{Comment: "高齢者が多い"}}
	assert.True(t, NeedsFont(r))
}

func TestPDFWarnsWithoutFontForJapanese(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core).Sugar()

	r := &Report{Title: "児童手当のお知らせ", GeneratedAt: time.Now(),
		Sections: []Section{{Title: "Audience", Body: Body{Paragraphs: []string{"Parents"}}}}}
	require.NoError(t, WritePDF(&bytes.Buffer{}, r, PDFOptions{Logger: logger}))
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "report.font_path")

	r.Title = "Child allowance"
	require.NoError(t, WritePDF(&bytes.Buffer{}, r, PDFOptions{Logger: logger}))
	assert.Equal(t, 1, logs.Len())
}

func TestPDFWrapsLongTables(t *testing.T) {
	long := strings.Repeat("a very long reason why this step is hard ", 12)
	rows := make([][]string, 40)
	for i := range rows {
		rows[i] = []string{"Step", long, "Highlyunbreakablewordthatiswiderthanthecolumnitisplacedinforsure"}
	}
	r := &Report{
		Title:       "Long",
		GeneratedAt: time.Now(),
		Sections: []Section{{
			Title: "Friction",
			Body:  Body{Table: &Table{Header: []string{"Step", "Reason", "Word"}, Rows: rows}},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, r, PDFOptions{}))

	doc, err := source.NewPDFExtractor(0).ExtractBytes(context.Background(), "long.pdf", buf.Bytes())
	require.NoError(t, err)
	assert.Greater(t, doc.Metadata.PageCount, 1)
}

func TestPDFMissingFont(t *testing.T) {
	r := &Report{Title: "t", GeneratedAt: time.Now()}
	err := WritePDF(&bytes.Buffer{}, r, PDFOptions{FontPath: "/nonexistent/font.ttf"})
	require.Error(t, err)
}

func TestTerminal(t *testing.T) {
	original, _ := testRuns(t)
	out := Terminal(Sections(original), 100)

	for _, title := range []string{"Audience", "Action", "Process", "Friction", "Improvements"} {
		assert.Contains(t, out, title)
	}
	assert.Contains(t, out, "Parents")
	assert.Contains(t, out, "Put the deadline first")
	assert.Contains(t, out, prompts.Unavailable)
	assert.Contains(t, out, "could not be parsed")
}

func TestSave(t *testing.T) {
	original, revision := testRuns(t)
	at := time.Date(2026, 3, 1, 9, 30, 5, 0, time.UTC)
	r := NewReport(original, revision, Meta{GeneratedAt: at})
	dir := filepath.Join(t.TempDir(), "reports")

	path, err := Save(dir, r, "md", PDFOptions{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "surasura_childcare-flyer_20260301-093005.md"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	titles, err := ParseMarkdownTitles(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, r.Titles(), titles)

	path, err = Save(dir, r, ".PDF", PDFOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".pdf"))

	_, err = Save(dir, r, "docx", PDFOptions{})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

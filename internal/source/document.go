package source

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sant0-9/surasura/internal/errors"
)

// Kind tells where a document's text came from.
type Kind string

const (
	KindPDF Kind = "pdf"
	KindURL Kind = "url"
)

// Document is the extracted text of one submission. It is immutable once
// built; every pipeline stage reads the same Text.
type Document struct {
	Text     string
	Name     string // filename or URL
	Kind     Kind
	Metadata Metadata
}

// Metadata contains document metadata
type Metadata struct {
	Title         string    `json:"title"`
	SourcePath    string    `json:"source_path"`
	SourceFormat  string    `json:"source_format"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	PageCount     int       `json:"page_count,omitempty"`
	WordCount     int       `json:"word_count"`
	CharCount     int       `json:"char_count"`
	ExtractedAt   time.Time `json:"extracted_at"`
}

// New builds a Document, refusing whitespace-only text.
func New(name string, kind Kind, text string) (*Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Wrapf(errors.ErrEmptyDocument, "%s", name)
	}
	return &Document{
		Text: text,
		Name: name,
		Kind: kind,
		Metadata: Metadata{
			Title:        firstLine(text, 80),
			SourcePath:   name,
			SourceFormat: string(kind),
			WordCount:    len(strings.Fields(text)),
			CharCount:    utf8.RuneCountInString(text),
			ExtractedAt:  time.Now(),
		},
	}, nil
}

// FileSizeHuman returns human-readable file size
func (m Metadata) FileSizeHuman() string {
	bytes := m.FileSizeBytes
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	}
	if bytes < 1024*1024 {
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	}
	return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
}

// Summary is a one-line description for status bars and logs.
func (d *Document) Summary() string {
	parts := []string{string(d.Kind)}
	if d.Metadata.PageCount > 0 {
		parts = append(parts, fmt.Sprintf("%d pages", d.Metadata.PageCount))
	}
	if d.Metadata.FileSizeBytes > 0 {
		parts = append(parts, d.Metadata.FileSizeHuman())
	}
	parts = append(parts, fmt.Sprintf("%d chars", d.Metadata.CharCount))
	return strings.Join(parts, " · ")
}

func firstLine(text string, maxRunes int) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxRunes {
			r := []rune(line)
			return string(r[:maxRunes-3]) + "..."
		}
		return line
	}
	return ""
}

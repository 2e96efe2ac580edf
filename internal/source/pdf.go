package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/sant0-9/surasura/internal/errors"
)

// PDFExtractor reads the text layer of PDF files. Scanned PDFs without a
// text layer come back as ErrEmptyDocument.
type PDFExtractor struct {
	maxBytes int64
}

func NewPDFExtractor(maxBytes int64) *PDFExtractor {
	if maxBytes <= 0 {
		maxBytes = 20 * 1024 * 1024
	}
	return &PDFExtractor{maxBytes: maxBytes}
}

// Extract reads the PDF at path.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "open %s", path), errors.ErrUnreadableSource)
	}
	if info.Size() > e.maxBytes {
		return nil, errors.Mark(
			errors.Newf("%s is %d bytes (max %d)", path, info.Size(), e.maxBytes),
			errors.ErrUnreadableSource)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read %s", path), errors.ErrUnreadableSource)
	}
	return e.ExtractBytes(ctx, filepath.Base(path), data)
}

// ExtractBytes reads an in-memory PDF, such as an upload.
func (e *PDFExtractor) ExtractBytes(ctx context.Context, name string, data []byte) (*Document, error) {
	if int64(len(data)) > e.maxBytes {
		return nil, errors.Mark(
			errors.Newf("%s is %d bytes (max %d)", name, len(data), e.maxBytes),
			errors.ErrUnreadableSource)
	}

	pages, err := pageTexts(ctx, data)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "parse %s", name), errors.ErrUnreadableSource)
	}

	text := strings.Join(pages, "\n")
	doc, err := New(name, KindPDF, text)
	if err != nil {
		return nil, errors.WithHint(err, "the PDF may be a scan without a text layer")
	}
	doc.Metadata.PageCount = len(pages)
	doc.Metadata.FileSizeBytes = int64(len(data))
	return doc, nil
}

// pageTexts returns the plain text of every page in order. Pages without a
// content stream yield "".
func pageTexts(ctx context.Context, data []byte) (pages []string, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, errors.Wrapf(err, "page %d", i)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

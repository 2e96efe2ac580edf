// Package source turns a submitted PDF file or web page into plain text.
package source

import (
	"context"
	"strings"
	"time"

	"github.com/sant0-9/surasura/internal/config"
)

// Extractor produces a Document from a reference (a path or a URL).
type Extractor interface {
	Extract(ctx context.Context, ref string) (*Document, error)
}

// Auto routes http(s) references to the URL extractor and everything else
// to the PDF extractor.
type Auto struct {
	PDF *PDFExtractor
	URL *URLExtractor
}

// NewAuto builds both extractors from the source config section.
func NewAuto(cfg config.SourceConfig) *Auto {
	pdf := NewPDFExtractor(cfg.MaxPDFBytes)
	return &Auto{
		PDF: pdf,
		URL: NewURLExtractor(time.Duration(cfg.FetchTimeoutSeconds)*time.Second, pdf),
	}
}

func (a *Auto) Extract(ctx context.Context, ref string) (*Document, error) {
	if IsURL(ref) {
		return a.URL.Extract(ctx, ref)
	}
	return a.PDF.Extract(ctx, ref)
}

// IsURL reports whether ref looks like a web address.
func IsURL(ref string) bool {
	lower := strings.ToLower(strings.TrimSpace(ref))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

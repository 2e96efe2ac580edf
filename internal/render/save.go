package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/sant0-9/surasura/internal/errors"
)

// Formats lists the report formats Save accepts.
var Formats = []string{"pdf", "md"}

// Save writes r into dir as "pdf" or "md" under a Filename-style name and
// returns the path. The file is only created once rendering succeeded.
func Save(dir string, r *Report, format string, opts PDFOptions) (string, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))

	var buf bytes.Buffer
	switch format {
	case "pdf":
		if err := WritePDF(&buf, r, opts); err != nil {
			return "", err
		}
	case "md", "markdown":
		format = "md"
		if err := WriteMarkdown(&buf, r); err != nil {
			return "", err
		}
	default:
		return "", errors.Mark(errors.Newf("unknown report format %q (use pdf or md)", format), errors.ErrInvalidRequest)
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", dir)
	}
	path := filepath.Join(dir, Filename("surasura", r.Source, r.GeneratedAt, format))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}

package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/sant0-9/surasura/internal/errors"
)

const (
	maxRedirects  = 5
	maxPageBytes  = 10 * 1024 * 1024
	userAgent     = "surasura/1.0 (+https://github.com/sant0-9/surasura)"
	blockElements = "p, div, li, ul, ol, h1, h2, h3, h4, h5, h6, tr, table, section, article, header, footer, main, nav, aside, blockquote, pre, dt, dd, figcaption"
)

var spaceRun = regexp.MustCompile(`[ \t\f\r\v\x{00a0}\x{3000}]+`)

// URLExtractor fetches a web page and keeps its visible text. Scripts,
// styles and the document head are discarded. A URL that serves a PDF is
// handed to the PDF extractor.
type URLExtractor struct {
	client    *http.Client
	pdf       *PDFExtractor
	pageLimit int64
}

func NewURLExtractor(timeout time.Duration, pdf *PDFExtractor) *URLExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if pdf == nil {
		pdf = NewPDFExtractor(0)
	}
	return &URLExtractor{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return checkScheme(req.URL)
			},
		},
		pdf:       pdf,
		pageLimit: maxPageBytes,
	}
}

// Extract downloads rawURL and returns its visible text.
func (e *URLExtractor) Extract(ctx context.Context, rawURL string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "parse url %q", rawURL), errors.ErrUnreadableSource)
	}
	if err := checkScheme(u); err != nil {
		return nil, errors.Mark(err, errors.ErrUnreadableSource)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "build request"), errors.ErrUnreadableSource)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,text/plain;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "fetch %s", rawURL), errors.ErrUnreadableSource)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Mark(
			errors.Newf("fetch %s: status %d", rawURL, resp.StatusCode),
			errors.ErrUnreadableSource)
	}

	// PDFs may be larger than pages; read up to the bigger cap plus one byte
	limit := max(e.pageLimit, e.pdf.maxBytes)
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read %s", rawURL), errors.ErrUnreadableSource)
	}
	if int64(len(body)) > limit {
		return nil, tooLarge(rawURL, limit)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/pdf" {
		doc, err := e.pdf.ExtractBytes(ctx, rawURL, body)
		if err != nil {
			return nil, err
		}
		doc.Name = rawURL
		return doc, nil
	}
	if int64(len(body)) > e.pageLimit {
		return nil, tooLarge(rawURL, e.pageLimit)
	}

	page, err := decode(body, contentType)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "decode %s", rawURL), errors.ErrUnreadableSource)
	}
	if mediaType == "text/plain" {
		return e.build(rawURL, "", normalize(page), len(body))
	}

	title, text, err := visibleText(page)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "parse %s", rawURL), errors.ErrUnreadableSource)
	}
	return e.build(rawURL, title, text, len(body))
}

func (e *URLExtractor) build(rawURL, title, text string, size int) (*Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Mark(
			errors.Newf("%s has no visible text", rawURL),
			errors.ErrUnreadableSource)
	}
	doc, err := New(rawURL, KindURL, text)
	if err != nil {
		return nil, err
	}
	if title != "" {
		doc.Metadata.Title = title
	}
	doc.Metadata.FileSizeBytes = int64(size)
	return doc, nil
}

// decode converts body to UTF-8 using the Content-Type charset, a <meta>
// declaration or a sniffed encoding, in that order.
func decode(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func tooLarge(rawURL string, limit int64) error {
	return errors.Mark(
		errors.Newf("%s is larger than %d bytes", rawURL, limit),
		errors.ErrUnreadableSource)
}

// visibleText returns the page title and the text a reader would see, one
// block element per line.
func visibleText(page string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", "", err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, noscript, template, head, svg, iframe").Remove()
	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithNodes(textNode("\n"))
	})
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendNodes(textNode("\n"))
	})
	doc.Find("td, th").Each(func(_ int, s *goquery.Selection) {
		s.AppendNodes(textNode(" "))
	})

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	return title, normalize(root.Text()), nil
}

func textNode(data string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: data}
}

// normalize collapses runs of horizontal space and drops blank lines.
func normalize(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func checkScheme(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Newf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.Newf("url %q has no host", u.String())
	}
	return nil
}

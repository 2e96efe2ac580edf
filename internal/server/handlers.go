package server

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/gofiber/fiber/v2"

	"github.com/sant0-9/surasura/internal/errors"
	"github.com/sant0-9/surasura/internal/pipeline"
	"github.com/sant0-9/surasura/internal/render"
	"github.com/sant0-9/surasura/internal/source"
)

const toolName = "surasura"

type createRunRequest struct {
	URL string `json:"url" form:"url" validate:"required,url,startswith=http"`
}

type revisionRequest struct {
	Comment string `json:"comment" form:"comment" validate:"max=8000"`
}

type stageResponse struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Inputs         []string `json:"inputs"`
	AcceptsComment bool     `json:"accepts_comment"`
}

type revisionResponse struct {
	ID        string           `json:"id"`
	Comment   string           `json:"comment"`
	CreatedAt time.Time        `json:"created_at"`
	Sections  []render.Section `json:"sections"`
}

type runResponse struct {
	ID          string            `json:"id"`
	Source      string            `json:"source"`
	TemplateSet string            `json:"template_set"`
	State       string            `json:"state"`
	CreatedAt   time.Time         `json:"created_at"`
	Failed      int               `json:"failed_stages"`
	Sections    []render.Section  `json:"sections"`
	Revision    *revisionResponse `json:"revision,omitempty"`
}

func newRunResponse(sess *pipeline.Session) runResponse {
	original := sess.Original()
	resp := runResponse{
		ID:          original.ID,
		Source:      original.SourceName(),
		TemplateSet: original.TemplateSet,
		State:       sess.State().String(),
		CreatedAt:   original.CreatedAt,
		Failed:      len(original.Failed()),
		Sections:    render.Sections(original),
	}
	if rev := sess.Revision(); rev != nil {
		resp.Revision = &revisionResponse{
			ID:        rev.ID,
			Comment:   rev.Comment,
			CreatedAt: rev.CreatedAt,
			Sections:  render.Sections(rev),
		}
	}
	return resp
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "runs": s.store.Len()})
}

func (s *Server) stages(c *fiber.Ctx) error {
	reg := s.pipeline.Registry()
	var out []stageResponse
	for _, st := range reg.Stages() {
		out = append(out, stageResponse{
			ID:             st.ID,
			Title:          st.Title,
			Description:    st.Description,
			Inputs:         append([]string{}, st.Inputs...),
			AcceptsComment: st.AcceptsComment,
		})
	}
	return c.JSON(fiber.Map{"template_set": reg.Set(), "stages": out})
}

// createRun accepts a multipart "file" holding a PDF, or a "url" given as a
// form field or JSON. It runs the whole chain before answering.
func (s *Server) createRun(c *fiber.Ctx) error {
	doc, err := s.document(c)
	if err != nil {
		return err
	}

	sess := pipeline.NewSession(s.pipeline)
	if _, err := sess.Analyze(c.UserContext(), doc); err != nil {
		return err
	}
	id, err := s.store.Save(sess)
	if err != nil {
		return err
	}
	s.logger.Infow("Run stored", "id", id, "source", doc.Name, "failed", len(sess.Original().Failed()))

	return c.Status(fiber.StatusCreated).JSON(newRunResponse(sess))
}

func (s *Server) document(c *fiber.Ctx) (*source.Document, error) {
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "open upload"), errors.ErrInvalidRequest)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "read upload"), errors.ErrInvalidRequest)
		}
		return s.sources.PDF.ExtractBytes(c.UserContext(), fh.Filename, data)
	}

	var req createRunRequest
	if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return nil, errors.Mark(errors.Wrap(err, "parse body"), errors.ErrInvalidRequest)
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return nil, errors.Mark(errors.New("send a PDF as multipart field \"file\" or a \"url\""), errors.ErrInvalidRequest)
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.sources.URL.Extract(c.UserContext(), req.URL)
}

func (s *Server) session(c *fiber.Ctx) (*pipeline.Session, error) {
	return s.store.Get(c.Params("id"))
}

func (s *Server) showRun(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	return c.JSON(newRunResponse(sess))
}

func (s *Server) createRevision(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	var req revisionRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.Mark(errors.Wrap(err, "parse body"), errors.ErrInvalidRequest)
	}
	if err := validateRequest(req); err != nil {
		return err
	}

	rev, err := sess.Revise(c.UserContext(), req.Comment)
	if err != nil {
		return err
	}
	s.logger.Infow("Revision stored", "id", rev.ParentID, "revision", rev.ID)

	return c.Status(fiber.StatusCreated).JSON(revisionResponse{
		ID:        rev.ID,
		Comment:   rev.Comment,
		CreatedAt: rev.CreatedAt,
		Sections:  render.Sections(rev),
	})
}

func (s *Server) report(sess *pipeline.Session) *render.Report {
	return render.NewReport(sess.Original(), sess.Revision(), render.Meta{
		Title:  s.cfg.Report.Title,
		Footer: s.cfg.Report.Footer,
	})
}

func (s *Server) reportPDF(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	r := s.report(sess)
	var buf bytes.Buffer
	if err := render.WritePDF(&buf, r, render.PDFOptions{FontPath: s.cfg.Report.FontPath, Logger: s.logger}); err != nil {
		return err
	}
	return sendFile(c, render.Filename(toolName, r.Source, r.GeneratedAt, "pdf"), "application/pdf", buf.Bytes())
}

func (s *Server) reportMarkdown(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	r := s.report(sess)
	var buf bytes.Buffer
	if err := render.WriteMarkdown(&buf, r); err != nil {
		return err
	}
	return sendFile(c, render.Filename(toolName, r.Source, r.GeneratedAt, "md"), "text/markdown; charset=utf-8", buf.Bytes())
}

// contentDisposition sends an ASCII filename plus the RFC 6266 UTF-8 form
// for names with Japanese or other non-ASCII letters.
func contentDisposition(name string) string {
	ascii := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	if ascii == name {
		return fmt.Sprintf("attachment; filename=%q", name)
	}
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", ascii, url.PathEscape(name))
}

func sendFile(c *fiber.Ctx, name, contentType string, data []byte) error {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, contentDisposition(name))
	return c.Send(data)
}

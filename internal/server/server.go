// Package server exposes the analysis over HTTP: upload a PDF or submit a
// URL, read the sections, post a reviewer comment and download reports.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/sant0-9/surasura/internal/config"
	"github.com/sant0-9/surasura/internal/logging"
	"github.com/sant0-9/surasura/internal/pipeline"
	"github.com/sant0-9/surasura/internal/session"
	"github.com/sant0-9/surasura/internal/source"
)

type Server struct {
	app      *fiber.App
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	sources  *source.Auto
	store    *session.Store
	logger   *zap.SugaredLogger
}

// New wires the routes. The pipeline is shared by every request; each
// submission gets its own session in the store.
func New(cfg *config.Config, p *pipeline.Pipeline, sources *source.Auto, logger *zap.SugaredLogger) *Server {
	logger = logging.OrNop(logger)
	s := &Server{
		cfg:      cfg,
		pipeline: p,
		sources:  sources,
		store:    session.NewStore(time.Duration(cfg.Server.RunTTLMinutes) * time.Minute),
		logger:   logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "surasura",
		BodyLimit:             cfg.Server.BodyLimitMB * 1024 * 1024,
		ErrorHandler:          errorHandler(logger),
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())
	s.app.Use(requestLogger(logger))

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", s.health)

	api := s.app.Group("/api")
	api.Get("/stages", s.stages)
	api.Post("/runs", s.createRun)
	api.Get("/runs/:id", s.showRun)
	api.Post("/runs/:id/revisions", s.createRevision)
	api.Get("/runs/:id/report.pdf", s.reportPDF)
	api.Get("/runs/:id/report.md", s.reportMarkdown)
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Store() *session.Store {
	return s.store
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("Server listening", "addr", s.cfg.Server.Addr)
		errCh <- s.app.Listen(s.cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Infow("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.app.ShutdownWithContext(shutdownCtx)
	}
}

func requestLogger(logger *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status = statusFor(err)
		}
		logger.Infow("Request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(start),
		)
		return err
	}
}

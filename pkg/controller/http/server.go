// Package http serves the research orchestrator over a JSON REST API.
package http

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/memory"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/usecase/research"
	"github.com/m-mizutani/marten/pkg/utils/logging"
)

// SessionHeader carries the session id when the request body does not
const SessionHeader = "X-Session-ID"

// UseCase is the orchestrator surface used by the server
type UseCase interface {
	AnalyzeQuery(ctx context.Context, id model.SessionID, query string) *research.Result
	ClearMemory(id model.SessionID)
	MemoryStatus(id model.SessionID) memory.Status
	Sources() map[string]bool
}

// Server wires HTTP routes to the orchestrator. A nil use case puts the
// server in demo mode.
type Server struct {
	app      *fiber.App
	uc       UseCase
	validate *validator.Validate
	origins  string
	now      func() time.Time
}

type Option func(*Server)

// WithAllowOrigins sets the CORS allowed origins, "*" by default
func WithAllowOrigins(origins string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithClock replaces the clock used for response timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New builds the fiber app. uc may be nil.
func New(uc UseCase, opts ...Option) *Server {
	s := &Server{
		uc:       uc,
		validate: validator.New(),
		origins:  "*",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "marten",
		BodyLimit:             1 * 1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: s.origins,
		AllowHeaders: "Origin, Content-Type, Accept, " + SessionHeader,
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(requestLogger)

	app.Get("/status", s.getStatus)
	app.Post("/analyze", s.postAnalyze)
	app.Post("/clear-memory", s.postClearMemory)
	app.Get("/memory-status", s.getMemoryStatus)

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on addr until ctx is canceled
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logging.From(ctx).Info("starting HTTP server", "addr", addr, "demo_mode", s.uc == nil)
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return goerr.Wrap(err, "failed to listen", goerr.V("addr", addr))
		}
		return nil
	case <-ctx.Done():
		logging.From(ctx).Info("shutting down HTTP server")
		if err := s.app.ShutdownWithTimeout(10 * time.Second); err != nil {
			return goerr.Wrap(err, "failed to shutdown server")
		}
		return nil
	}
}

func requestLogger(c *fiber.Ctx) error {
	logger := logging.Default().With("request_id", uuid.NewString())
	c.SetUserContext(logging.With(c.UserContext(), logger))

	start := time.Now()
	err := c.Next()
	logger.Info("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		logging.From(c.UserContext()).Error("request failed", "error", err, "path", c.Path())
	}
	return c.Status(code).JSON(errorResponse{Error: err.Error()})
}

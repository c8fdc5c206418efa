// Package mockserver is the REST backend the post client talks to: a
// json-server lookalike with configurable latency and injected failures.
package mockserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/reoring/postq/internal/store"
	"github.com/reoring/postq/posts"
)

// Server serves the posts collection out of a store.Store.
type Server struct {
	e        *echo.Echo
	store    store.Store
	log      *zap.Logger
	delay    time.Duration
	failures *FailureInjector
	validate bool
	schemas  posts.Schemas
	newID    func() string
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithDelay delays every response by d.
func WithDelay(d time.Duration) Option { return func(s *Server) { s.delay = d } }

// WithFailures installs the failure policy. The default never fails.
func WithFailures(f *FailureInjector) Option {
	return func(s *Server) {
		if f != nil {
			s.failures = f
		}
	}
}

// WithRequestValidation rejects writes whose body does not match the post
// schemas.
func WithRequestValidation(strictTitles bool) Option {
	return func(s *Server) {
		s.validate = true
		s.schemas = posts.NewSchemas(strictTitles)
	}
}

// WithClock replaces time.Now for creation stamps.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// WithIDGenerator replaces uuid.NewString for posts created without an id.
func WithIDGenerator(fn func() string) Option { return func(s *Server) { s.newID = fn } }

// New builds the server and its routes.
func New(st store.Store, opts ...Option) *Server {
	s := &Server{
		store:    st,
		log:      zap.NewNop(),
		failures: NeverFail(),
		schemas:  posts.NewSchemas(false),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.HTTPErrorHandler = s.handleError

	e.Use(requestLogger(s.log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(latency(s.delay))
	e.Use(decodeBody)
	e.Use(injectFailures(s.failures, s.log))

	var create, update []echo.MiddlewareFunc
	if s.validate {
		create = append(create, ValidateJSON(s.schemas.Draft))
		update = append(update, ValidateJSON(s.schemas.Patch))
	}

	e.GET("/healthz", s.health)
	e.GET("/_schema/posts", s.schema)
	g := e.Group("/posts")
	g.GET("", s.list)
	g.POST("", s.create, create...)
	g.GET("/:id", s.get)
	g.PUT("/:id", s.update, update...)
	g.PATCH("/:id", s.update, update...)
	g.DELETE("/:id", s.remove)

	s.e = e
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.e }

// Start listens on addr until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("mock server listening", zap.String("addr", addr), zap.Duration("delay", s.delay))
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

// handleError renders every error as {"error": msg}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	} else if !errors.Is(err, context.Canceled) {
		s.log.Error("handler failed", zap.String("path", c.Request().URL.Path), zap.Error(err))
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"error": msg})
	}
	if err != nil {
		s.log.Debug("write error response", zap.Error(err))
	}
}

// storeError maps store sentinels onto HTTP errors.
func storeError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, http.StatusText(http.StatusNotFound)).SetInternal(err)
	case errors.Is(err, store.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "Insert failed, duplicate id").SetInternal(err)
	default:
		return err
	}
}

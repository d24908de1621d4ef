// Package server exposes the query compiler and executor over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aidanlsb/discourse/internal/blocks"
	"github.com/aidanlsb/discourse/internal/config"
	"github.com/aidanlsb/discourse/internal/factstore"
	"github.com/aidanlsb/discourse/internal/query"
)

// Appender writes compiled pages into the graph.
type Appender interface {
	Append(ctx context.Context, pages []factstore.Page) (factstore.TxReport, error)
}

// Server handles the discourse HTTP API.
type Server struct {
	executor *query.Executor
	blocks   *blocks.Compiler
	store    Appender
	saved    map[string]*config.SavedQuery

	logger   *zap.Logger
	metrics  *Metrics
	validate *validator.Validate
	origins  []string
	pageSize int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSavedQueries makes saved queries runnable by name.
func WithSavedQueries(q map[string]*config.SavedQuery) Option {
	return func(s *Server) { s.saved = q }
}

// WithAppender enables POST /api/blocks with write=true.
func WithAppender(a Appender) Option {
	return func(s *Server) { s.store = a }
}

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithPageSize sets the page size used when a request gives none.
func WithPageSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// New creates a server around an executor and an inverse compiler.
func New(exec *query.Executor, comp *blocks.Compiler, opts ...Option) *Server {
	s := &Server{
		executor: exec,
		blocks:   comp,
		logger:   zap.NewNop(),
		metrics:  NewMetrics(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		pageSize: config.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger, s.metrics))
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Post("/compile", s.handleCompile)
		r.Get("/translators", s.handleTranslators)
		r.Get("/queries", s.handleSavedQueries)
		r.Post("/blocks", s.handleBlocks)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// Package server exposes the DDL compiler over HTTP.
//
// Routes:
//
//	GET  /healthz  liveness check
//	POST /v1/ddl   template in the body (JSON, or YAML by Content-Type),
//	               script back as text/plain
//
// POST /v1/ddl accepts ?directory=NAME and ?strict=true to override the
// server defaults for one request. When a JWT secret is configured, /v1
// routes require an HS256 bearer token.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/rgddl/internal/errs"
	"github.com/koustreak/rgddl/internal/generate"
	"github.com/koustreak/rgddl/internal/logger"
	"github.com/koustreak/rgddl/internal/schema"
	"golang.org/x/sync/errgroup"
)

// Config controls the server.
type Config struct {
	Addr         string
	Directory    string
	Strict       bool
	MaxBodyBytes int64
	Logger       *logger.Logger

	// JWTSecret enables bearer authentication on /v1 when non-empty.
	JWTSecret string
}

// Server wraps http.Server with the compile routes.
type Server struct {
	cfg    Config
	log    *logger.Logger
	router chi.Router
	http   *http.Server
}

// New builds a Server. It does not start listening.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logger.Global()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 8 << 20
	}

	s := &Server{cfg: cfg, log: cfg.Logger}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.With().Str("addr", s.cfg.Addr).Bool("auth", s.cfg.JWTSecret != "").Logger().Info("rgddl server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errs.Wrap(errs.ErrKindConnectionFailed, "server stopped", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(errs.ErrKindTimeout, "graceful shutdown failed", err)
		}
		return nil
	})

	return g.Wait()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		if s.cfg.JWTSecret != "" {
			r.Use(s.requireToken)
		}
		r.Post("/ddl", s.handleDDL)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleDDL(w http.ResponseWriter, r *http.Request) {
	opts := generate.Options{
		Directory: s.cfg.Directory,
		Strict:    s.cfg.Strict,
		Logger:    logger.FromContext(r.Context()),
	}
	if dir := r.URL.Query().Get("directory"); dir != "" {
		opts.Directory = dir
	}
	if v := r.URL.Query().Get("strict"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, errs.Newf(errs.ErrKindInvalidInput, "strict: %q is not a boolean", v))
			return
		}
		opts.Strict = strict
	}

	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	tmpl, err := schema.Decode(body, formatOf(r))
	if err != nil {
		respondError(w, err)
		return
	}

	script, err := generate.New(nil, opts).Compile(tmpl)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Rgddl-Tables", strconv.Itoa(len(script.Tables)))
	w.Header().Set("X-Rgddl-Constraints", strconv.Itoa(len(script.Constraints)))
	w.Header().Set("X-Rgddl-Digest", script.Digest())
	w.WriteHeader(http.StatusOK)
	_, _ = script.WriteTo(w)
}

func formatOf(r *http.Request) schema.Format {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if strings.Contains(ct, "yaml") {
		return schema.FormatYAML
	}
	return schema.FormatJSON
}

// requestLogger attaches a request-scoped logger to the context and logs
// one line per request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(reqLog.WithContext(r.Context())))

		reqLog.InfoWith("request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

// statusOf maps an error kind to an HTTP status.
func statusOf(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	switch errs.KindOf(err) {
	case errs.ErrKindPermissionDenied:
		return http.StatusUnauthorized
	case errs.ErrKindInvalidInput, errs.ErrKindUsage:
		return http.StatusBadRequest
	case errs.ErrKindUnresolvedReference, errs.ErrKindCyclicReference:
		return http.StatusUnprocessableEntity
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

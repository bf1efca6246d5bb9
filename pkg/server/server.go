// Package server exposes a layer forest over HTTP.
//
// The API is read-only and backed by a [pipeline.Runner], so it shares the
// CLI's record cache and render cache:
//
//	GET /healthz                 build information
//	GET /heads                   every tree as nested JSON
//	GET /heads/{selector}        trees containing the selected layer
//	GET /layers/{selector}       one layer record, without children
//	GET /tree                    rendered output (?format, charset, image, ...)
//
// Boolean query parameters (intermediate, summary, detailed, refresh) accept
// the values understood by strconv.ParseBool. Untagged layers are pruned
// unless intermediate is true. Errors are returned as {"code","message"}
// with the status from [apperrors.HTTPStatus].
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/matzehuels/docktree/pkg/errors"
	"github.com/matzehuels/docktree/pkg/observability"
	"github.com/matzehuels/docktree/pkg/pipeline"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:8080"

// shutdownTimeout bounds how long in-flight requests may run after the
// serve context is cancelled.
const shutdownTimeout = 5 * time.Second

// Server serves the HTTP API for one runner.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
	router chi.Router
}

// New creates a server over runner. A nil logger selects log.Default().
func New(runner *pipeline.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{runner: runner, logger: logger}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Get("/heads", s.handleHeads)
	r.Get("/heads/*", s.handleHeadsFor)
	r.Get("/layers/*", s.handleLayer)
	r.Get("/tree", s.handleTree)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{
			Code:    apperrors.ErrCodeUnsupported,
			Message: r.Method + " not allowed on " + r.URL.Path,
		})
	})
	return r
}

// instrument logs each request and reports it to the server hooks, labelled
// with the matched route pattern rather than the raw path.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		observability.Server().OnRequest(r.Context(), r.Method, route, status, elapsed)
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

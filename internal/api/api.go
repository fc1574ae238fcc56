// Package api serves the matcher and scorer over HTTP so editors and bots
// can classify a diff without the CLI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sprite-ai/prsift/internal/apperr"
	"github.com/sprite-ai/prsift/internal/config"
	"github.com/sprite-ai/prsift/internal/logger"
	"github.com/sprite-ai/prsift/internal/scoring"
)

const maxBodyBytes = 10 << 20

// Options configures a Server.
type Options struct {
	Addr string
	Log  *slog.Logger
	// Configs and ProjectRoot supply the config used when a request does
	// not carry one. A nil store means defaults.
	Configs     *config.Store
	ProjectRoot string
	Weights     scoring.Weights
	Command     string
}

// Server is the prsift HTTP API server.
type Server struct {
	opts    Options
	log     *slog.Logger
	router  chi.Router
	metrics *metrics
	server  *http.Server
}

// New creates a server; call ListenAndServe to start it.
func New(opts Options) *Server {
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	if opts.Weights == (scoring.Weights{}) {
		opts.Weights = scoring.DefaultWeights()
	}
	if opts.Command == "" {
		opts.Command = "prsift"
	}

	s := &Server{
		opts:    opts,
		log:     opts.Log,
		metrics: newMetrics(prometheus.NewRegistry()),
	}
	s.router = s.routes()
	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.logRequest)
	r.Use(s.metrics.middleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	r.Route("/api", func(r chi.Router) {
		r.Get("/patterns", s.handlePatterns)
		r.Post("/match", s.handleMatch)
		r.Post("/score", s.handleScore)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("prsift API server listening", slog.String("addr", s.opts.Addr))
		errc <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down API server: %w", err)
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.log.Error("json encode error", slog.String("error", err.Error()))
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps classified errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok {
		s.log.Error("request failed",
			slog.String("request_id", getRequestID(r.Context())),
			slog.String("error", err.Error()))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch e.Code {
	case apperr.DiffParseError, apperr.AIParseError, apperr.ConfigInvalid:
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, errorResponse{Error: e.UserMessage(), Code: string(e.Code)})
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// readJSON decodes a JSON request body into v.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty request body")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

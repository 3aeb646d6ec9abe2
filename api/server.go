// Package api provides the HTTP REST API server for fxforward.
//
// It exposes the fixed pair list, the registered sources and forecast
// models, per-pair forward curves with forecasts, cache control and
// Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seenimoa/fxforward/internal/config"
	"github.com/seenimoa/fxforward/internal/forecast"
	"github.com/seenimoa/fxforward/internal/infra"
	"github.com/seenimoa/fxforward/internal/metrics"
	"github.com/seenimoa/fxforward/internal/pipeline"
	"github.com/seenimoa/fxforward/internal/source"
)

// Version is reported by /health; set at build time.
var Version = "dev"

// MaxHorizon bounds the horizon query parameter.
const MaxHorizon = 12

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	pipe    *pipeline.Pipeline
	metrics *metrics.Metrics
	log     *slog.Logger
	started time.Time
}

// NewServer creates a configured API server with all routes and middleware.
// m and logger may be nil.
func NewServer(cfg *config.Config, pipe *pipeline.Pipeline, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	srv := &Server{
		cfg:     cfg,
		pipe:    pipe,
		metrics: m,
		log:     logger.With(slog.String("component", "api")),
		started: time.Now(),
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and shuts it down gracefully on
// SIGINT/SIGTERM or when ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", slog.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	origins := []string{"*"}
	if s.cfg != nil && len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/pairs", s.handlePairs)
		r.Get("/sources", s.handleSources)
		r.Get("/models", s.handleModels)

		r.Get("/forward/{pair}", s.handleForward)
		r.Delete("/cache", s.handleInvalidate)

		r.Get("/config", s.handleGetConfig)
		r.Get("/config/headers", s.handleGetConfigHeaders)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ModelInfo describes one forecast model.
type ModelInfo struct {
	Name        forecast.Kind `json:"name"`
	Description string        `json:"description"`
	Default     bool          `json:"default"`
}

// CacheResponse reports what DELETE /api/v1/cache removed.
type CacheResponse struct {
	Removed int      `json:"removed"`
	Keys    []string `json:"keys,omitempty"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":        "ok",
			"version":       Version,
			"uptime":        time.Since(s.started).Round(time.Second).String(),
			"cached_series": s.pipe.Cache().Len(),
		},
	})
}

func (s *Server) handlePairs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: source.Pairs})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.pipe.Registry().List()})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	def := s.defaultModel()
	out := make([]ModelInfo, 0, len(forecast.Kinds))
	for _, k := range forecast.Kinds {
		out = append(out, ModelInfo{Name: k, Description: k.Describe(), Default: k == def})
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: out})
}

// handleForward runs the pipeline for one pair. Only malformed requests get
// a 4xx; extraction and forecast failures come back as a 200 whose data
// carries the status.
func (s *Server) handleForward(w http.ResponseWriter, r *http.Request) {
	pair, err := source.LookupPair(chi.URLParam(r, "pair"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	q := r.URL.Query()
	srcName := q.Get("source")
	if srcName != "" {
		src, err := s.pipe.Registry().Get(srcName)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		srcName = src.Name
	}

	model := s.defaultModel()
	if m := q.Get("model"); m != "" {
		if model, err = forecast.ParseKind(m); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	horizon := s.defaultHorizon()
	if h := q.Get("horizon"); h != "" {
		horizon, err = strconv.Atoi(h)
		if err != nil || horizon < 0 || horizon > MaxHorizon {
			writeError(w, http.StatusBadRequest, "horizon must be an integer between 0 and "+strconv.Itoa(MaxHorizon))
			return
		}
	}

	res := s.pipe.Run(r.Context(), pipeline.Request{
		Source:  srcName,
		Pair:    pair,
		Model:   model,
		Horizon: horizon,
	})
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

// handleInvalidate drops one cached series when source and pair are given,
// otherwise the whole cache.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if p := q.Get("pair"); p != "" {
		pair, err := source.LookupPair(p)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		src, err := s.pipe.Registry().Get(q.Get("source"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp := CacheResponse{}
		if s.pipe.Invalidate(src.Name, pair) {
			resp.Removed = 1
			resp.Keys = []string{pipeline.CacheKey(src.Name, pair.Slug)}
		}
		writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
		return
	}

	keys := s.pipe.Cache().Keys()
	n := s.pipe.Cache().Flush()
	s.log.Info("series cache flushed", slog.Int("removed", n))
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: CacheResponse{Removed: n, Keys: keys}})
}

func (s *Server) defaultModel() forecast.Kind {
	if s.cfg != nil {
		if k, err := forecast.ParseKind(s.cfg.Forecast.Model); err == nil {
			return k
		}
	}
	return forecast.KindLinear
}

func (s *Server) defaultHorizon() int {
	if s.cfg != nil && s.cfg.Forecast.Horizon > 0 {
		return s.cfg.Forecast.Horizon
	}
	return 3
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to write JSON response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

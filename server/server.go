// Package server exposes the platform over HTTP: Prometheus metrics, the
// multi-target probe endpoint and a small JSON API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
	"github.com/swoga/router-bridge/config"
	"github.com/swoga/router-bridge/platform"
	"go.uber.org/zap"
)

// ConnectivityTarget is the probe target that reports the connectivity
// prober instead of a router.
const ConnectivityTarget = "connectivity"

type Server struct {
	config   func() *config.Config
	platform func() *platform.Platform
	reload   func() error
	log      *zap.Logger
	router   chi.Router
	server   *http.Server
}

// New builds the routes from the config active at startup. Route paths are
// not changed by a reload.
func New(cfg func() *config.Config, p func() *platform.Platform, reload func() error, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		config:   cfg,
		platform: p,
		reload:   reload,
		log:      log,
		router:   chi.NewRouter(),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	c := s.config()

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)

	if len(c.HTTP.CORSAllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: c.HTTP.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, c.MetricsPath, promhttp.Handler())
	s.router.Get(c.ProbePath, s.handleProbe)
	s.router.Post("/-/reload", s.handleReload)
	s.router.Put("/-/reload", s.handleReload)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/entities", s.handleEntities)
		r.Get("/routers/{name}", s.handleRouter)
		r.Post("/routers/{name}/reboot", s.handleRouterReboot)
		r.Post("/reboot", s.handleReboot)
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.server.Addr = addr
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"version":  version.Version,
		"revision": version.Revision,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.reload(); err != nil {
		http.Error(w, fmt.Sprintf("failed to reload config: %s", err), http.StatusInternalServerError)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("failed to marshal response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// Package http serves the dashboard API: cohort catalogues, scenario
// computation, wallet lookups, band placement, share cards, and a websocket
// for live recomputes while the user drags the controls.
package http

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/seamom/ogdrop/internal/application"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Server is the dashboard HTTP server.
type Server struct {
	router   *mux.Router
	server   *http.Server
	handlers *Handlers
	config   application.ServerConfig
}

// NewServer wires the router and verifies the listen port is free.
func NewServer(cfg *application.AppConfig, deps Dependencies) (*Server, error) {
	addr := cfg.Server.Addr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("port %d is busy or unavailable: %w", cfg.Server.Port, err)
	}
	listener.Close()

	server := &Server{
		router:   mux.NewRouter(),
		handlers: NewHandlers(cfg, deps),
		config:   cfg.Server,
	}
	server.setupRoutes()

	server.server = &http.Server{
		Addr:         addr,
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	return server, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.corsMiddleware)

	// The websocket and the Prometheus scrape stay off the JSON subrouter:
	// neither wants a request deadline or a forced content type.
	s.router.Handle("/metrics", s.handlers.metrics.Handler()).Methods("GET")
	s.router.HandleFunc("/ws/scenario", s.handlers.ScenarioSocket).Methods("GET")

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.timeoutMiddleware)
	api.Use(s.jsonContentTypeMiddleware)

	api.HandleFunc("/health", s.handlers.Health).Methods("GET")
	api.HandleFunc("/config", s.handlers.Config).Methods("GET")
	api.HandleFunc("/cohorts", s.handlers.Cohorts).Methods("GET")
	api.HandleFunc("/options/percentiles", s.handlers.PercentileOptions).Methods("GET")
	api.HandleFunc("/options/cohort-sizes", s.handlers.CohortSizeOptions).Methods("GET")
	api.HandleFunc("/scenario", s.handlers.Scenario).Methods("POST")
	api.HandleFunc("/band", s.handlers.Band).Methods("POST")
	api.HandleFunc("/wallet/{address}", s.handlers.Wallet).Methods("GET")
	api.HandleFunc("/share-card", s.handlers.ShareCard).Methods("POST")

	s.router.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		s.handlers.metrics.ObserveRequest(r.URL.Path, r.Method, wrapper.statusCode, duration)

		log.Info().
			Str("request_id", requestIDFrom(r)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Str("remote", r.RemoteAddr).
			Msg("HTTP request")
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout())
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start blocks on the listener until shutdown.
func (s *Server) Start() error {
	log.Info().
		Str("addr", s.config.Addr()).
		Msg("Dashboard HTTP server starting")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Dashboard HTTP server shutting down")
	return s.server.Shutdown(ctx)
}

// Router exposes the configured handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// GetAddress returns the configured listen address.
func (s *Server) GetAddress() string {
	return s.config.Addr()
}

func requestIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return "unknown"
}

// responseWrapper captures status codes for logging and metrics. It keeps
// the underlying Hijacker reachable so websocket upgrades still work.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

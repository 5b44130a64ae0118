// Package api exposes the inference service over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"cropyield/app"
	"cropyield/domain/crop"
	"cropyield/domain/model"
	"cropyield/internal"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Inference is the part of app.InferenceService the HTTP layer needs.
type Inference interface {
	Predict(ctx context.Context, input crop.InferenceInput) (app.Prediction, error)
	KnownValues(field string) ([]string, error)
	AllKnownValues() (map[string][]string, error)
	Performance() (model.PerformanceTable, string, error)
	State() app.InferenceState
}

// AccessGate decides whether a request may reach the inference routes.
type AccessGate func(r *http.Request) bool

// AllowAll is the gate used when no token is configured.
func AllowAll(*http.Request) bool { return true }

// BearerTokenGate admits requests carrying "Authorization: Bearer <token>".
// An empty token disables the check.
func BearerTokenGate(token string) AccessGate {
	if token == "" {
		return AllowAll
	}
	want := []byte(token)
	return func(r *http.Request) bool {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		return ok && subtle.ConstantTimeCompare([]byte(got), want) == 1
	}
}

// Server routes HTTP requests to the inference service.
type Server struct {
	inference Inference
	gate      AccessGate
	router    *chi.Mux
	logger    *internal.Logger
}

// NewServer builds the router. A nil gate admits every request.
func NewServer(inference Inference, gate AccessGate) *Server {
	if gate == nil {
		gate = AllowAll
	}
	s := &Server{
		inference: inference,
		gate:      gate,
		router:    chi.NewRouter(),
		logger:    internal.DefaultLogger.With("API"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireAccess)

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/predictions", s.handlePredict)
			r.Get("/known-values", s.handleAllKnownValues)
			r.Get("/known-values/{field}", s.handleKnownValues)
			r.Get("/models/performance", s.handlePerformance)
		})
		r.Get("/reports/performance", s.handlePerformanceReport)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.gate(r) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="cropyield"`)
			s.writeError(w, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

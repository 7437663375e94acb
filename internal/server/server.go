// Package server exposes the validation engine over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/dq-cli/internal/batch"
	"github.com/sells-group/dq-cli/internal/building"
	"github.com/sells-group/dq-cli/internal/rules"
	"github.com/sells-group/dq-cli/internal/store"
	"github.com/sells-group/dq-cli/pkg/geocode"
)

const defaultMaxUpload = 32 << 20

// Server holds the handler dependencies. Any of the geocoder, estimator and
// store may be absent; the endpoints that need them then answer 503.
type Server struct {
	client    geocode.Client
	rules     rules.Rules
	opts      batch.Options
	estimator building.Estimator
	store     store.Store
	origins   []string
	maxUpload int64
}

// Option configures a Server.
type Option func(*Server)

// WithGeocoder sets the provider used for validation uploads.
func WithGeocoder(c geocode.Client) Option {
	return func(s *Server) { s.client = c }
}

// WithRules sets the validation thresholds.
func WithRules(r rules.Rules) Option {
	return func(s *Server) { s.rules = r }
}

// WithBatchOptions sets the defaults for validation uploads.
func WithBatchOptions(o batch.Options) Option {
	return func(s *Server) { s.opts = o }
}

// WithEstimator enables POST /v1/building.
func WithEstimator(e building.Estimator) Option {
	return func(s *Server) { s.estimator = e }
}

// WithStore enables run history.
func WithStore(st store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithAllowedOrigins sets the CORS origins.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithMaxUpload caps the multipart upload size in bytes.
func WithMaxUpload(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// New creates a Server.
func New(opts ...Option) *Server {
	s := &Server{
		rules:     rules.Default(),
		opts:      batch.DefaultOptions(),
		origins:   []string{"*"},
		maxUpload: defaultMaxUpload,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "X-Run-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Post("/audit", s.handleAudit)
		r.Post("/building", s.handleBuilding)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"geocoder":  s.client != nil,
		"estimator": s.estimator != nil,
		"store":     s.store != nil,
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

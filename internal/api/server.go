// Package api serves the extraction pipeline, the response recovery parser
// and the wardrobe service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hurttlocker/ratemyfit/internal/extract"
	"github.com/hurttlocker/ratemyfit/internal/feedback"
	"github.com/hurttlocker/ratemyfit/internal/wardrobe"
)

// maxBodyBytes bounds request bodies; outfit photos arrive base64-encoded.
const maxBodyBytes = 12 << 20

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Server is the HTTP API.
type Server struct {
	service        *wardrobe.Service
	pipeline       *extract.Pipeline
	validate       *validator.Validate
	health         HealthCheck
	allowedOrigins []string
	router         *chi.Mux
	logger         *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHealthCheck adds a dependency probe to /healthz.
func WithHealthCheck(h HealthCheck) Option {
	return func(s *Server) { s.health = h }
}

// WithAllowedOrigins sets the CORS origins. The default allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates the API server.
func NewServer(svc *wardrobe.Service, pipeline *extract.Pipeline, opts ...Option) *Server {
	s := &Server{
		service:        svc,
		pipeline:       pipeline,
		validate:       newValidator(),
		allowedOrigins: []string{"*"},
		router:         chi.NewRouter(),
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/extract", s.handleExtract)
		r.Post("/feedback/parse", s.handleParseFeedback)

		r.Route("/outfits", func(r chi.Router) {
			r.Post("/", s.handleRate)
			r.Get("/", s.handleListOutfits)
			r.Get("/{id}", s.handleGetOutfit)
			r.Delete("/{id}", s.handleDeleteOutfit)
			r.Post("/{id}/tag", s.handleTagOutfit)
			r.Patch("/{id}/items/{index}", s.handleRenameItem)
			r.Delete("/{id}/items/{index}", s.handleRemoveItem)
		})
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unhealthy: "+err.Error(), s.logger)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

type extractRequest struct {
	Feedback    string   `json:"feedback" validate:"required_without=Suggestions,max=10000"`
	Suggestions []string `json:"suggestions" validate:"max=20,dive,max=500"`
	Gender      string   `json:"gender" validate:"omitempty,oneof=men women unisex"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !s.decode(w, r, &req) {
		return
	}
	res := s.pipeline.Extract(r.Context(), extract.Input{
		Feedback:    req.Feedback,
		Suggestions: req.Suggestions,
		Gender:      req.Gender,
	})
	writeJSON(w, http.StatusOK, res, s.logger)
}

type parseFeedbackRequest struct {
	Text                 string `json:"text" validate:"max=100000"`
	Mode                 string `json:"mode" validate:"omitempty,oneof=standard roast"`
	RequireStyleAnalysis bool   `json:"require_style_analysis"`
}

func (s *Server) handleParseFeedback(w http.ResponseWriter, r *http.Request) {
	var req parseFeedbackRequest
	if !s.decode(w, r, &req) {
		return
	}
	res := feedback.Parse(req.Text, feedback.ParseOptions{
		Mode:                 feedback.ParseMode(req.Mode),
		RequireStyleAnalysis: req.RequireStyleAnalysis,
	})
	writeJSON(w, http.StatusOK, res, s.logger)
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	var req wardrobe.RateRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.service.Rate(r.Context(), req)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	writeJSON(w, http.StatusCreated, res, s.logger)
}

func (s *Server) handleListOutfits(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required", s.logger)
		return
	}
	entries, err := s.service.List(r.Context(), userID)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, entries, s.logger)
}

func (s *Server) handleGetOutfit(w http.ResponseWriter, r *http.Request) {
	entry, err := s.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, entry, s.logger)
}

func (s *Server) handleDeleteOutfit(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err, s.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type tagRequest struct {
	Gender string `json:"gender" validate:"omitempty,oneof=men women unisex"`
}

func (s *Server) handleTagOutfit(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	entry, res, err := s.service.Tag(r.Context(), chi.URLParam(r, "id"), req.Gender)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": entry, "run_id": res.RunID, "stats": res.Stats}, s.logger)
}

type renameRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

func (s *Server) handleRenameItem(w http.ResponseWriter, r *http.Request) {
	index, ok := s.itemIndex(w, r)
	if !ok {
		return
	}
	var req renameRequest
	if !s.decode(w, r, &req) {
		return
	}
	entry, err := s.service.RenameItem(r.Context(), chi.URLParam(r, "id"), index, req.Name)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, entry, s.logger)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	index, ok := s.itemIndex(w, r)
	if !ok {
		return
	}
	entry, err := s.service.RemoveItem(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, entry, s.logger)
}

func (s *Server) itemIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid item index %q", chi.URLParam(r, "index")), s.logger)
		return 0, false
	}
	return index, true
}

// decode reads a JSON body into dst and validates it, writing the error
// response itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", s.logger)
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "request body is empty", s.logger)
		default:
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error(), s.logger)
		}
		return false
	}
	if err := validate(s.validate, dst); err != nil {
		handleError(w, err, s.logger)
		return false
	}
	return true
}

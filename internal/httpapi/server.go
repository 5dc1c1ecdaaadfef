package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/alphaforge/replay/internal/middleware"
	"github.com/alphaforge/replay/internal/replay"
	"github.com/alphaforge/replay/internal/service"
)

const maxRequestBody = 4 * 1024 * 1024

// Server wires HTTP handlers to the replay service.
type Server struct {
	svc    *service.ReplayService
	logger *zerolog.Logger
}

// NewServer constructs a Server instance.
func NewServer(svc *service.ReplayService, logger *zerolog.Logger) *Server {
	return &Server{svc: svc, logger: logger}
}

// Routes builds the HTTP router for the replay service.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLogger(*s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/experiences", s.handleAddExperience)
		r.Post("/experiences/batch", s.handleAddBatch)
		r.Post("/sample", s.handleSample)
		r.Post("/priorities", s.handleUpdatePriorities)
		r.Get("/stats", s.handleStats)
	})
	return r
}

type sampleRequest struct {
	BatchSize int `json:"batch_size"`
}

type updatePrioritiesRequest struct {
	Indices  []int     `json:"indices"`
	TDErrors []float64 `json:"td_errors"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAddExperience(w http.ResponseWriter, r *http.Request) {
	if !s.requireJSON(w, r) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()

	var exp replay.Experience
	if err := json.NewDecoder(r.Body).Decode(&exp); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid experience payload")
		return
	}
	s.svc.Add(r.Context(), exp)
	s.writeJSON(w, http.StatusCreated, map[string]int{"size": s.svc.Stats(r.Context()).Size})
}

func (s *Server) handleAddBatch(w http.ResponseWriter, r *http.Request) {
	if !s.requireJSON(w, r) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()

	var payload struct {
		Experiences []replay.Experience `json:"experiences"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid batch payload")
		return
	}
	stored := s.svc.AddBatch(r.Context(), payload.Experiences)
	s.writeJSON(w, http.StatusCreated, map[string]int{
		"stored": stored,
		"size":   s.svc.Stats(r.Context()).Size,
	})
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	if !s.requireJSON(w, r) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()

	var payload sampleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid sample payload")
		return
	}
	batch, err := s.svc.Sample(r.Context(), payload.BatchSize)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleUpdatePriorities(w http.ResponseWriter, r *http.Request) {
	if !s.requireJSON(w, r) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()

	var payload updatePrioritiesRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid priorities payload")
		return
	}
	if err := s.svc.UpdatePriorities(r.Context(), payload.Indices, payload.TDErrors); err != nil {
		s.respondError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"updated": len(payload.Indices)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Stats(r.Context()))
}

func (s *Server) requireJSON(w http.ResponseWriter, r *http.Request) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		s.writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
		return false
	}
	return true
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, replay.ErrEmptyBuffer), errors.Is(err, replay.ErrBatchTooLarge):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, replay.ErrInvalidBatchSize), errors.Is(err, replay.ErrLengthMismatch),
		errors.Is(err, replay.ErrInvalidIndex):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

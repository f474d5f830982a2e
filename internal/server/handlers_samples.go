package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/oscarchatwin1/microsearch-driver-capture/internal/model"
)

type sampleListResponse struct {
	Samples []model.Sample `json:"samples"`
	Total   int            `json:"total"`
}

func (s *Server) handleListSamples(w http.ResponseWriter, r *http.Request) {
	status, ok := parseStatusFilter(r.URL.Query().Get("status"))
	if !ok {
		respondProblem(w, http.StatusBadRequest, "status must be pending, synced or error")
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondProblem(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	samples, err := s.store.ListSamples(r.Context(), status, limit)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sampleListResponse{Samples: samples, Total: len(samples)})
}

func (s *Server) handleCreateSample(w http.ResponseWriter, r *http.Request) {
	var in model.SampleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondProblem(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	sample, err := s.store.CreateSample(r.Context(), in)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sample)
}

func (s *Server) handleGetSample(w http.ResponseWriter, r *http.Request) {
	sample, err := s.store.GetSample(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sample)
}

func (s *Server) handleUpdateSample(w http.ResponseWriter, r *http.Request) {
	var in model.SampleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondProblem(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	sample, err := s.store.UpdateSample(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sample)
}

func (s *Server) handleDeleteSample(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSample(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSampleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.Counts(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

func parseStatusFilter(raw string) (model.SyncStatus, bool) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return "", true
	}
	status := model.SyncStatus(raw)
	return status, status.Valid()
}

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oscarchatwin1/microsearch-driver-capture/internal/connectivity"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/model"
	syncer "github.com/oscarchatwin1/microsearch-driver-capture/internal/sync"
)

type syncStatusResponse struct {
	Snapshot     connectivity.Snapshot `json:"snapshot"`
	Decision     connectivity.Decision `json:"decision"`
	Counts       model.StatusCounts    `json:"counts"`
	Runs         syncer.Status         `json:"runs"`
	AllowedSSIDs []string              `json:"allowed_ssids"`
}

func (s *Server) handleRunSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.syncer.SyncOnce(r.Context())
	if err != nil {
		respondProblem(w, http.StatusInternalServerError, "sync run failed: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.provider.Snapshot(r.Context())
	if err != nil {
		s.log.Warn().Err(err).Msg("connectivity snapshot unavailable")
		snapshot = connectivity.Snapshot{}
	}

	counts, err := s.store.Counts(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, syncStatusResponse{
		Snapshot:     snapshot,
		Decision:     s.gate.Evaluate(snapshot),
		Counts:       counts,
		Runs:         s.syncer.Status(),
		AllowedSSIDs: s.cfg.AllowedSSIDs,
	})
}

type lookupResponse struct {
	Field   string   `json:"field"`
	Options []string `json:"options"`
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")
	options, err := s.lookup.Options(r.Context(), field)
	if err != nil {
		respondProblem(w, http.StatusBadGateway, "lookup failed: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, lookupResponse{Field: field, Options: options})
}

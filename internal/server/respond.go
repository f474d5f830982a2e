package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oscarchatwin1/microsearch-driver-capture/internal/model"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/store"
)

type problem struct {
	Status     int      `json:"status"`
	Detail     string   `json:"detail"`
	Violations []string `json:"violations,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondProblem(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, problem{Status: status, Detail: detail})
}

// respondStoreError maps the store error taxonomy onto HTTP statuses:
// validation 422, not-found 404, precondition 409, storage fault 500.
func respondStoreError(w http.ResponseWriter, err error) {
	var validationErr *model.ValidationError
	switch {
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusUnprocessableEntity, problem{
			Status:     http.StatusUnprocessableEntity,
			Detail:     "sample failed validation",
			Violations: validationErr.Violations,
		})
	case errors.Is(err, store.ErrNotFound):
		respondProblem(w, http.StatusNotFound, "sample not found")
	case errors.Is(err, store.ErrNotDeletable):
		respondProblem(w, http.StatusConflict, store.ErrNotDeletable.Error())
	default:
		respondProblem(w, http.StatusInternalServerError, "local storage unavailable")
	}
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"radbench/internal/storage"
)

// Interaction is the API representation of an AI interaction log entry.
// Input and output are opaque encoded payloads stored verbatim.
type Interaction struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateInteractionRequest struct {
	Kind   string `json:"kind"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

func interactionResponse(i storage.Interaction) Interaction {
	return Interaction{
		ID:        i.ID,
		Kind:      i.Kind,
		Input:     i.Input,
		Output:    i.Output,
		CreatedAt: i.CreatedAt,
	}
}

func handleListInteractions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := deps.Store.ListInteractions(listOptions(r))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions: %v", err)
			return
		}

		results := make([]Interaction, 0, len(records))
		for _, rec := range records {
			results = append(results, interactionResponse(rec))
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func handleCreateInteraction(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req CreateInteractionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if req.Kind != storage.InteractionKindGenerate && req.Kind != storage.InteractionKindExplain {
			httpError(w, http.StatusBadRequest, "invalid_request_error",
				"kind is required and must be %q or %q", storage.InteractionKindGenerate, storage.InteractionKindExplain)
			return
		}
		if req.Input == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "input is required")
			return
		}

		rec := storage.Interaction{
			ID:        uuid.New().String(),
			Kind:      req.Kind,
			Input:     req.Input,
			Output:    req.Output,
			CreatedAt: time.Now().UTC(),
		}
		if err := deps.Store.SaveInteraction(rec); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save interaction: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, interactionResponse(rec))
	}
}

func handleGetInteraction(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := deps.Store.GetInteraction(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "interaction not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get interaction: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, interactionResponse(rec))
	}
}

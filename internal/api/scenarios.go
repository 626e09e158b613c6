package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"radbench/internal/codec"
	"radbench/internal/storage"
)

// ScenarioVariable is a named substitution used by scenario steps.
type ScenarioVariable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ScenarioStep is a single step in a test scenario, e.g. sending an
// Access-Request with a set of attributes.
type ScenarioStep struct {
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Attributes  map[string]string `json:"attributes"`
}

// Scenario is the API representation of a test scenario. The nested fields
// are stored as JSON text columns and round-trip through the codec.
type Scenario struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Variables    []ScenarioVariable `json:"variables"`
	Steps        []ScenarioStep     `json:"steps"`
	Tags         []string           `json:"tags"`
	LastModified time.Time          `json:"last_modified"`
}

type CreateScenarioRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Variables   []ScenarioVariable `json:"variables"`
	Steps       []ScenarioStep     `json:"steps"`
	Tags        []string           `json:"tags"`
}

// scenarioResponse decodes a stored row into its API representation. A decode
// failure means the stored row is corrupt; the caller fails the whole request.
func scenarioResponse(sc storage.Scenario) (Scenario, error) {
	variables, err := codec.DecodeSeq[ScenarioVariable](sc.Variables)
	if err != nil {
		return Scenario{}, err
	}
	steps, err := codec.DecodeSeq[ScenarioStep](sc.Steps)
	if err != nil {
		return Scenario{}, err
	}
	tags, err := codec.DecodeSeq[string](sc.Tags)
	if err != nil {
		return Scenario{}, err
	}
	return Scenario{
		ID:           sc.ID,
		Name:         sc.Name,
		Description:  sc.Description,
		Variables:    variables,
		Steps:        steps,
		Tags:         tags,
		LastModified: sc.UpdatedAt,
	}, nil
}

func handleListScenarios(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := deps.Store.ListScenarios(listOptions(r))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list scenarios: %v", err)
			return
		}

		results := make([]Scenario, 0, len(records))
		for _, rec := range records {
			sc, err := scenarioResponse(rec)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to decode scenario %s: %v", rec.ID, err)
				return
			}
			results = append(results, sc)
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func handleCreateScenario(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req CreateScenarioRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if req.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}

		variables, err := codec.EncodeSeq(req.Variables)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid variables: %v", err)
			return
		}
		steps, err := codec.EncodeSeq(req.Steps)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid steps: %v", err)
			return
		}
		tags, err := codec.EncodeSeq(req.Tags)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid tags: %v", err)
			return
		}

		rec := storage.Scenario{
			ID:          uuid.New().String(),
			Name:        req.Name,
			Description: req.Description,
			Variables:   variables,
			Steps:       steps,
			Tags:        tags,
			UpdatedAt:   time.Now().UTC(),
		}
		if err := deps.Store.SaveScenario(rec); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save scenario: %v", err)
			return
		}

		resp, err := scenarioResponse(rec)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to decode scenario: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func handleGetScenario(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := deps.Store.GetScenario(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "scenario not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get scenario: %v", err)
			return
		}

		resp, err := scenarioResponse(rec)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to decode scenario %s: %v", rec.ID, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

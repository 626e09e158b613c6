package api

import (
	"net/http"
	"reflect"
	"testing"
	"time"

	"radbench/internal/storage"
)

func TestCreateScenario(t *testing.T) {
	h, store := setupHandler(t)

	req := CreateScenarioRequest{
		Name:        "EAP-TLS happy path",
		Description: "full handshake",
		Variables:   []ScenarioVariable{{Name: "nas_ip", Value: "10.0.0.1"}},
		Steps: []ScenarioStep{
			{Type: "access_request", Description: "initial request", Attributes: map[string]string{"User-Name": "alice"}},
			{Type: "expect_accept", Attributes: map[string]string{}},
		},
		Tags: []string{"eap", "tls"},
	}
	rec := doReq(t, h, authReq(t, http.MethodPost, "/scenarios", req))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	got := decodeBody[Scenario](t, rec)
	if got.ID == "" {
		t.Error("response missing server-assigned id")
	}
	if !reflect.DeepEqual(got.Variables, req.Variables) {
		t.Errorf("variables = %+v, want %+v", got.Variables, req.Variables)
	}
	if !reflect.DeepEqual(got.Steps, req.Steps) {
		t.Errorf("steps = %+v, want %+v", got.Steps, req.Steps)
	}
	if !reflect.DeepEqual(got.Tags, req.Tags) {
		t.Errorf("tags = %+v, want %+v", got.Tags, req.Tags)
	}
	if got.LastModified.IsZero() {
		t.Error("last_modified not set")
	}

	// Nested fields land in the store as JSON text.
	stored, err := store.GetScenario(got.ID)
	if err != nil {
		t.Fatalf("GetScenario(%s): %v", got.ID, err)
	}
	if stored.Tags != `["eap","tls"]` {
		t.Errorf("stored tags = %q", stored.Tags)
	}
}

func TestCreateScenarioEmptyNestedFields(t *testing.T) {
	h, store := setupHandler(t)

	rec := doReq(t, h, authReq(t, http.MethodPost, "/scenarios", CreateScenarioRequest{Name: "bare"}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	got := decodeBody[Scenario](t, rec)
	if got.Variables == nil || got.Steps == nil || got.Tags == nil {
		t.Errorf("nested fields must decode to empty arrays, got %+v", got)
	}

	stored, err := store.GetScenario(got.ID)
	if err != nil {
		t.Fatalf("GetScenario: %v", err)
	}
	if stored.Variables != "[]" || stored.Steps != "[]" || stored.Tags != "[]" {
		t.Errorf("stored empty fields = %q %q %q, want []", stored.Variables, stored.Steps, stored.Tags)
	}
}

func TestCreateScenarioMissingName(t *testing.T) {
	h, store := setupHandler(t)

	rec := doReq(t, h, authReq(t, http.MethodPost, "/scenarios", CreateScenarioRequest{Description: "no name"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody[errorBody](t, rec)
	if body.Error != "invalid_request_error" {
		t.Errorf("error = %q, want invalid_request_error", body.Error)
	}

	records, err := store.ListScenarios(storage.ListOptions{})
	if err != nil {
		t.Fatalf("ListScenarios: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("store has %d scenarios after rejected request, want 0", len(records))
	}
}

func TestListScenariosSortAndSearch(t *testing.T) {
	h, store := setupHandler(t)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	scenarios := []storage.Scenario{
		{ID: "1", Name: "pap baseline", Variables: "[]", Steps: "[]", Tags: `["auth"]`, UpdatedAt: base},
		{ID: "2", Name: "chap baseline", Variables: "[]", Steps: "[]", Tags: `["auth"]`, UpdatedAt: base.Add(time.Hour)},
		{ID: "3", Name: "accounting", Variables: "[]", Steps: "[]", Tags: `["acct"]`, UpdatedAt: base.Add(2 * time.Hour)},
	}
	for _, sc := range scenarios {
		if err := store.SaveScenario(sc); err != nil {
			t.Fatalf("SaveScenario: %v", err)
		}
	}

	rec := doReq(t, h, authReq(t, http.MethodGet, "/scenarios?search=auth&sortBy=lastModified", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeBody[[]Scenario](t, rec)
	if len(got) != 2 {
		t.Fatalf("got %d scenarios, want 2 (tag search)", len(got))
	}
	if got[0].ID != "2" {
		t.Errorf("first = %s, want 2 (most recently modified)", got[0].ID)
	}
}

func TestListScenariosCorruptRowFailsRequest(t *testing.T) {
	h, store := setupHandler(t)

	err := store.SaveScenario(storage.Scenario{
		ID: "bad", Name: "corrupt", Variables: "{not json", Steps: "[]", Tags: "[]",
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("SaveScenario: %v", err)
	}

	rec := doReq(t, h, authReq(t, http.MethodGet, "/scenarios", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 (no partial results)", rec.Code)
	}
	body := decodeBody[errorBody](t, rec)
	if body.Error != "api_error" {
		t.Errorf("error = %q, want api_error", body.Error)
	}
}

func TestGetScenario(t *testing.T) {
	h, store := setupHandler(t)

	err := store.SaveScenario(storage.Scenario{
		ID: "sc-1", Name: "lookup", Variables: "[]",
		Steps: `[{"type":"access_request","description":"","attributes":{}}]`,
		Tags:  "[]", UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("SaveScenario: %v", err)
	}

	rec := doReq(t, h, authReq(t, http.MethodGet, "/scenarios/sc-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeBody[Scenario](t, rec)
	if len(got.Steps) != 1 || got.Steps[0].Type != "access_request" {
		t.Errorf("steps = %+v", got.Steps)
	}
}

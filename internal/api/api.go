package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"radbench/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds dependencies for the HTTP API.
type Deps struct {
	Store *storage.Store
	Token string
}

// NewHandler returns the radbench REST API. All resource routes sit behind
// bearer auth; /health is open for liveness probes.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/interactions", handleListInteractions(deps))
		r.Post("/interactions", handleCreateInteraction(deps))
		r.Get("/interactions/{id}", handleGetInteraction(deps))

		r.Get("/scenarios", handleListScenarios(deps))
		r.Post("/scenarios", handleCreateScenario(deps))
		r.Get("/scenarios/{id}", handleGetScenario(deps))

		r.Get("/users", handleListUsers(deps))
		r.Post("/users", handleCreateUser(deps))
		r.Get("/users/{id}", handleGetUser(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// listOptions extracts the shared limit/sortBy/search query parameters.
// limit must be a positive integer; absent or invalid means no cap.
func listOptions(r *http.Request) storage.ListOptions {
	opts := storage.ListOptions{
		SortBy: r.URL.Query().Get("sortBy"),
		Search: r.URL.Query().Get("search"),
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			opts.Limit = v
		}
	}
	return opts
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"message": fmt.Sprintf(format, args...),
		"error":   errType,
	})
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"radbench/internal/storage"
)

const defaultUserRole = "operator"

// User is the API representation of an operator account. The credential hash
// is deliberately absent: it never appears in any response.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func userResponse(u storage.User) User {
	return User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Status:    u.Status,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
	}
}

func handleListUsers(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := deps.Store.ListUsers(listOptions(r))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list users: %v", err)
			return
		}

		results := make([]User, 0, len(records))
		for _, rec := range records {
			results = append(results, userResponse(rec))
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func handleCreateUser(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if req.Email == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "email is required")
			return
		}
		if req.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}
		if req.Role == "" {
			req.Role = defaultUserRole
		}

		var credentialHash string
		if req.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to hash password: %v", err)
				return
			}
			credentialHash = string(hash)
		}

		rec := storage.User{
			ID:             uuid.New().String(),
			Email:          req.Email,
			Name:           req.Name,
			Role:           req.Role,
			Status:         "invited",
			CredentialHash: credentialHash,
			CreatedAt:      time.Now().UTC(),
		}
		err := deps.Store.CreateUser(rec)
		if errors.Is(err, storage.ErrDuplicateEmail) {
			httpError(w, http.StatusConflict, "conflict_error", "a user with email %q already exists", req.Email)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create user: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, userResponse(rec))
	}
}

func handleGetUser(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := deps.Store.GetUser(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get user: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, userResponse(rec))
	}
}

package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when creating a user whose email is already taken.
var ErrDuplicateEmail = errors.New("email already in use")

// Interaction kinds.
const (
	InteractionKindGenerate = "generate"
	InteractionKindExplain  = "explain"
)

type Interaction struct {
	ID        string
	Kind      string // "generate" or "explain"
	Input     string // opaque encoded payload, stored verbatim
	Output    string
	CreatedAt time.Time
}

type Scenario struct {
	ID          string
	Name        string
	Description string
	Variables   string // JSON array stored as text
	Steps       string // JSON array stored as text
	Tags        string // JSON array stored as text
	UpdatedAt   time.Time
}

type User struct {
	ID             string
	Email          string
	Name           string
	Role           string
	Status         string
	CredentialHash string // never selected by list queries
	LastLogin      *time.Time
	CreatedAt      time.Time
}

// ListOptions controls filtering, ordering, and truncation of list queries.
// SortBy is a resource-specific key (e.g. "lastModified"); unrecognized or
// empty values fall back to the resource's default sort. Search is matched as
// a substring against the resource's searchable text columns.
type ListOptions struct {
	Limit  int
	SortBy string
	Search string
}

package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for interactions, scenarios,
// and users.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "radbench.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// isConstraintViolation reports whether err is a SQLite UNIQUE constraint failure.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- Interactions ---

var interactionSort = sortSpec{
	keys:       map[string]string{"timestamp": "created_at"},
	defaultCol: "created_at",
}

func (s *Store) SaveInteraction(i Interaction) error {
	_, err := s.db.Exec(`
		INSERT INTO interactions (id, kind, input, output, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		i.ID, i.Kind, i.Input, i.Output, i.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting interaction: %w", err)
	}
	slog.Debug("saved interaction", "id", i.ID, "kind", i.Kind)
	return nil
}

func (s *Store) GetInteraction(id string) (Interaction, error) {
	var i Interaction
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, kind, input, output, created_at
		FROM interactions WHERE id = ?`, id,
	).Scan(&i.ID, &i.Kind, &i.Input, &i.Output, &createdAt)
	if err == sql.ErrNoRows {
		return Interaction{}, ErrNotFound
	}
	if err != nil {
		return Interaction{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Interaction{}, fmt.Errorf("parsing created_at: %w", err)
	}
	i.CreatedAt = t
	return i, nil
}

func (s *Store) ListInteractions(opts ListOptions) ([]Interaction, error) {
	col, desc := interactionSort.resolve(opts.SortBy)
	query, args := newSelect("interactions", "id", "kind", "input", "output", "created_at").
		Search(opts.Search, "input", "output").
		OrderBy(col, desc).
		Limit(opts.Limit).
		SQL()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying interactions: %w", err)
	}
	defer rows.Close()

	var results []Interaction
	for rows.Next() {
		var i Interaction
		var createdAt string
		if err := rows.Scan(&i.ID, &i.Kind, &i.Input, &i.Output, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		i.CreatedAt = t
		results = append(results, i)
	}
	return results, rows.Err()
}

// --- Scenarios ---

var scenarioSort = sortSpec{
	keys: map[string]string{
		"lastModified": "updated_at",
		"name":         "name",
	},
	defaultCol: "name",
}

func (s *Store) SaveScenario(sc Scenario) error {
	_, err := s.db.Exec(`
		INSERT INTO scenarios (id, name, description, variables, steps, tags, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.Name, sc.Description, sc.Variables, sc.Steps, sc.Tags,
		sc.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting scenario: %w", err)
	}
	slog.Debug("saved scenario", "id", sc.ID, "name", sc.Name)
	return nil
}

func (s *Store) GetScenario(id string) (Scenario, error) {
	var sc Scenario
	var updatedAt string
	err := s.db.QueryRow(`
		SELECT id, name, description, variables, steps, tags, updated_at
		FROM scenarios WHERE id = ?`, id,
	).Scan(&sc.ID, &sc.Name, &sc.Description, &sc.Variables, &sc.Steps, &sc.Tags, &updatedAt)
	if err == sql.ErrNoRows {
		return Scenario{}, ErrNotFound
	}
	if err != nil {
		return Scenario{}, err
	}
	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return Scenario{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	sc.UpdatedAt = t
	return sc, nil
}

func (s *Store) ListScenarios(opts ListOptions) ([]Scenario, error) {
	col, desc := scenarioSort.resolve(opts.SortBy)
	query, args := newSelect("scenarios", "id", "name", "description", "variables", "steps", "tags", "updated_at").
		Search(opts.Search, "name", "description", "tags").
		OrderBy(col, desc).
		Limit(opts.Limit).
		SQL()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying scenarios: %w", err)
	}
	defer rows.Close()

	var results []Scenario
	for rows.Next() {
		var sc Scenario
		var updatedAt string
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.Description, &sc.Variables, &sc.Steps, &sc.Tags, &updatedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		sc.UpdatedAt = t
		results = append(results, sc)
	}
	return results, rows.Err()
}

// --- Users ---

var userSort = sortSpec{
	keys: map[string]string{
		"lastLogin": "last_login",
		"name":      "name",
	},
	defaultCol: "name",
}

// CreateUser inserts a new user row. Returns ErrDuplicateEmail when the email
// is already taken; the uniqueness check is enforced atomically by the store,
// so concurrent creates cannot both succeed.
func (s *Store) CreateUser(u User) error {
	var lastLogin any
	if u.LastLogin != nil {
		lastLogin = u.LastLogin.UTC().Format(time.RFC3339)
	}
	_, err := s.db.Exec(`
		INSERT INTO users (id, email, name, role, status, credential_hash, last_login, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.Role, u.Status, u.CredentialHash, lastLogin,
		u.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	slog.Debug("created user", "id", u.ID, "email", u.Email)
	return nil
}

// GetUser retrieves a user by ID. The credential hash is never selected.
func (s *Store) GetUser(id string) (User, error) {
	row := s.db.QueryRow(`
		SELECT id, email, name, role, status, last_login, created_at
		FROM users WHERE id = ?`, id)

	u, err := scanUser(row.Scan)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	return u, err
}

// ListUsers retrieves users matching opts. The credential hash is never selected.
func (s *Store) ListUsers(opts ListOptions) ([]User, error) {
	col, desc := userSort.resolve(opts.SortBy)
	query, args := newSelect("users", "id", "email", "name", "role", "status", "last_login", "created_at").
		Search(opts.Search, "email", "name", "role").
		OrderBy(col, desc).
		Limit(opts.Limit).
		SQL()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var results []User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

func scanUser(scan func(...any) error) (User, error) {
	var u User
	var lastLogin sql.NullString
	var createdAt string
	if err := scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Status, &lastLogin, &createdAt); err != nil {
		return User{}, err
	}
	if lastLogin.Valid {
		t, err := time.Parse(time.RFC3339, lastLogin.String)
		if err != nil {
			return User{}, fmt.Errorf("parsing last_login: %w", err)
		}
		u.LastLogin = &t
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return User{}, fmt.Errorf("parsing created_at: %w", err)
	}
	u.CreatedAt = t
	return u, nil
}

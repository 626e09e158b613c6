package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetAPITokenFromEnv(t *testing.T) {
	t.Setenv("RADBENCH_API_TOKEN", "env-token")

	tok, err := GetAPIToken(t.TempDir())
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if tok != "env-token" {
		t.Errorf("token = %q, want env-token", tok)
	}
}

func TestGetAPITokenFromFile(t *testing.T) {
	t.Setenv("RADBENCH_API_TOKEN", "")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "api_token"), []byte("file-token\n"), 0o600); err != nil {
		t.Fatalf("writing token file: %v", err)
	}

	tok, err := GetAPIToken(dir)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if tok != "file-token" {
		t.Errorf("token = %q, want file-token", tok)
	}
}

func TestGetAPITokenGeneratesAndPersists(t *testing.T) {
	t.Setenv("RADBENCH_API_TOKEN", "")
	dir := t.TempDir()

	tok, err := GetAPIToken(dir)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if len(tok) != 64 {
		t.Errorf("generated token length = %d, want 64 hex chars", len(tok))
	}

	// A second call returns the persisted token.
	tok2, err := GetAPIToken(dir)
	if err != nil {
		t.Fatalf("second GetAPIToken: %v", err)
	}
	if tok2 != tok {
		t.Errorf("second call = %q, want %q", tok2, tok)
	}
}

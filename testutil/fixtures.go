package testutil

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateSQLiteFixture creates a state database file holding preferences
func CreateSQLiteFixture(t *testing.T, dbPath string, prefs map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS preferences (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	for k, v := range prefs {
		if _, err := db.Exec("INSERT INTO preferences (key, value) VALUES (?, ?)", k, v); err != nil {
			t.Fatalf("Failed to insert %s: %v", k, err)
		}
	}
}

// CreateCacheFixture creates a cache file fixture
func CreateCacheFixture(t *testing.T, cachePath string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		t.Fatalf("Failed to create cache directory: %v", err)
	}
	if err := os.WriteFile(cachePath, data, 0644); err != nil {
		t.Fatalf("Failed to write cache file: %v", err)
	}
}

// NewServer starts an httptest server that is closed with the test
func NewServer(t *testing.T, h http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

// StaticResponse serves the same status and body for every request
func StaticResponse(status int, contentType, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

// SessionJSON is a get-session response with one formal round whose
// second response failed
const SessionJSON = `{
  "session": {
    "id": "abc123",
    "title": "Sky colour",
    "is_pinned": true,
    "folder_id": "folder-1",
    "created_at": "2024-05-01T12:00:00Z",
    "rounds": [
      {
        "question": "Why is the sky blue?",
        "mode": "formal",
        "status": "complete",
        "responses": [
          {"model_id": "openai/gpt", "model_name": "GPT", "response": "Rayleigh scattering.", "response_time_ms": 1200},
          {"model_id": "google/gemini", "model_name": "Gemini", "error": "upstream timeout", "response_time_ms": 30000},
          {"model_id": "anthropic/claude", "model_name": "Claude", "response": "Shorter wavelengths scatter more.", "response_time_ms": 900}
        ],
        "peer_reviews": [
          {"reviewer_model": "openai/gpt", "rankings": [{"response_num": 2, "rank": 1, "reasoning": "clearer"}, {"response_num": 1, "rank": 2}]}
        ],
        "disagreement_analysis": [
          {"model_id": "anthropic/claude", "model_name": "Claude", "ranks_received": [1, 2], "mean_rank": 1.5, "disagreement_score": 0.5, "has_disagreement": false}
        ],
        "final_synthesis": "Blue light scatters most in the atmosphere."
      }
    ]
  }
}`

package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateInMemoryDB creates an in-memory SQLite database with the
// preferences table
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	// every pooled connection would otherwise see its own empty database
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS preferences (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		t.Fatalf("Failed to create preferences table: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// CreateTestDB creates a test database with sample preferences
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)

	rows := []struct {
		key   string
		value string
	}{
		{"selected_models", `["openai/gpt","anthropic/claude"]`},
		{"mode", "chat"},
		{"sidebar_collapsed", "true"},
		{"folder_collapsed:folder-1", "true"},
		{"folder_collapsed:folder-2", "false"},
	}
	for _, r := range rows {
		if _, err := db.Exec("INSERT INTO preferences (key, value) VALUES (?, ?)", r.key, r.value); err != nil {
			t.Fatalf("Failed to insert %s: %v", r.key, err)
		}
	}

	return db
}

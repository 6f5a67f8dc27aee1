package internal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Preference keys
const (
	PrefSelectedModels    = "selected_models"
	PrefMode              = "mode"
	PrefSidebarCollapsed  = "sidebar_collapsed"
	prefFolderCollapsedNS = "folder_collapsed:"
)

// FolderCollapsedKey is the preference key for one folder's collapsed flag
func FolderCollapsedKey(folderID string) string {
	return prefFolderCollapsedNS + folderID
}

// Preferences is client-local key-value persistence
type Preferences interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// MemoryPreferences keeps preferences for the life of the process
type MemoryPreferences struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryPreferences creates an empty in-memory store
func NewMemoryPreferences() *MemoryPreferences {
	return &MemoryPreferences{values: make(map[string]string)}
}

func (m *MemoryPreferences) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryPreferences) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryPreferences) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Keys lists stored keys in sorted order
func (m *MemoryPreferences) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SQLitePreferences persists preferences in the local state database
type SQLitePreferences struct {
	db   *sql.DB
	path string
}

// OpenPreferences opens the state database at path
func OpenPreferences(path string) (*SQLitePreferences, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	return &SQLitePreferences{db: db, path: path}, nil
}

// NewSQLitePreferences wraps an already open database
func NewSQLitePreferences(db *sql.DB) (*SQLitePreferences, error) {
	if err := InitSchema(db); err != nil {
		return nil, err
	}
	return &SQLitePreferences{db: db}, nil
}

func (s *SQLitePreferences) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &StorageError{Path: s.path, Op: "read", Err: err}
	}
	return value, true, nil
}

func (s *SQLitePreferences) Set(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO preferences (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	return nil
}

func (s *SQLitePreferences) Remove(key string) error {
	if _, err := s.db.Exec("DELETE FROM preferences WHERE key = ?", key); err != nil {
		return &StorageError{Path: s.path, Op: "delete", Err: err}
	}
	return nil
}

// List returns every stored preference whose key starts with prefix
func (s *SQLitePreferences) List(prefix string) ([]KeyValuePair, error) {
	// "_" and "%" are LIKE wildcards; the prefix check below makes them exact
	pattern := strings.ReplaceAll(prefix, "%", "_") + "%"
	pairs, err := QueryPreferences(s.db, pattern)
	if err != nil {
		return nil, err
	}
	out := pairs[:0]
	for _, p := range pairs {
		if strings.HasPrefix(p.Key, prefix) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Path returns the database location
func (s *SQLitePreferences) Path() string {
	return s.path
}

// Close closes the database
func (s *SQLitePreferences) Close() error {
	return s.db.Close()
}

// GetBool reads a boolean preference; missing or unreadable values are false
func GetBool(p Preferences, key string) bool {
	v, ok, err := p.Get(key)
	if err != nil || !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// SetBool stores a boolean preference
func SetBool(p Preferences, key string, value bool) error {
	return p.Set(key, strconv.FormatBool(value))
}

// GetStrings reads a JSON string list preference
func GetStrings(p Preferences, key string) ([]string, bool, error) {
	v, ok, err := p.Get(key)
	if err != nil || !ok {
		return nil, false, err
	}
	var out []string
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return nil, false, &ParseError{Source: "prefs", Key: key, Err: err}
	}
	return out, true, nil
}

// SetStrings stores a string list preference as JSON
func SetStrings(p Preferences, key string, values []string) error {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return p.Set(key, string(data))
}

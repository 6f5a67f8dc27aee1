package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// CacheVersion is bumped whenever the cached document layout changes
const CacheVersion = "2.0"

// CacheManager keeps offline copies of sessions fetched from the server
type CacheManager struct {
	cacheDir string
}

// CacheMetadata stores metadata about the cache
type CacheMetadata struct {
	ServerURL    string    `json:"server_url" yaml:"server_url"`
	CacheVersion string    `json:"cache_version" yaml:"cache_version"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// SessionIndexEntry represents a session entry in the index
type SessionIndexEntry struct {
	ID         string    `yaml:"id"`
	Title      string    `yaml:"title,omitempty"`
	Question   string    `yaml:"question,omitempty"`
	Mode       Mode      `yaml:"mode"`
	RoundCount int       `yaml:"round_count"`
	CreatedAt  string    `yaml:"created_at,omitempty"`
	CachedAt   time.Time `yaml:"cached_at"`
	Digest     string    `yaml:"digest"`
}

// Summary converts the entry into a catalog row
func (e SessionIndexEntry) Summary() SessionSummary {
	return SessionSummary{
		ID:         e.ID,
		Title:      e.Title,
		Question:   e.Question,
		RoundCount: e.RoundCount,
		CreatedAt:  e.CreatedAt,
	}
}

// SessionIndex represents the YAML index of all cached sessions
type SessionIndex struct {
	Sessions []SessionIndexEntry `yaml:"sessions"`
	Metadata CacheMetadata       `yaml:"metadata"`
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cacheDir string) *CacheManager {
	return &CacheManager{
		cacheDir: cacheDir,
	}
}

// EnsureCacheDir ensures the cache directory exists
func (cm *CacheManager) EnsureCacheDir() error {
	return os.MkdirAll(cm.cacheDir, 0755)
}

// GetIndexPath returns the path to the session index YAML file
func (cm *CacheManager) GetIndexPath() string {
	return filepath.Join(cm.cacheDir, "sessions.yaml")
}

// GetSessionPath returns the path to a session's cache file
func (cm *CacheManager) GetSessionPath(sessionID string) string {
	return filepath.Join(cm.cacheDir, fmt.Sprintf("session_%s.json", sessionID))
}

// GetCacheDir returns the cache directory path
func (cm *CacheManager) GetCacheDir() string {
	return cm.cacheDir
}

// IsCacheValid reports whether the cache was written for serverURL by this
// version of the cache layout
func (cm *CacheManager) IsCacheValid(serverURL string) (bool, error) {
	if _, err := os.Stat(cm.GetIndexPath()); os.IsNotExist(err) {
		return false, nil
	}

	index, err := cm.LoadIndex()
	if err != nil {
		return false, nil
	}

	if index.Metadata.ServerURL != serverURL {
		return false, nil
	}
	return index.Metadata.CacheVersion == CacheVersion, nil
}

// LoadIndex loads the session index
func (cm *CacheManager) LoadIndex() (*SessionIndex, error) {
	indexPath := cm.GetIndexPath()
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, err
	}

	var index SessionIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, &ParseError{Source: "cache", Key: indexPath, Err: err}
	}

	return &index, nil
}

// SaveIndex saves the session index
func (cm *CacheManager) SaveIndex(index *SessionIndex) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	indexPath := cm.GetIndexPath()
	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	return os.WriteFile(indexPath, data, 0644)
}

// SaveSession saves a single session to its cache file
func (cm *CacheManager) SaveSession(session *Session) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	sessionPath := cm.GetSessionPath(session.ID)
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return os.WriteFile(sessionPath, data, 0644)
}

// LoadSession loads a single session from its cache file
func (cm *CacheManager) LoadSession(sessionID string) (*Session, error) {
	sessionPath := cm.GetSessionPath(sessionID)
	data, err := os.ReadFile(sessionPath)
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, &ParseError{Source: "cache", Key: sessionPath, Err: err}
	}

	return &session, nil
}

// LoadAllSessions loads all sessions from cache
func (cm *CacheManager) LoadAllSessions() ([]*Session, error) {
	index, err := cm.LoadIndex()
	if err != nil {
		return nil, err
	}

	var sessions []*Session
	for _, entry := range index.Sessions {
		session, err := cm.LoadSession(entry.ID)
		if err != nil {
			LogDebug("Skipping cached session %s: %v", entry.ID, err)
			continue
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}

// SaveSessionAndUpdateIndex caches one session and records it in the index.
// The session file is only rewritten when its content digest changed; the
// returned flag reports whether it was.
func (cm *CacheManager) SaveSessionAndUpdateIndex(session *Session, serverURL string) (bool, error) {
	if err := cm.EnsureCacheDir(); err != nil {
		return false, err
	}

	now := time.Now()
	var index *SessionIndex
	if existing, err := cm.LoadIndex(); err == nil && existing != nil &&
		existing.Metadata.ServerURL == serverURL && existing.Metadata.CacheVersion == CacheVersion {
		index = existing
		index.Metadata.UpdatedAt = now
	}
	if index == nil {
		index = newSessionIndex(serverURL, now)
	}

	entry := indexEntry(session, now)
	pos := -1
	for i, e := range index.Sessions {
		if e.ID == session.ID {
			pos = i
			break
		}
	}

	changed := pos < 0 || index.Sessions[pos].Digest != entry.Digest
	if _, err := os.Stat(cm.GetSessionPath(session.ID)); err != nil {
		changed = true
	}
	if changed {
		if err := cm.SaveSession(session); err != nil {
			return false, fmt.Errorf("failed to save session: %w", err)
		}
	}

	if pos < 0 {
		index.Sessions = append(index.Sessions, entry)
	} else {
		index.Sessions[pos] = entry
	}

	return changed, cm.SaveIndex(index)
}

// SaveSessions replaces the cache with sessions
func (cm *CacheManager) SaveSessions(sessions []*Session, serverURL string) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	now := time.Now()
	index := newSessionIndex(serverURL, now)
	for _, session := range sessions {
		if err := cm.SaveSession(session); err != nil {
			LogWarn("Failed to save session %s: %v", session.ID, err)
			continue
		}
		index.Sessions = append(index.Sessions, indexEntry(session, now))
	}

	return cm.SaveIndex(index)
}

// RemoveSession drops one session from the cache
func (cm *CacheManager) RemoveSession(sessionID string) error {
	index, err := cm.LoadIndex()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	kept := index.Sessions[:0]
	for _, e := range index.Sessions {
		if e.ID != sessionID {
			kept = append(kept, e)
		}
	}
	index.Sessions = kept
	if err := os.Remove(cm.GetSessionPath(sessionID)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return cm.SaveIndex(index)
}

// ClearCache clears the cache
func (cm *CacheManager) ClearCache() error {
	indexPath := cm.GetIndexPath()

	index, err := cm.LoadIndex()
	if err == nil {
		for _, entry := range index.Sessions {
			_ = os.Remove(cm.GetSessionPath(entry.ID))
		}
	}

	if err := os.Remove(indexPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

func newSessionIndex(serverURL string, now time.Time) *SessionIndex {
	return &SessionIndex{
		Sessions: make([]SessionIndexEntry, 0),
		Metadata: CacheMetadata{
			ServerURL:    serverURL,
			CacheVersion: CacheVersion,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

func indexEntry(session *Session, now time.Time) SessionIndexEntry {
	entry := SessionIndexEntry{
		ID:         session.ID,
		Title:      session.Title,
		Mode:       session.Mode(),
		RoundCount: len(session.Rounds),
		CreatedAt:  session.CreatedAt,
		CachedAt:   now,
		Digest:     SessionDigest(session),
	}
	if len(session.Rounds) > 0 {
		entry.Question = session.Rounds[0].Question
	}
	return entry
}

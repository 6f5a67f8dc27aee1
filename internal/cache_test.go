package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iksnae/council-session/testutil"
)

const testServerURL = "http://council.test"

func TestNewCacheManager(t *testing.T) {
	cacheDir := testutil.CreateTempDir(t)
	cm := NewCacheManager(cacheDir)
	if cm == nil {
		t.Fatal("NewCacheManager() returned nil")
	}
	if cm.GetCacheDir() != cacheDir {
		t.Errorf("GetCacheDir() = %q, want %q", cm.GetCacheDir(), cacheDir)
	}
}

func TestCacheManager_Paths(t *testing.T) {
	cacheDir := testutil.CreateTempDir(t)
	cm := NewCacheManager(cacheDir)

	if got, want := cm.GetIndexPath(), filepath.Join(cacheDir, "sessions.yaml"); got != want {
		t.Errorf("GetIndexPath() = %q, want %q", got, want)
	}
	if got, want := cm.GetSessionPath("abc"), filepath.Join(cacheDir, "session_abc.json"); got != want {
		t.Errorf("GetSessionPath() = %q, want %q", got, want)
	}
}

func TestCacheManager_IsCacheValid(t *testing.T) {
	cacheDir := testutil.CreateTempDir(t)
	cm := NewCacheManager(cacheDir)

	tests := []struct {
		name  string
		index *SessionIndex
		want  bool
	}{
		{
			name:  "cache does not exist",
			index: nil,
			want:  false,
		},
		{
			name:  "cache exists and is valid",
			index: &SessionIndex{Metadata: CacheMetadata{ServerURL: testServerURL, CacheVersion: CacheVersion}},
			want:  true,
		},
		{
			name:  "server mismatch",
			index: &SessionIndex{Metadata: CacheMetadata{ServerURL: "http://elsewhere", CacheVersion: CacheVersion}},
			want:  false,
		},
		{
			name:  "old cache layout",
			index: &SessionIndex{Metadata: CacheMetadata{ServerURL: testServerURL, CacheVersion: "1.0"}},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = os.Remove(cm.GetIndexPath())
			if tt.index != nil {
				if err := cm.SaveIndex(tt.index); err != nil {
					t.Fatalf("SaveIndex() error = %v", err)
				}
			}

			got, err := cm.IsCacheValid(testServerURL)
			if err != nil {
				t.Fatalf("IsCacheValid() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsCacheValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCacheManager_CorruptIndex(t *testing.T) {
	cacheDir := testutil.CreateTempDir(t)
	cm := NewCacheManager(cacheDir)
	testutil.CreateCacheFixture(t, cm.GetIndexPath(), []byte("sessions: [unterminated"))

	if _, err := cm.LoadIndex(); err == nil {
		t.Error("LoadIndex() expected error for corrupt YAML")
	}
	if ok, _ := cm.IsCacheValid(testServerURL); ok {
		t.Error("IsCacheValid() = true for corrupt index")
	}
}

func TestCacheManager_SaveAndLoadSession(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	session := CreateTestSession("test-session")

	if err := cm.SaveSession(session); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	loaded, err := cm.LoadSession(session.ID)
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if loaded.ID != session.ID {
		t.Errorf("LoadSession() ID = %q, want %q", loaded.ID, session.ID)
	}
	if SessionDigest(loaded) != SessionDigest(session) {
		t.Error("LoadSession() content differs from what was saved")
	}
	if got := len(ProjectSession(loaded)); got != 8 {
		t.Errorf("ProjectSession(loaded) = %d entries, want 8", got)
	}
}

func TestCacheManager_SaveSessionAndUpdateIndex(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	session := CreateTestSession("s1")

	changed, err := cm.SaveSessionAndUpdateIndex(session, testServerURL)
	if err != nil {
		t.Fatalf("SaveSessionAndUpdateIndex() error = %v", err)
	}
	if !changed {
		t.Error("first save should report a change")
	}

	// a rename is metadata only
	session.Title = "Renamed"
	changed, err = cm.SaveSessionAndUpdateIndex(session, testServerURL)
	if err != nil {
		t.Fatalf("SaveSessionAndUpdateIndex() error = %v", err)
	}
	if changed {
		t.Error("metadata-only update should not rewrite the session file")
	}

	session.Rounds = append(session.Rounds, CreateTestFormalRound("And then?"))
	changed, _ = cm.SaveSessionAndUpdateIndex(session, testServerURL)
	if !changed {
		t.Error("new round should rewrite the session file")
	}

	index, err := cm.LoadIndex()
	if err != nil {
		t.Fatalf("LoadIndex() error = %v", err)
	}
	if len(index.Sessions) != 1 {
		t.Fatalf("index has %d entries, want 1", len(index.Sessions))
	}
	entry := index.Sessions[0]
	if entry.Title != "Renamed" || entry.RoundCount != 2 {
		t.Errorf("entry = %+v, want title Renamed and 2 rounds", entry)
	}
	if entry.Summary().DisplayTitle() != "Renamed" {
		t.Errorf("Summary().DisplayTitle() = %q", entry.Summary().DisplayTitle())
	}

	ok, _ := cm.IsCacheValid(testServerURL)
	if !ok {
		t.Error("IsCacheValid() = false after save")
	}
}

func TestCacheManager_ServerChangeResetsIndex(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	if _, err := cm.SaveSessionAndUpdateIndex(CreateTestSession("s1"), testServerURL); err != nil {
		t.Fatal(err)
	}
	if _, err := cm.SaveSessionAndUpdateIndex(CreateTestSession("s2"), "http://other"); err != nil {
		t.Fatal(err)
	}

	index, err := cm.LoadIndex()
	if err != nil {
		t.Fatal(err)
	}
	if len(index.Sessions) != 1 || index.Sessions[0].ID != "s2" {
		t.Errorf("index sessions = %+v, want only s2", index.Sessions)
	}
}

func TestCacheManager_LoadAllSessions(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	sessions := []*Session{CreateTestSession("session1"), CreateTestChatSession("session2", 2)}

	if err := cm.SaveSessions(sessions, testServerURL); err != nil {
		t.Fatalf("SaveSessions() error = %v", err)
	}
	// a missing file is skipped, not fatal
	_ = os.Remove(cm.GetSessionPath("session1"))

	loaded, err := cm.LoadAllSessions()
	if err != nil {
		t.Fatalf("LoadAllSessions() error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "session2" {
		t.Errorf("LoadAllSessions() = %d sessions, want only session2", len(loaded))
	}
}

func TestCacheManager_RemoveAndClear(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	if err := cm.SaveSessions([]*Session{CreateTestSession("a"), CreateTestSession("b")}, testServerURL); err != nil {
		t.Fatal(err)
	}

	if err := cm.RemoveSession("a"); err != nil {
		t.Fatalf("RemoveSession() error = %v", err)
	}
	index, _ := cm.LoadIndex()
	if len(index.Sessions) != 1 {
		t.Errorf("index has %d entries after remove, want 1", len(index.Sessions))
	}
	if _, err := os.Stat(cm.GetSessionPath("a")); !os.IsNotExist(err) {
		t.Error("session file not removed")
	}

	if err := cm.ClearCache(); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}
	if _, err := os.Stat(cm.GetIndexPath()); !os.IsNotExist(err) {
		t.Error("index not removed")
	}
	if _, err := os.Stat(cm.GetSessionPath("b")); !os.IsNotExist(err) {
		t.Error("session file not removed")
	}
	if err := cm.ClearCache(); err != nil {
		t.Errorf("ClearCache() on empty cache error = %v", err)
	}
}

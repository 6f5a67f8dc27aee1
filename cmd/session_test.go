package cmd

import (
	"strings"
	"testing"

	"github.com/iksnae/council-session/internal"
)

func TestSessionRenamePinDelete(t *testing.T) {
	env := newTestEnv(t)
	env.fake.Put(internal.CreateTestSession("s1"))

	if _, err := env.run(t, "session", "rename", "s1", "Sky", "colours"); err != nil {
		t.Fatalf("rename error = %v", err)
	}
	if got := env.fake.Stored("s1").Title; got != "Sky colours" {
		t.Errorf("title = %q, want %q", got, "Sky colours")
	}

	if _, err := env.run(t, "session", "pin", "s1"); err != nil {
		t.Fatalf("pin error = %v", err)
	}
	if !env.fake.Stored("s1").IsPinned {
		t.Error("session should be pinned")
	}
	out, err := env.run(t, "list")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	assertContains(t, out, "📌 Sky colours")

	if _, err := env.run(t, "session", "unpin", "s1"); err != nil {
		t.Fatalf("unpin error = %v", err)
	}
	if env.fake.Stored("s1").IsPinned {
		t.Error("session should be unpinned")
	}

	if _, err := env.run(t, "show", "s1"); err != nil {
		t.Fatalf("show error = %v", err)
	}
	if _, err := env.run(t, "show", "s1", "--offline"); err != nil {
		t.Fatalf("show --offline before delete error = %v", err)
	}
	if _, err := env.run(t, "session", "delete", "s1"); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if env.fake.Stored("s1") != nil {
		t.Error("session should be deleted")
	}
	if _, err := env.run(t, "show", "s1", "--offline"); err == nil {
		t.Error("deleted session should be gone from the offline cache")
	}
}

func TestSessionCommandErrors(t *testing.T) {
	env := newTestEnv(t)
	env.fake.Put(internal.CreateTestSession("s1"))

	tests := []struct {
		name string
		args []string
	}{
		{"rename blank title", []string{"session", "rename", "s1", "  "}},
		{"rename missing title", []string{"session", "rename", "s1"}},
		{"rename unknown", []string{"session", "rename", "nope", "x"}},
		{"pin unknown", []string{"session", "pin", "nope"}},
		{"delete unknown", []string{"session", "delete", "nope"}},
		{"negative branch round", []string{"session", "branch", "s1", "--from-round", "-1"}},
		{"move to unknown folder", []string{"session", "move", "s1", "Nowhere"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.run(t, tt.args...); err == nil {
				t.Errorf("%v should fail", tt.args)
			}
		})
	}
	if got := env.fake.Stored("s1").Title; got != "Test Conversation" {
		t.Errorf("title changed to %q by a failed command", got)
	}
}

func TestSessionShareLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.fake.Put(internal.CreateTestSession("s1"))

	steps := []struct {
		args []string
		want string
	}{
		{[]string{"session", "share-info", "s1"}, "not shared"},
		{[]string{"session", "share", "s1"}, "tok-s1"},
		{[]string{"session", "share-info", "s1"}, "shared: tok-s1"},
		{[]string{"session", "unshare", "s1"}, ""},
		{[]string{"session", "share-info", "s1"}, "not shared"},
	}
	for _, step := range steps {
		out, err := env.run(t, step.args...)
		if err != nil {
			t.Fatalf("%v error = %v", step.args, err)
		}
		if strings.TrimSpace(out) != step.want {
			t.Errorf("%v output = %q, want %q", step.args, strings.TrimSpace(out), step.want)
		}
	}
	if _, err := env.run(t, "shared", "tok-s1"); err == nil {
		t.Error("revoked share token should no longer resolve")
	}
}

func TestSessionBranch(t *testing.T) {
	env := newTestEnv(t)
	s := internal.CreateTestSession("s1")
	s.Rounds = append(s.Rounds, internal.CreateTestFormalRound("second question"))
	env.fake.Put(s)

	tests := []struct {
		name       string
		args       []string
		wantRounds int
	}{
		{"whole session", []string{"session", "branch", "s1"}, 2},
		{"first round only", []string{"session", "branch", "s1", "--from-round", "0"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := env.run(t, tt.args...)
			if err != nil {
				t.Fatalf("branch error = %v", err)
			}
			id := strings.TrimSpace(out)
			branch := env.fake.Stored(id)
			if branch == nil {
				t.Fatalf("branch %q not stored", id)
			}
			if len(branch.Rounds) != tt.wantRounds {
				t.Errorf("branch rounds = %d, want %d", len(branch.Rounds), tt.wantRounds)
			}
			if branch.Title != "Test Conversation (branch)" {
				t.Errorf("branch title = %q", branch.Title)
			}
		})
	}
	if got := len(env.fake.Stored("s1").Rounds); got != 2 {
		t.Errorf("source session rounds = %d, want 2", got)
	}
}

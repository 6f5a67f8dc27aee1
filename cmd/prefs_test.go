package cmd

import (
	"strings"
	"testing"

	"github.com/iksnae/council-session/testutil"
)

func TestPrefsCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "prefs")
	if err != nil {
		t.Fatalf("prefs error = %v", err)
	}
	assertContains(t, out, "No preferences stored")

	if _, err := env.run(t, "mode", "chat"); err != nil {
		t.Fatalf("mode error = %v", err)
	}
	if _, err := env.run(t, "models", "list"); err != nil {
		t.Fatalf("models list error = %v", err)
	}

	out, err = env.run(t, "prefs")
	if err != nil {
		t.Fatalf("prefs error = %v", err)
	}
	assertContains(t, out, "mode", "chat", "selected_models")

	out, err = env.run(t, "prefs", "--format", "json")
	if err != nil {
		t.Fatalf("prefs --format json error = %v", err)
	}
	var values map[string]string
	testutil.JSONUnmarshal(t, []byte(out), &values)
	if values["mode"] != "chat" {
		t.Errorf("mode = %q, want chat", values["mode"])
	}
	if !strings.Contains(values["selected_models"], "openai/gpt") {
		t.Errorf("selected_models = %q, want it to list openai/gpt", values["selected_models"])
	}

	out, err = env.run(t, "prefs", "mo")
	if err != nil {
		t.Fatalf("prefs prefix error = %v", err)
	}
	if strings.Contains(out, "selected_models") {
		t.Errorf("prefix filter leaked other keys:\n%s", out)
	}

	if _, err := env.run(t, "prefs", "--unset", "mode"); err != nil {
		t.Fatalf("prefs --unset error = %v", err)
	}
	out, err = env.run(t, "mode")
	if err != nil {
		t.Fatalf("mode error = %v", err)
	}
	if strings.TrimSpace(out) != "formal" {
		t.Errorf("mode after unset = %q, want formal", strings.TrimSpace(out))
	}
}

func TestPrefsSchema(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "prefs", "--schema")
	if err != nil {
		t.Fatalf("prefs --schema error = %v", err)
	}
	assertContains(t, out, "Table: preferences", "key: TEXT", "[PRIMARY KEY]", "value: TEXT NOT NULL")
}

func TestPrefsBadFormat(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "prefs", "--format", "xml"); err == nil {
		t.Error("prefs --format xml should fail")
	}
}

package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/iksnae/council-session/internal/config"
)

func TestRootCommand(t *testing.T) {
	newTestEnv(t)

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "version", args: []string{"--version"}, want: "dev"},
		{name: "help", args: []string{"--help"}, want: "council"},
		{name: "unknown command", args: []string{"nosuchcommand"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want != "" && !strings.Contains(out, tt.want) {
				t.Errorf("Execute() output = %q, want it to contain %q", out, tt.want)
			}
		})
	}
}

func TestInvalidConfigurationRejected(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("COUNCIL_SESSION_LOAD_TIMEOUT", "-1s")

	_, err := env.run(t, "list")
	if err == nil {
		t.Fatal("list with a negative load timeout should fail")
	}
	if !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("error = %q, want it to mention invalid configuration", err)
	}
	if !strings.Contains(err.Error(), "session.load_timeout") {
		t.Errorf("error = %q, want it to name session.load_timeout", err)
	}
}

func TestMinLoadDisplay(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"zero disables", 0, -1},
		{"positive kept", 250 * time.Millisecond, 250 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Session.MinLoadDisplay = tt.in
			if got := minLoadDisplay(cfg); got != tt.want {
				t.Errorf("minLoadDisplay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChatRequiresTerminal(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "chat")
	if err == nil || !strings.Contains(err.Error(), "interactive terminal") {
		t.Errorf("chat without a terminal error = %v, want interactive terminal error", err)
	}
}

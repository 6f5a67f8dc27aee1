package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iksnae/council-session/internal"
	"github.com/iksnae/council-session/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// testEnv is a fake council server plus isolated config and state dirs
type testEnv struct {
	fake     *internal.FakeService
	url      string
	stateDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fake := internal.NewFakeService()
	srv := testutil.NewServer(t, internal.NewFakeHandler(fake))

	env := &testEnv{fake: fake, url: srv.URL, stateDir: testutil.CreateTempDir(t)}
	t.Setenv("XDG_CONFIG_HOME", testutil.CreateTempDir(t))
	t.Setenv("COUNCIL_STATE_DIR", env.stateDir)
	t.Setenv("COUNCIL_CHAT_REVEAL_DELAY", "1ms")
	t.Setenv("COUNCIL_SESSION_MIN_LOAD_DISPLAY", "0s")
	return env
}

// run executes the CLI against the fake server
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeCommand(t, append([]string{"--server", e.url}, args...)...)
}

// executeCommand runs rootCmd with fresh flag values and returns stdout
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), err
}

// resetFlags restores every flag in the tree; cobra keeps values between
// Execute calls
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

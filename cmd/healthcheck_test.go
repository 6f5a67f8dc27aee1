package cmd

import (
	"testing"

	"github.com/iksnae/council-session/internal"
)

func TestHealthcheckPasses(t *testing.T) {
	env := newTestEnv(t)
	env.fake.Put(internal.CreateTestSession("s1"))

	// cache one session so step 5 has something to count
	if _, err := env.run(t, "show", "s1"); err != nil {
		t.Fatalf("show error = %v", err)
	}

	out, err := env.run(t, "healthcheck", "-v")
	if err != nil {
		t.Fatalf("healthcheck error = %v\n%s", err, out)
	}
	assertContains(t, out,
		"State directory ready",
		"Preferences readable",
		"Service is healthy",
		"Found 3 model(s)",
		"Claude (chairman)",
		"1 session(s) cached",
		"Health check passed!",
	)
}

func TestHealthcheckServiceDown(t *testing.T) {
	newTestEnv(t)

	out, err := executeCommand(t, "--server", "http://127.0.0.1:1", "healthcheck", "--timeout", "2s")
	if err == nil {
		t.Fatal("healthcheck against a closed port should fail")
	}
	assertContains(t, out, "Service unreachable", "Skipped, service unreachable", "Health check failed", "http://127.0.0.1:1")
}

func TestHealthcheckModelsFail(t *testing.T) {
	env := newTestEnv(t)
	env.fake.FailOp("list-models", &internal.DomainError{Op: "list-models", Status: 500, Message: "catalog offline"})

	out, err := env.run(t, "healthcheck")
	if err == nil {
		t.Fatal("healthcheck should fail when the model catalog cannot load")
	}
	assertContains(t, out, "Failed to load models", "Health check failed")
}

package internal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaceDeadline_ResultBeforeDeadline(t *testing.T) {
	got, err := RaceDeadline(context.Background(), "op", time.Second, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestRaceDeadline_ErrorBeforeDeadline(t *testing.T) {
	want := errors.New("boom")
	_, err := RaceDeadline(context.Background(), "op", time.Second, func(context.Context) (int, error) {
		return 0, want
	})
	assert.ErrorIs(t, err, want)
}

func TestRaceDeadline_Timeout(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	start := time.Now()

	got, err := RaceDeadline(context.Background(), "get-session", 30*time.Millisecond, func(context.Context) (string, error) {
		defer close(finished)
		<-release
		return "late", nil
	})

	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Empty(t, got)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	// the operation settles later without blocking on the abandoned channel
	close(release)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("operation goroutine did not finish after release")
	}
}

func TestRaceDeadline_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RaceDeadline(ctx, "op", time.Second, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithMinDuration(t *testing.T) {
	tests := []struct {
		name    string
		opErr   error
		opDelay time.Duration
		floor   time.Duration
	}{
		{"instant success", nil, 0, 40 * time.Millisecond},
		{"instant failure", errors.New("failed"), 0, 40 * time.Millisecond},
		{"slow op", nil, 60 * time.Millisecond, 20 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			_, err := WithMinDuration(context.Background(), tt.floor, func() (int, error) {
				time.Sleep(tt.opDelay)
				return 1, tt.opErr
			})
			elapsed := time.Since(start)

			assert.Equal(t, tt.opErr, err)
			assert.GreaterOrEqual(t, elapsed, tt.floor)
			assert.GreaterOrEqual(t, elapsed, tt.opDelay)
		})
	}
}

func TestEpoch(t *testing.T) {
	var e Epoch
	first := e.Next()
	assert.True(t, e.Valid(first))

	second := e.Next()
	assert.False(t, e.Valid(first))
	assert.True(t, e.Valid(second))
	assert.Equal(t, second, e.Current())
	assert.Greater(t, second, first)
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}

package internal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, opts ControllerOptions) (*Controller, *FakeService) {
	t.Helper()
	fake := NewFakeService()
	if opts.RevealDelay == 0 {
		opts.RevealDelay = time.Millisecond
	}
	if opts.MinLoadDisplay == 0 {
		opts.MinLoadDisplay = -1
	}
	c := NewController(fake, NewMemoryPreferences(), opts)
	t.Cleanup(c.Close)
	return c, fake
}

func kinds(msgs []DisplayMessage) []MessageKind {
	out := make([]MessageKind, len(msgs))
	for i, m := range msgs {
		out[i] = m.Kind
	}
	return out
}

func TestController_SubmitFormalNewSession(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})

	var statuses []string
	c.Subscribe(func(s State) {
		if s.Status != "" && (len(statuses) == 0 || statuses[len(statuses)-1] != s.Status) {
			statuses = append(statuses, s.Status)
		}
	})

	require.NoError(t, c.SubmitQuestion(context.Background(), "  Why is the sky blue?  "))

	st := c.State()
	assert.Equal(t, "sess-1", st.SessionID)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Status)
	assert.Equal(t, []MessageKind{KindUser, KindSystem, KindCouncil, KindCouncil, KindCouncil, KindVoting, KindSystem, KindChairman}, kinds(st.Messages))
	assert.Equal(t, "Why is the sky blue?", st.Messages[0].Content)
	for i, m := range st.Messages {
		assert.Equal(t, i, m.Order)
	}

	assert.Equal(t, []string{StatusGathering, StatusReviewing, StatusDeciding}, statuses)
	assert.Equal(t, 1, fake.CallCount("list-sessions"), "catalog refreshed after a new session")
	assert.Len(t, c.Catalog().Sessions(), 1)
}

func TestController_ChatRevealsEachMessage(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})
	require.NoError(t, c.SetMode(ModeChat))

	var typing []string
	c.Subscribe(func(s State) {
		if strings.HasSuffix(s.Status, "is typing...") && (len(typing) == 0 || typing[len(typing)-1] != s.Status) {
			typing = append(typing, s.Status)
		}
	})

	require.NoError(t, c.SubmitQuestion(context.Background(), "hello"))

	st := c.State()
	assert.Equal(t, []MessageKind{KindUser, KindChat, KindChat, KindChat}, kinds(st.Messages))
	assert.Equal(t, "Claude", st.Messages[2].ModelName)
	assert.Equal(t, "GPT", st.Messages[2].ReplyTo)
	assert.Equal(t, []string{"GPT is typing...", "Claude is typing...", "Gemini is typing..."}, typing)
	assert.Equal(t, 0, fake.CallCount("gather-responses"))
}

func TestController_RejectsBlankQuestion(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})

	for _, q := range []string{"", "   ", "\n\t"} {
		err := c.SubmitQuestion(context.Background(), q)
		assert.ErrorIs(t, err, ErrEmptyQuestion)
	}
	assert.Empty(t, fake.Calls())
	assert.Empty(t, c.State().Messages)
}

func TestController_SingleRoundInFlight(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})
	release := fake.Gate("gather-responses")
	t.Cleanup(release)

	done := make(chan error, 1)
	go func() { done <- c.SubmitQuestion(context.Background(), "first") }()

	require.Eventually(t, func() bool { return fake.CallCount("gather-responses") == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, c.State().Loading)

	err := c.SubmitQuestion(context.Background(), "second")
	assert.ErrorIs(t, err, ErrOrchestrationInFlight)

	release()
	require.NoError(t, <-done)
	assert.Equal(t, 1, fake.CallCount("create-session"))
	assert.False(t, c.State().Loading)
}

func TestController_ContinuationKeepsSessionMode(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})
	fake.Put(CreateTestChatSession("c1", 2))

	require.NoError(t, c.LoadSession(context.Background(), "c1"))
	require.Equal(t, ModeFormal, c.Mode())

	require.NoError(t, c.SubmitQuestion(context.Background(), "follow up"))

	assert.Equal(t, 1, fake.CallCount("continue-session"))
	assert.Equal(t, 1, fake.CallCount("run-all"))
	assert.Equal(t, 0, fake.CallCount("gather-responses"))
	assert.Equal(t, 0, fake.CallCount("list-sessions"), "continuations do not refresh the catalog")

	st := c.State()
	assert.Equal(t, "c1", st.SessionID)
	// round one: user + 2 chat, round two: user + 3 chat
	assert.Len(t, st.Messages, 7)
}

func TestController_RoundFailureAppendsError(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})
	fake.FailOp("request-reviews", &DomainError{Op: "request-reviews", Message: "Reviewers unavailable"})

	err := c.SubmitQuestion(context.Background(), "q")
	require.Error(t, err)

	st := c.State()
	assert.False(t, st.Loading)
	assert.Equal(t, "sess-1", st.SessionID, "created session is kept")
	last := st.Messages[len(st.Messages)-1]
	assert.Equal(t, KindError, last.Kind)
	assert.Equal(t, "Reviewers unavailable", last.Content)
	assert.Equal(t, 0, fake.CallCount("synthesize"))
}

func TestController_CreateFailureKeepsQuestion(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})
	fake.FailOp("create-session", &ValidationError{Op: "create-session", Message: "model_ids must not be empty"})

	require.Error(t, c.SubmitQuestion(context.Background(), "q"))

	st := c.State()
	assert.Empty(t, st.SessionID)
	assert.Equal(t, []MessageKind{KindUser, KindError}, kinds(st.Messages))
	assert.Equal(t, "model_ids must not be empty", st.Messages[1].Content)
}

func TestController_LoadSessionTimeout(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{LoadTimeout: 20 * time.Millisecond})
	release := fake.Gate("get-session")
	t.Cleanup(release)
	fake.Put(CreateTestSession("s1"))

	err := c.LoadSession(context.Background(), "s1")
	require.Error(t, err)
	assert.True(t, IsTimeout(err))

	st := c.State()
	assert.False(t, st.SessionLoading)
	assert.True(t, st.LoadFailed)
	assert.Equal(t, LoadErrorTimeout, st.LoadError)
	assert.Empty(t, st.Messages)
}

func TestController_LoadSessionGenericFailure(t *testing.T) {
	c, _ := newTestController(t, ControllerOptions{})

	err := c.LoadSession(context.Background(), "missing")
	require.Error(t, err)

	st := c.State()
	assert.True(t, st.LoadFailed)
	assert.Equal(t, LoadErrorGeneric, st.LoadError)
}

func TestController_LoadSessionMinimumDisplay(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{MinLoadDisplay: 80 * time.Millisecond})
	fake.Put(CreateTestSession("s1"))

	sawLoading := false
	c.Subscribe(func(s State) {
		if s.SessionLoading {
			sawLoading = true
		}
	})

	start := time.Now()
	require.NoError(t, c.LoadSession(context.Background(), "s1"))

	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.True(t, sawLoading)
	st := c.State()
	assert.False(t, st.SessionLoading)
	assert.Equal(t, "s1", st.SessionID)
	assert.Len(t, st.Messages, 8)
}

func TestController_StaleRoundDiscarded(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})
	release := fake.Gate("synthesize")
	t.Cleanup(release)

	done := make(chan error, 1)
	go func() { done <- c.SubmitQuestion(context.Background(), "q") }()
	require.Eventually(t, func() bool { return fake.CallCount("synthesize") == 1 }, time.Second, 5*time.Millisecond)

	c.StartNewChat()
	release()
	require.NoError(t, <-done)

	st := c.State()
	assert.Empty(t, st.SessionID)
	assert.Empty(t, st.Messages)
	assert.False(t, st.Loading)
}

func TestController_ReloadDuringRoundRefused(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})
	fake.Put(CreateTestSession("s2"))
	release := fake.Gate("synthesize")
	t.Cleanup(release)

	done := make(chan error, 1)
	go func() { done <- c.SubmitQuestion(context.Background(), "first") }()
	require.Eventually(t, func() bool { return fake.CallCount("synthesize") == 1 }, time.Second, 5*time.Millisecond)

	err := c.LoadSession(context.Background(), "sess-1")
	assert.ErrorIs(t, err, ErrOrchestrationInFlight)
	assert.True(t, c.State().Loading, "gate stays closed")
	assert.ErrorIs(t, c.SubmitQuestion(context.Background(), "second"), ErrOrchestrationInFlight)
	assert.Zero(t, fake.CallCount("get-session"))

	// another session is free to load while the round finishes
	require.NoError(t, c.LoadSession(context.Background(), "s2"))
	assert.ErrorIs(t, c.LoadSession(context.Background(), "sess-1"), ErrOrchestrationInFlight)

	release()
	require.NoError(t, <-done)
	assert.Zero(t, fake.CallCount("continue-session"))

	require.NoError(t, c.LoadSession(context.Background(), "sess-1"))
	require.NoError(t, c.SubmitQuestion(context.Background(), "second"))
	assert.Equal(t, 1, fake.CallCount("continue-session"))
	assert.Len(t, fake.Stored("sess-1").Rounds, 2)
}

func TestController_SnapshotsAreIndependent(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})
	s := CreateTestSession("s1")
	s.Rounds[0].DisagreementAnalysis = []DisagreementAnalysis{{
		ModelID:         s.Rounds[0].Responses[0].ModelID,
		RanksReceived:   []int{1, 3},
		MeanRank:        2,
		HasDisagreement: true,
	}}
	fake.Put(s)
	require.NoError(t, c.LoadSession(context.Background(), "s1"))

	snap := c.State()
	var disputed, voting *DisplayMessage
	for i := range snap.Messages {
		m := &snap.Messages[i]
		if m.Disagreement != nil {
			disputed = m
		}
		if len(m.Reviews) > 0 {
			voting = m
		}
	}
	require.NotNil(t, disputed)
	require.NotNil(t, voting)

	disputed.Disagreement.MeanRank = 99
	disputed.Disagreement.RanksReceived[0] = 99
	voting.Reviews[0].Rankings[0].Rank = 99

	fresh := c.State()
	for _, m := range fresh.Messages {
		if m.Disagreement != nil {
			assert.Equal(t, 2.0, m.Disagreement.MeanRank)
			assert.Equal(t, []int{1, 3}, m.Disagreement.RanksReceived)
		}
		if len(m.Reviews) > 0 {
			assert.Equal(t, 1, m.Reviews[0].Rankings[0].Rank)
		}
	}
}

func TestController_StartNewChatIdempotent(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})
	require.NoError(t, c.SubmitQuestion(context.Background(), "q"))
	calls := len(fake.Calls())

	c.StartNewChat()
	first := c.State()
	c.StartNewChat()

	assert.Equal(t, first, c.State())
	assert.Equal(t, State{Mode: ModeFormal}, first)
	assert.Len(t, fake.Calls(), calls, "no remote calls")
}

func TestController_DeleteActiveSessionResets(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})
	fake.Put(CreateTestSession("s1"))
	fake.Put(CreateTestSession("s2"))
	require.NoError(t, c.LoadSession(context.Background(), "s1"))
	c.SetDraft("half typed")

	require.NoError(t, c.DeleteSession(context.Background(), "s1"))

	assert.Equal(t, State{Mode: ModeFormal}, c.State())
	assert.Len(t, c.Catalog().Sessions(), 1)
}

func TestController_DeleteOtherSessionKeepsState(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})
	fake.Put(CreateTestSession("s1"))
	fake.Put(CreateTestSession("s2"))
	require.NoError(t, c.LoadSession(context.Background(), "s1"))

	require.NoError(t, c.DeleteSession(context.Background(), "s2"))

	assert.Equal(t, "s1", c.State().SessionID)
}

func TestController_FailedDeleteKeepsActive(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})
	fake.Put(CreateTestSession("s1"))
	require.NoError(t, c.LoadSession(context.Background(), "s1"))
	fake.FailOp("delete-session", errors.New("boom"))

	require.Error(t, c.DeleteSession(context.Background(), "s1"))
	assert.Equal(t, "s1", c.State().SessionID)
	assert.Equal(t, 1, fake.CallCount("list-sessions"), "refetched even after failure")
}

func TestController_Incognito(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})
	c.SetIncognito(true)

	require.NoError(t, c.SubmitQuestion(context.Background(), "secret"))

	assert.Equal(t, []string{"create-session", "run-all", "delete-session"}, fake.Calls())
	st := c.State()
	assert.Empty(t, st.SessionID)
	assert.True(t, st.Incognito)
	assert.Len(t, st.Messages, 4)
}

func TestController_CloseCancelsReveal(t *testing.T) {
	c, _ := newTestController(t, ControllerOptions{RevealDelay: 200 * time.Millisecond})
	require.NoError(t, c.SetMode(ModeChat))

	done := make(chan error, 1)
	go func() { done <- c.SubmitQuestion(context.Background(), "hello") }()
	require.Eventually(t, func() bool {
		return strings.HasSuffix(c.State().Status, "is typing...")
	}, time.Second, 5*time.Millisecond)

	c.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrRevealCancelled)
	case <-time.After(time.Second):
		t.Fatal("reveal loop kept running after Close")
	}
}

func TestController_BranchLoadsCopy(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})
	fake.Put(CreateTestSession("s1"))

	branch, err := c.BranchSession(context.Background(), "s1", nil)
	require.NoError(t, err)

	st := c.State()
	assert.Equal(t, branch.ID, st.SessionID)
	assert.Len(t, st.Messages, 8)
	assert.Len(t, c.Catalog().Sessions(), 2)
}

func TestController_ViewSharedLeavesState(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})
	fake.Put(CreateTestSession("s1"))
	info, err := c.ShareSession(context.Background(), "s1")
	require.NoError(t, err)

	s, msgs, err := c.ViewShared(context.Background(), info.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)
	assert.Len(t, msgs, 8)
	assert.Empty(t, c.State().SessionID)

	_, _, err = c.ViewShared(context.Background(), "bogus")
	assert.Error(t, err)
}

func TestController_Preferences(t *testing.T) {
	prefs := NewMemoryPreferences()
	c := NewController(NewFakeService(), prefs, ControllerOptions{})
	defer c.Close()

	require.NoError(t, c.SetMode(ModeChat))
	require.NoError(t, c.SetSidebarCollapsed(true))
	collapsed, err := c.ToggleFolderCollapsed("f1")
	require.NoError(t, err)
	assert.True(t, collapsed)

	again := NewController(NewFakeService(), prefs, ControllerOptions{})
	defer again.Close()
	assert.Equal(t, ModeChat, again.Mode())
	assert.True(t, again.SidebarCollapsed())
	assert.True(t, again.FolderCollapsed("f1"))

	collapsed, err = again.ToggleFolderCollapsed("f1")
	require.NoError(t, err)
	assert.False(t, collapsed)
	assert.False(t, c.FolderCollapsed("f1"))
}

func TestController_RefreshModels(t *testing.T) {
	c, _ := newTestController(t, ControllerOptions{})

	require.NoError(t, c.RefreshModels(context.Background()))
	assert.Len(t, c.Models().Catalog(), 3)
	assert.Len(t, c.Models().Selected(), 3)
}

func TestController_SidebarOverlay(t *testing.T) {
	c, fake := newTestController(t, ControllerOptions{})
	fake.Put(CreateTestSession("s1"))

	c.OpenSidebar()
	assert.True(t, c.State().SidebarOpen)

	require.NoError(t, c.LoadSession(context.Background(), "s1"))
	assert.False(t, c.State().SidebarOpen, "loading a session closes the overlay")
}

package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// FormalState is a step of the formal protocol
type FormalState int

const (
	FormalCreated FormalState = iota
	FormalResponsesGathered
	FormalReviewed
	FormalSynthesized
)

func (s FormalState) String() string {
	switch s {
	case FormalCreated:
		return "created"
	case FormalResponsesGathered:
		return "responses_gathered"
	case FormalReviewed:
		return "reviewed"
	case FormalSynthesized:
		return "synthesized"
	default:
		return fmt.Sprintf("formal(%d)", int(s))
	}
}

// ChatState is a step of the chat protocol
type ChatState int

const (
	ChatCreated ChatState = iota
	ChatBatchRequested
	ChatDelivering
	ChatComplete
)

func (s ChatState) String() string {
	switch s {
	case ChatCreated:
		return "created"
	case ChatBatchRequested:
		return "batch_requested"
	case ChatDelivering:
		return "delivering"
	case ChatComplete:
		return "complete"
	default:
		return fmt.Sprintf("chat(%d)", int(s))
	}
}

// Status values surfaced while a round runs
const (
	StatusGathering = "gathering"
	StatusReviewing = "reviewing"
	StatusDeciding  = "deciding"
)

// TypingStatus is the status shown before a chat message is revealed
func TypingStatus(modelName string) string {
	return modelName + " is typing..."
}

// DefaultRevealDelay separates revealed chat messages
const DefaultRevealDelay = 600 * time.Millisecond

// RoundRequest describes one submission
type RoundRequest struct {
	SessionID string // empty starts a new session
	Question  string
	Mode      Mode // used only when SessionID is empty
	ModelIDs  []string
	Ephemeral bool
}

// RoundHooks lets the caller observe a running round. Every hook is
// optional and is called on the engine's goroutine.
type RoundHooks struct {
	// Session is called after each server call that returns the session
	Session func(s *Session)
	// Status is called when the surfaced status changes
	Status func(status string)
	// Reveal delivers the i-th chat message. Returning false stops the
	// reveal loop.
	Reveal func(i int, msg ChatMessage) bool
}

// RoundResult is where a round ended up
type RoundResult struct {
	Session *Session
	Mode    Mode
	Formal  FormalState
	Chat    ChatState
	// Revealed counts chat messages delivered before the loop ended
	Revealed int
}

// Engine runs the formal and chat protocols against the council service
type Engine struct {
	svc         RoundService
	revealDelay time.Duration
	sleep       func(context.Context, time.Duration) error
}

// NewEngine creates an engine. A zero revealDelay uses DefaultRevealDelay.
func NewEngine(svc RoundService, revealDelay time.Duration) *Engine {
	if revealDelay <= 0 {
		revealDelay = DefaultRevealDelay
	}
	return &Engine{svc: svc, revealDelay: revealDelay, sleep: Sleep}
}

// Run creates or continues the session, then drives the round to
// completion. On failure the returned result reports the last state
// reached alongside the error. Nothing is retried.
func (e *Engine) Run(ctx context.Context, req RoundRequest, hooks RoundHooks) (*RoundResult, error) {
	if req.Ephemeral {
		req.Mode = ModeChat
		req.SessionID = ""
	}
	if req.Mode == "" {
		req.Mode = ModeFormal
	}

	session, err := e.start(ctx, req)
	if err != nil {
		return &RoundResult{Mode: req.Mode}, err
	}
	hooks.session(session)

	// a continuation runs in the mode the session was created with
	mode := req.Mode
	if req.SessionID != "" {
		mode = session.Mode()
	}

	log := Logger().WithFields(logrus.Fields{"session_id": session.ID, "mode": mode})
	log.Debug("round created")

	var res *RoundResult
	if mode == ModeChat {
		res, err = e.runChat(ctx, session, hooks, log)
	} else {
		res, err = e.runFormal(ctx, session, hooks, log)
	}

	if req.Ephemeral {
		// deletion outlives the caller's context so a torn-down view still cleans up
		if derr := e.svc.DeleteSession(context.WithoutCancel(ctx), session.ID); derr != nil {
			log.WithError(derr).Warn("failed to delete ephemeral session")
		}
	}
	return res, err
}

func (e *Engine) start(ctx context.Context, req RoundRequest) (*Session, error) {
	if req.SessionID == "" {
		return e.svc.CreateSession(ctx, CreateSessionRequest{
			Question:  req.Question,
			Mode:      req.Mode,
			ModelIDs:  req.ModelIDs,
			Incognito: req.Ephemeral,
		})
	}
	return e.svc.ContinueSession(ctx, req.SessionID, req.Question)
}

// runFormal walks Created -> ResponsesGathered -> Reviewed -> Synthesized
func (e *Engine) runFormal(ctx context.Context, session *Session, hooks RoundHooks, log *logrus.Entry) (*RoundResult, error) {
	res := &RoundResult{Session: session, Mode: ModeFormal, Formal: FormalCreated}

	steps := []struct {
		status string
		call   func(context.Context, string) (*Session, error)
		next   FormalState
	}{
		{StatusGathering, e.svc.GatherResponses, FormalResponsesGathered},
		{StatusReviewing, e.svc.RequestReviews, FormalReviewed},
		{StatusDeciding, e.svc.Synthesize, FormalSynthesized},
	}

	for _, step := range steps {
		hooks.status(step.status)
		updated, err := step.call(ctx, session.ID)
		if err != nil {
			log.WithError(err).WithField("state", res.Formal).Warn("formal round halted")
			return res, err
		}
		session = updated
		res.Session = session
		res.Formal = step.next
		log.WithField("state", res.Formal).Debug("formal transition")
		hooks.session(session)
	}
	return res, nil
}

// runChat walks Created -> BatchRequested -> Delivering(i) -> Complete
func (e *Engine) runChat(ctx context.Context, session *Session, hooks RoundHooks, log *logrus.Entry) (*RoundResult, error) {
	res := &RoundResult{Session: session, Mode: ModeChat, Chat: ChatCreated}

	updated, err := e.svc.RunAll(ctx, session.ID)
	if err != nil {
		log.WithError(err).Warn("chat batch failed")
		return res, err
	}
	res.Session = updated
	res.Chat = ChatBatchRequested

	var batch []ChatMessage
	if r := updated.LastRound(); r != nil {
		batch = r.ChatMessages
	}
	log.WithField("messages", len(batch)).Debug("chat batch received")

	res.Chat = ChatDelivering
	for i, msg := range batch {
		hooks.status(TypingStatus(msg.ModelName))
		if err := e.sleep(ctx, e.revealDelay); err != nil {
			return res, ErrRevealCancelled
		}
		if ctx.Err() != nil || !hooks.reveal(i, msg) {
			return res, ErrRevealCancelled
		}
		res.Revealed = i + 1
	}
	res.Chat = ChatComplete
	hooks.session(updated)
	return res, nil
}

func (h RoundHooks) session(s *Session) {
	if h.Session != nil {
		h.Session(s)
	}
}

func (h RoundHooks) status(s string) {
	if h.Status != nil {
		h.Status(s)
	}
}

func (h RoundHooks) reveal(i int, msg ChatMessage) bool {
	if h.Reveal == nil {
		return true
	}
	return h.Reveal(i, msg)
}

package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Defaults for ControllerOptions
const (
	DefaultLoadTimeout    = 30 * time.Second
	DefaultMinLoadDisplay = 400 * time.Millisecond
)

// ControllerOptions tunes timing. Zero values take the defaults.
type ControllerOptions struct {
	LoadTimeout    time.Duration
	MinLoadDisplay time.Duration
	RevealDelay    time.Duration
}

func (o ControllerOptions) withDefaults() ControllerOptions {
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = DefaultLoadTimeout
	}
	if o.MinLoadDisplay < 0 {
		o.MinLoadDisplay = 0
	} else if o.MinLoadDisplay == 0 {
		o.MinLoadDisplay = DefaultMinLoadDisplay
	}
	if o.RevealDelay <= 0 {
		o.RevealDelay = DefaultRevealDelay
	}
	return o
}

// State is a snapshot of everything a view needs to render
type State struct {
	SessionID      string
	Draft          string
	Messages       []DisplayMessage
	Loading        bool
	Status         string
	SessionLoading bool
	LoadFailed     bool
	LoadError      string
	SidebarOpen    bool
	Incognito      bool
	Mode           Mode
}

func (s State) clone() State {
	if s.Messages != nil {
		msgs := make([]DisplayMessage, len(s.Messages))
		for i, m := range s.Messages {
			msgs[i] = m.Clone()
		}
		s.Messages = msgs
	}
	return s
}

// Controller owns the active conversation. All methods are safe for
// concurrent use; at most one round runs per session.
type Controller struct {
	svc     CouncilService
	engine  *Engine
	catalog *Catalog
	models  *ModelSelection
	prefs   Preferences
	opts    ControllerOptions

	mu          sync.Mutex
	state       State
	epoch       Epoch
	cancelRound context.CancelFunc
	inflight    map[string]int // session id -> rounds still running on it
	subs        map[int]func(State)
	nextSub     int
	closed      bool
}

// NewController wires a controller to the council service and local
// preferences
func NewController(svc CouncilService, prefs Preferences, opts ControllerOptions) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		svc:      svc,
		engine:   NewEngine(svc, opts.RevealDelay),
		catalog:  NewCatalog(svc),
		models:   NewModelSelection(prefs),
		prefs:    prefs,
		opts:     opts,
		inflight: make(map[string]int),
		subs:     make(map[int]func(State)),
	}
	c.state.Mode = ModeFormal
	if v, ok, err := prefs.Get(PrefMode); err == nil && ok {
		if m, perr := ParseMode(v); perr == nil {
			c.state.Mode = m
		}
	}
	return c
}

// Catalog exposes the session and folder lists
func (c *Controller) Catalog() *Catalog {
	return c.catalog
}

// Models exposes the model selection
func (c *Controller) Models() *ModelSelection {
	return c.models
}

// State returns a snapshot of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers fn to receive a snapshot after every change
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// update mutates state under the lock and notifies subscribers
func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()
	publish(subs, snap)
}

// updateIf applies fn only while token is the live epoch
func (c *Controller) updateIf(token uint64, fn func(*State)) bool {
	c.mu.Lock()
	if c.closed || !c.epoch.Valid(token) {
		c.mu.Unlock()
		return false
	}
	fn(&c.state)
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()
	publish(subs, snap)
	return true
}

func (c *Controller) snapshotLocked() (State, []func(State)) {
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return c.state.clone(), subs
}

func publish(subs []func(State), snap State) {
	for _, fn := range subs {
		fn(snap)
	}
}

// SubmitQuestion runs one round for text. A blank question or a round
// already in flight is rejected without any remote call. Protocol
// failures are appended to the transcript and also returned.
func (c *Controller) SubmitQuestion(ctx context.Context, text string) error {
	question := strings.TrimSpace(text)
	if question == "" {
		return ErrEmptyQuestion
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("controller closed")
	}
	if c.state.Loading || c.inflight[c.state.SessionID] > 0 {
		c.mu.Unlock()
		return ErrOrchestrationInFlight
	}
	token := c.epoch.Next()
	held := make(map[string]bool)
	hold := func(id string) {
		if id != "" && !held[id] {
			held[id] = true
			c.inflight[id]++
		}
	}
	hold(c.state.SessionID)
	roundCtx, cancel := context.WithCancel(ctx)
	c.cancelRound = cancel

	base := append([]DisplayMessage(nil), c.state.Messages...)
	c.state.Messages = append(append([]DisplayMessage(nil), base...), DisplayMessage{
		Order:   len(base),
		Kind:    KindUser,
		Content: question,
	})
	c.state.Loading = true
	c.state.Status = ""
	c.state.Draft = ""
	c.state.SessionLoading = false
	c.state.LoadFailed = false
	c.state.LoadError = ""

	req := RoundRequest{
		SessionID: c.state.SessionID,
		Question:  question,
		Mode:      c.state.Mode,
		Ephemeral: c.state.Incognito,
	}
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()
	publish(subs, snap)
	defer cancel()

	if req.Ephemeral {
		req.SessionID = ""
	}
	req.ModelIDs = c.models.Selected()

	hooks := RoundHooks{
		Session: func(s *Session) {
			c.mu.Lock()
			hold(s.ID)
			c.mu.Unlock()
			c.updateIf(token, func(st *State) {
				if !req.Ephemeral {
					st.SessionID = s.ID
				}
				st.Messages = append(append([]DisplayMessage(nil), base...), ProjectRound(s.LastRound(), len(base))...)
			})
		},
		Status: func(status string) {
			c.updateIf(token, func(st *State) { st.Status = status })
		},
		Reveal: func(_ int, msg ChatMessage) bool {
			return c.updateIf(token, func(st *State) {
				st.Messages = append(st.Messages, ChatEntry(msg, len(st.Messages)))
			})
		},
	}

	res, err := c.engine.Run(roundCtx, req, hooks)

	if err == nil && req.SessionID == "" && !req.Ephemeral && res.Session != nil {
		if rerr := c.catalog.RefreshSessions(ctx); rerr != nil {
			LogWarn("Failed to refresh session list: %v", rerr)
		}
	}

	c.updateIf(token, func(st *State) {
		st.Loading = false
		st.Status = ""
		if err != nil && !errors.Is(err, ErrRevealCancelled) {
			st.Messages = append(st.Messages, DisplayMessage{
				Order:   len(st.Messages),
				Kind:    KindError,
				Content: UserMessage(err),
			})
		}
	})

	c.mu.Lock()
	if c.epoch.Valid(token) {
		c.cancelRound = nil
	}
	for id := range held {
		if c.inflight[id]--; c.inflight[id] <= 0 {
			delete(c.inflight, id)
		}
	}
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("submit question: %w", err)
	}
	return nil
}

// LoadSession replaces the transcript with a stored session. The fetch
// is bounded by the load timeout and keeps SessionLoading set for at
// least the minimum display duration. A session whose round is still
// running cannot be loaded until that round ends.
func (c *Controller) LoadSession(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.inflight[id] > 0 {
		c.mu.Unlock()
		return fmt.Errorf("load session %s: %w", id, ErrOrchestrationInFlight)
	}
	token := c.epoch.Next()
	c.state.SessionLoading = true
	c.state.LoadFailed = false
	c.state.LoadError = ""
	c.state.Loading = false
	c.state.Status = ""
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()
	publish(subs, snap)

	session, err := WithMinDuration(ctx, c.opts.MinLoadDisplay, func() (*Session, error) {
		return RaceDeadline(ctx, "get-session", c.opts.LoadTimeout, func(ctx context.Context) (*Session, error) {
			return c.svc.GetSession(ctx, id)
		})
	})

	applied := c.updateIf(token, func(st *State) {
		st.SessionLoading = false
		if err != nil {
			st.LoadFailed = true
			if IsTimeout(err) {
				st.LoadError = LoadErrorTimeout
			} else {
				st.LoadError = LoadErrorGeneric
			}
			return
		}
		st.SessionID = session.ID
		st.Messages = ProjectSession(session)
		st.Draft = ""
		st.Incognito = false
		st.SidebarOpen = false
	})
	if !applied {
		LogDebug("Discarding superseded load of session %s", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session %s: %w", id, err)
	}
	return nil
}

// StartNewChat forgets the active session locally. Nothing is sent to the
// server and calling it repeatedly has no further effect.
func (c *Controller) StartNewChat() {
	c.mu.Lock()
	c.epoch.Next()
	c.resetLocked()
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()
	publish(subs, snap)
}

func (c *Controller) resetLocked() {
	c.state = State{
		Mode:        c.state.Mode,
		Incognito:   c.state.Incognito,
		SidebarOpen: c.state.SidebarOpen,
	}
}

// ViewShared fetches a shared session for read-only display. Controller
// state is untouched.
func (c *Controller) ViewShared(ctx context.Context, token string) (*Session, []DisplayMessage, error) {
	s, err := RaceDeadline(ctx, "get-shared-session", c.opts.LoadTimeout, func(ctx context.Context) (*Session, error) {
		return c.svc.GetSharedSession(ctx, token)
	})
	if err != nil {
		return nil, nil, err
	}
	return s, ProjectSession(s), nil
}

// RefreshModels fetches the model catalog into the selection store
func (c *Controller) RefreshModels(ctx context.Context) error {
	models, err := c.svc.ListModels(ctx)
	if err != nil {
		return err
	}
	return c.models.Refresh(models)
}

func (c *Controller) activeID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.SessionID
}

// DeleteSession deletes a session; deleting the active one also starts a
// new chat
func (c *Controller) DeleteSession(ctx context.Context, id string) error {
	err := c.svc.DeleteSession(ctx, id)
	if err == nil && id == c.activeID() {
		c.StartNewChat()
	}
	return c.catalog.afterMutation(ctx, err, c.catalog.RefreshSessions)
}

// RenameSession sets a session title
func (c *Controller) RenameSession(ctx context.Context, id, title string) error {
	return c.catalog.RenameSession(ctx, id, strings.TrimSpace(title))
}

// TogglePinSession flips a session's pin
func (c *Controller) TogglePinSession(ctx context.Context, id string) error {
	return c.catalog.TogglePin(ctx, id)
}

// MoveSessionToFolder files a session; an empty folderID detaches it
func (c *Controller) MoveSessionToFolder(ctx context.Context, id, folderID string) error {
	return c.catalog.MoveToFolder(ctx, id, folderID)
}

// ShareSession makes a session publicly viewable
func (c *Controller) ShareSession(ctx context.Context, id string) (*ShareInfo, error) {
	return c.catalog.Share(ctx, id)
}

// UnshareSession revokes sharing
func (c *Controller) UnshareSession(ctx context.Context, id string) error {
	return c.catalog.Unshare(ctx, id)
}

// BranchSession copies a session and makes the copy active
func (c *Controller) BranchSession(ctx context.Context, id string, fromRound *int) (*Session, error) {
	branch, err := c.catalog.Branch(ctx, id, fromRound)
	if branch == nil {
		return nil, err
	}
	if err != nil {
		LogWarn("Branch created but session list refresh failed: %v", err)
	}
	if lerr := c.LoadSession(ctx, branch.ID); lerr != nil {
		return branch, lerr
	}
	return branch, nil
}

// Mode returns the preferred mode for new sessions
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Mode
}

// SetMode stores the preferred mode for new sessions. It has no effect on
// a session that already exists.
func (c *Controller) SetMode(m Mode) error {
	if err := c.prefs.Set(PrefMode, string(m)); err != nil {
		return err
	}
	c.update(func(st *State) { st.Mode = m })
	return nil
}

// SetIncognito switches ephemeral submissions on or off. Turning it on
// starts a fresh chat so nothing is appended to a stored session.
func (c *Controller) SetIncognito(on bool) {
	c.mu.Lock()
	c.state.Incognito = on
	if on {
		c.epoch.Next()
		c.resetLocked()
	}
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()
	publish(subs, snap)
}

// SetDraft records the unsent question text
func (c *Controller) SetDraft(text string) {
	c.update(func(st *State) { st.Draft = text })
}

// OpenSidebar shows the session list overlay
func (c *Controller) OpenSidebar() {
	c.update(func(st *State) { st.SidebarOpen = true })
}

// CloseSidebar hides the session list overlay
func (c *Controller) CloseSidebar() {
	c.update(func(st *State) { st.SidebarOpen = false })
}

// SidebarCollapsed reports the persisted sidebar collapse flag
func (c *Controller) SidebarCollapsed() bool {
	return GetBool(c.prefs, PrefSidebarCollapsed)
}

// SetSidebarCollapsed persists the sidebar collapse flag
func (c *Controller) SetSidebarCollapsed(collapsed bool) error {
	return SetBool(c.prefs, PrefSidebarCollapsed, collapsed)
}

// FolderCollapsed reports whether a folder is collapsed in the list
func (c *Controller) FolderCollapsed(folderID string) bool {
	return GetBool(c.prefs, FolderCollapsedKey(folderID))
}

// ToggleFolderCollapsed flips and persists a folder's collapse flag
func (c *Controller) ToggleFolderCollapsed(folderID string) (bool, error) {
	next := !c.FolderCollapsed(folderID)
	if !next {
		return false, c.prefs.Remove(FolderCollapsedKey(folderID))
	}
	return true, SetBool(c.prefs, FolderCollapsedKey(folderID), true)
}

// Close stops any running round and drops subscribers
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.epoch.Next()
	if c.cancelRound != nil {
		c.cancelRound()
		c.cancelRound = nil
	}
	c.subs = make(map[int]func(State))
}

package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// CreateTestModels returns a three-member council with a chairman
func CreateTestModels() []Model {
	return []Model{
		{ID: "openai/gpt", Name: "GPT", IsChairman: false},
		{ID: "anthropic/claude", Name: "Claude", IsChairman: true},
		{ID: "google/gemini", Name: "Gemini", IsChairman: false},
	}
}

// CreateTestFormalRound creates a completed formal round with three
// responses, two peer reviews and a synthesis
func CreateTestFormalRound(question string) Round {
	models := CreateTestModels()
	responses := make([]Response, len(models))
	for i, m := range models {
		responses[i] = Response{
			ModelID:        m.ID,
			ModelName:      m.Name,
			Response:       fmt.Sprintf("%s answers: %s", m.Name, question),
			ResponseTimeMs: int64(900 + 100*i),
		}
	}
	synthesis := "The council agrees: " + question
	return Round{
		Question:  question,
		Mode:      ModeFormal,
		Status:    "complete",
		Responses: responses,
		PeerReviews: []PeerReview{
			{ReviewerModel: models[0].ID, Rankings: []Ranking{{ResponseNum: 2, Rank: 1}, {ResponseNum: 3, Rank: 2}}},
			{ReviewerModel: models[1].ID, Rankings: []Ranking{{ResponseNum: 1, Rank: 1}, {ResponseNum: 3, Rank: 2}}},
		},
		FinalSynthesis: &synthesis,
	}
}

// CreateTestChatRound creates a chat round with n messages, each replying
// to the previous speaker
func CreateTestChatRound(question string, n int) Round {
	models := CreateTestModels()
	msgs := make([]ChatMessage, n)
	for i := 0; i < n; i++ {
		m := models[i%len(models)]
		msgs[i] = ChatMessage{
			ModelID:        m.ID,
			ModelName:      m.Name,
			Content:        fmt.Sprintf("%s says #%d", m.Name, i+1),
			ResponseTimeMs: int64(400 + 10*i),
		}
		if i > 0 {
			msgs[i].ReplyTo = msgs[i-1].ModelName
		}
	}
	return Round{Question: question, Mode: ModeChat, Status: "complete", ChatMessages: msgs}
}

// CreateTestSession creates a session holding one completed formal round
func CreateTestSession(id string) *Session {
	return &Session{
		ID:        id,
		Title:     "Test Conversation",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Format(time.RFC3339),
		Rounds:    []Round{CreateTestFormalRound("What is the council?")},
	}
}

// CreateTestChatSession creates a session holding one chat round
func CreateTestChatSession(id string, n int) *Session {
	return &Session{
		ID:        id,
		Title:     "Chat Conversation",
		CreatedAt: time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC).Format(time.RFC3339),
		Rounds:    []Round{CreateTestChatRound("hello council", n)},
	}
}

// FakeService is an in-memory CouncilService for tests. Failures and
// stalls can be injected per operation name.
type FakeService struct {
	mu       sync.Mutex
	sessions map[string]*Session
	order    []string
	folders  []Folder
	models   []Model
	shares   map[string]string // token -> session id
	calls    []string
	errs     map[string]error
	gates    map[string]chan struct{}
	failing  map[string]string // model id -> error text
	nextID   int

	// ChatMessages is how many messages run-all produces
	ChatMessages int
}

// NewFakeService creates a fake council with the test models
func NewFakeService() *FakeService {
	return &FakeService{
		sessions:     make(map[string]*Session),
		models:       CreateTestModels(),
		shares:       make(map[string]string),
		errs:         make(map[string]error),
		gates:        make(map[string]chan struct{}),
		failing:      make(map[string]string),
		ChatMessages: 3,
	}
}

// FailOp makes every call to op return err
func (f *FakeService) FailOp(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

// FailModel makes a model return an error response during gathering
func (f *FakeService) FailModel(modelID, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[modelID] = msg
}

// Gate makes calls to op wait until the returned function is called
func (f *FakeService) Gate(op string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[op] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// SetModels replaces the model catalog
func (f *FakeService) SetModels(models []Model) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = models
}

// Put stores a session as if the server had created it
func (f *FakeService) Put(s *Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[s.ID]; !ok {
		f.order = append(f.order, s.ID)
	}
	f.sessions[s.ID] = cloneSession(s)
}

// PutFolder stores a folder
func (f *FakeService) PutFolder(folder Folder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders = append(f.folders, folder)
}

// Stored returns a copy of a stored session, or nil
func (f *FakeService) Stored(id string) *Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		return cloneSession(s)
	}
	return nil
}

// Calls returns the operation names called so far, in order
func (f *FakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount counts calls to op
func (f *FakeService) CallCount(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

// enter records the call, waits on any gate and returns the injected error
func (f *FakeService) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	gate := f.gates[op]
	err := f.errs[op]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *FakeService) lookup(op, id string) (*Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, &DomainError{Op: op, Status: http.StatusNotFound, Message: "Session not found"}
	}
	return s, nil
}

func (f *FakeService) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	if err := f.enter(ctx, "create-session"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, &ValidationError{Op: "create-session", Status: 422, Message: "question must not be empty"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	mode := req.Mode
	if mode == "" {
		mode = ModeFormal
	}
	s := &Session{
		ID:        fmt.Sprintf("sess-%d", f.nextID),
		CreatedAt: time.Date(2024, 1, 1, 0, 0, f.nextID, 0, time.UTC).Format(time.RFC3339),
		Rounds:    []Round{{Question: req.Question, Mode: mode, Status: "pending"}},
	}
	f.sessions[s.ID] = s
	if !req.Incognito {
		f.order = append(f.order, s.ID)
	}
	return cloneSession(s), nil
}

func (f *FakeService) ContinueSession(ctx context.Context, id, question string) (*Session, error) {
	if err := f.enter(ctx, "continue-session"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.lookup("continue-session", id)
	if err != nil {
		return nil, err
	}
	s.Rounds = append(s.Rounds, Round{Question: question, Mode: s.Mode(), Status: "pending"})
	return cloneSession(s), nil
}

func (f *FakeService) RunAll(ctx context.Context, id string) (*Session, error) {
	if err := f.enter(ctx, "run-all"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.lookup("run-all", id)
	if err != nil {
		return nil, err
	}
	r := s.LastRound()
	r.ChatMessages = CreateTestChatRound(r.Question, f.ChatMessages).ChatMessages
	r.Status = "complete"
	return cloneSession(s), nil
}

func (f *FakeService) GatherResponses(ctx context.Context, id string) (*Session, error) {
	if err := f.enter(ctx, "gather-responses"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.lookup("gather-responses", id)
	if err != nil {
		return nil, err
	}
	r := s.LastRound()
	r.Responses = nil
	for i, m := range f.models {
		resp := Response{ModelID: m.ID, ModelName: m.Name, ResponseTimeMs: int64(1000 + i)}
		if msg, ok := f.failing[m.ID]; ok {
			resp.Error = msg
		} else {
			resp.Response = fmt.Sprintf("%s answers: %s", m.Name, r.Question)
		}
		r.Responses = append(r.Responses, resp)
	}
	r.Status = "responses_complete"
	return cloneSession(s), nil
}

func (f *FakeService) RequestReviews(ctx context.Context, id string) (*Session, error) {
	if err := f.enter(ctx, "request-reviews"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.lookup("request-reviews", id)
	if err != nil {
		return nil, err
	}
	r := s.LastRound()
	r.PeerReviews = nil
	for _, resp := range r.Responses {
		if resp.Failed() {
			continue
		}
		r.PeerReviews = append(r.PeerReviews, PeerReview{
			ReviewerModel: resp.ModelID,
			Rankings:      []Ranking{{ResponseNum: 1, Rank: 1}},
		})
	}
	r.Status = "reviews_complete"
	return cloneSession(s), nil
}

func (f *FakeService) Synthesize(ctx context.Context, id string) (*Session, error) {
	if err := f.enter(ctx, "synthesize"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.lookup("synthesize", id)
	if err != nil {
		return nil, err
	}
	r := s.LastRound()
	synthesis := "Chairman's answer to: " + r.Question
	r.FinalSynthesis = &synthesis
	r.Status = "complete"
	return cloneSession(s), nil
}

func (f *FakeService) GetSession(ctx context.Context, id string) (*Session, error) {
	if err := f.enter(ctx, "get-session"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.lookup("get-session", id)
	if err != nil {
		return nil, err
	}
	return cloneSession(s), nil
}

func (f *FakeService) DeleteSession(ctx context.Context, id string) error {
	if err := f.enter(ctx, "delete-session"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.lookup("delete-session", id); err != nil {
		return err
	}
	delete(f.sessions, id)
	for i, sid := range f.order {
		if sid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *FakeService) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	if err := f.enter(ctx, "list-sessions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SessionSummary, 0, len(f.order))
	for _, id := range f.order {
		s := f.sessions[id]
		sum := SessionSummary{
			ID:         s.ID,
			Title:      s.Title,
			IsPinned:   s.IsPinned,
			FolderID:   s.FolderID,
			RoundCount: len(s.Rounds),
			CreatedAt:  s.CreatedAt,
		}
		if len(s.Rounds) > 0 {
			sum.Question = s.Rounds[0].Question
			sum.Status = s.LastRound().Status
		}
		out = append(out, sum)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IsPinned && !out[j].IsPinned })
	return out, nil
}

func (f *FakeService) PatchSession(ctx context.Context, id string, patch SessionPatch) (*Session, error) {
	if err := f.enter(ctx, "patch-session"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.lookup("patch-session", id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		s.Title = *patch.Title
	}
	if patch.IsPinned != nil {
		s.IsPinned = *patch.IsPinned
	}
	if patch.DetachFolder {
		s.FolderID = nil
	} else if patch.FolderID != nil {
		folderID := *patch.FolderID
		s.FolderID = &folderID
	}
	return cloneSession(s), nil
}

func (f *FakeService) ShareSession(ctx context.Context, id string) (*ShareInfo, error) {
	if err := f.enter(ctx, "share-session"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.lookup("share-session", id)
	if err != nil {
		return nil, err
	}
	if s.ShareToken == "" {
		s.ShareToken = "tok-" + s.ID
	}
	s.IsShared = true
	f.shares[s.ShareToken] = s.ID
	return &ShareInfo{IsShared: true, ShareToken: s.ShareToken}, nil
}

func (f *FakeService) UnshareSession(ctx context.Context, id string) error {
	if err := f.enter(ctx, "unshare-session"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.lookup("unshare-session", id)
	if err != nil {
		return err
	}
	delete(f.shares, s.ShareToken)
	s.IsShared = false
	s.ShareToken = ""
	return nil
}

func (f *FakeService) GetShareInfo(ctx context.Context, id string) (*ShareInfo, error) {
	if err := f.enter(ctx, "get-share-info"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.lookup("get-share-info", id)
	if err != nil {
		return nil, err
	}
	return &ShareInfo{IsShared: s.IsShared, ShareToken: s.ShareToken}, nil
}

func (f *FakeService) GetSharedSession(ctx context.Context, token string) (*Session, error) {
	if err := f.enter(ctx, "get-shared-session"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.shares[token]
	if !ok {
		return nil, &DomainError{Op: "get-shared-session", Status: http.StatusNotFound, Message: "Shared session not found"}
	}
	return cloneSession(f.sessions[id]), nil
}

func (f *FakeService) BranchSession(ctx context.Context, id string, fromRound *int) (*Session, error) {
	if err := f.enter(ctx, "branch-session"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.lookup("branch-session", id)
	if err != nil {
		return nil, err
	}
	branch := cloneSession(s)
	f.nextID++
	branch.ID = fmt.Sprintf("sess-%d", f.nextID)
	branch.Title = strings.TrimSpace(s.Title + " (branch)")
	branch.IsShared, branch.ShareToken, branch.IsPinned = false, "", false
	if fromRound != nil && *fromRound >= 0 && *fromRound < len(branch.Rounds) {
		branch.Rounds = branch.Rounds[:*fromRound+1]
	}
	f.sessions[branch.ID] = branch
	f.order = append(f.order, branch.ID)
	return cloneSession(branch), nil
}

func (f *FakeService) ListModels(ctx context.Context) ([]Model, error) {
	if err := f.enter(ctx, "list-models"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Model(nil), f.models...), nil
}

func (f *FakeService) ListFolders(ctx context.Context) ([]Folder, error) {
	if err := f.enter(ctx, "list-folders"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]Folder(nil), f.folders...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *FakeService) CreateFolder(ctx context.Context, name, color string) (*Folder, error) {
	if err := f.enter(ctx, "create-folder"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	folder := Folder{ID: fmt.Sprintf("folder-%d", f.nextID), Name: name, Color: color, Position: len(f.folders)}
	f.folders = append(f.folders, folder)
	return &folder, nil
}

func (f *FakeService) UpdateFolder(ctx context.Context, id string, patch FolderPatch) (*Folder, error) {
	if err := f.enter(ctx, "update-folder"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.folders {
		if f.folders[i].ID != id {
			continue
		}
		if patch.Name != nil {
			f.folders[i].Name = *patch.Name
		}
		if patch.Color != nil {
			f.folders[i].Color = *patch.Color
		}
		if patch.Position != nil {
			f.folders[i].Position = *patch.Position
		}
		folder := f.folders[i]
		return &folder, nil
	}
	return nil, &DomainError{Op: "update-folder", Status: http.StatusNotFound, Message: "Folder not found"}
}

func (f *FakeService) DeleteFolder(ctx context.Context, id string) error {
	if err := f.enter(ctx, "delete-folder"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.folders {
		if f.folders[i].ID != id {
			continue
		}
		f.folders = append(f.folders[:i], f.folders[i+1:]...)
		for _, s := range f.sessions {
			if s.FolderID != nil && *s.FolderID == id {
				s.FolderID = nil
			}
		}
		return nil
	}
	return &DomainError{Op: "delete-folder", Status: http.StatusNotFound, Message: "Folder not found"}
}

func (f *FakeService) Health(ctx context.Context) (*HealthStatus, error) {
	if err := f.enter(ctx, "health"); err != nil {
		return nil, err
	}
	return &HealthStatus{Status: "healthy", Service: "fake-council"}, nil
}

func cloneSession(s *Session) *Session {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	var out Session
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

// NewFakeHandler serves a FakeService over the council HTTP routes
func NewFakeHandler(f *FakeService) http.Handler {
	mux := http.NewServeMux()
	ctxOf := func(r *http.Request) context.Context { return r.Context() }

	mux.HandleFunc("POST /session", func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		s, err := f.CreateSession(ctxOf(r), req)
		writeResult(w, http.StatusCreated, map[string]interface{}{"session": s, "message": "Session created"}, err)
	})
	mux.HandleFunc("POST /session/{id}/continue", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Question string `json:"question"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		s, err := f.ContinueSession(ctxOf(r), r.PathValue("id"), body.Question)
		writeSession(w, s, err)
	})
	for action, call := range map[string]func(context.Context, string) (*Session, error){
		"run-all":    f.RunAll,
		"responses":  f.GatherResponses,
		"reviews":    f.RequestReviews,
		"synthesize": f.Synthesize,
	} {
		mux.HandleFunc("POST /session/{id}/"+action, func(w http.ResponseWriter, r *http.Request) {
			s, err := call(ctxOf(r), r.PathValue("id"))
			writeSession(w, s, err)
		})
	}
	mux.HandleFunc("GET /session/{id}", func(w http.ResponseWriter, r *http.Request) {
		s, err := f.GetSession(ctxOf(r), r.PathValue("id"))
		writeSession(w, s, err)
	})
	mux.HandleFunc("DELETE /session/{id}", func(w http.ResponseWriter, r *http.Request) {
		err := f.DeleteSession(ctxOf(r), r.PathValue("id"))
		writeResult(w, http.StatusOK, map[string]string{"message": "Session deleted"}, err)
	})
	mux.HandleFunc("PATCH /session/{id}", func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]json.RawMessage
		if !decodeBody(w, r, &raw) {
			return
		}
		var patch SessionPatch
		if v, ok := raw["title"]; ok {
			var title string
			_ = json.Unmarshal(v, &title)
			patch.Title = &title
		}
		if v, ok := raw["is_pinned"]; ok {
			var pinned bool
			_ = json.Unmarshal(v, &pinned)
			patch.IsPinned = &pinned
		}
		if v, ok := raw["folder_id"]; ok {
			if string(v) == "null" {
				patch.DetachFolder = true
			} else {
				var folderID string
				_ = json.Unmarshal(v, &folderID)
				patch.FolderID = &folderID
			}
		}
		s, err := f.PatchSession(ctxOf(r), r.PathValue("id"), patch)
		writeSession(w, s, err)
	})
	mux.HandleFunc("GET /sessions", func(w http.ResponseWriter, r *http.Request) {
		list, err := f.ListSessions(ctxOf(r))
		writeResult(w, http.StatusOK, map[string]interface{}{"sessions": list, "count": len(list)}, err)
	})
	mux.HandleFunc("POST /session/{id}/share", func(w http.ResponseWriter, r *http.Request) {
		info, err := f.ShareSession(ctxOf(r), r.PathValue("id"))
		writeResult(w, http.StatusOK, map[string]interface{}{"share": info}, err)
	})
	mux.HandleFunc("GET /session/{id}/share", func(w http.ResponseWriter, r *http.Request) {
		info, err := f.GetShareInfo(ctxOf(r), r.PathValue("id"))
		writeResult(w, http.StatusOK, map[string]interface{}{"share": info}, err)
	})
	mux.HandleFunc("DELETE /session/{id}/share", func(w http.ResponseWriter, r *http.Request) {
		err := f.UnshareSession(ctxOf(r), r.PathValue("id"))
		writeResult(w, http.StatusOK, map[string]string{"message": "Sharing disabled"}, err)
	})
	mux.HandleFunc("GET /shared/{token}", func(w http.ResponseWriter, r *http.Request) {
		s, err := f.GetSharedSession(ctxOf(r), r.PathValue("token"))
		writeSession(w, s, err)
	})
	mux.HandleFunc("POST /session/{id}/branch", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			FromRoundIndex *int `json:"from_round_index"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		s, err := f.BranchSession(ctxOf(r), r.PathValue("id"), body.FromRoundIndex)
		writeSession(w, s, err)
	})
	mux.HandleFunc("GET /models", func(w http.ResponseWriter, r *http.Request) {
		models, err := f.ListModels(ctxOf(r))
		writeResult(w, http.StatusOK, map[string]interface{}{"models": models}, err)
	})
	mux.HandleFunc("GET /folders", func(w http.ResponseWriter, r *http.Request) {
		folders, err := f.ListFolders(ctxOf(r))
		writeResult(w, http.StatusOK, map[string]interface{}{"folders": folders, "count": len(folders)}, err)
	})
	mux.HandleFunc("POST /folders", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		folder, err := f.CreateFolder(ctxOf(r), body.Name, body.Color)
		writeResult(w, http.StatusCreated, map[string]interface{}{"folder": folder, "message": "Folder created"}, err)
	})
	mux.HandleFunc("PATCH /folders/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch FolderPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		folder, err := f.UpdateFolder(ctxOf(r), r.PathValue("id"), patch)
		writeResult(w, http.StatusOK, map[string]interface{}{"folder": folder}, err)
	})
	mux.HandleFunc("DELETE /folders/{id}", func(w http.ResponseWriter, r *http.Request) {
		err := f.DeleteFolder(ctxOf(r), r.PathValue("id"))
		writeResult(w, http.StatusOK, map[string]string{"message": "Folder deleted"}, err)
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		h, err := f.Health(ctxOf(r))
		writeResult(w, http.StatusOK, h, err)
	})
	return mux
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"detail": []map[string]string{{"msg": "invalid JSON body: " + err.Error()}},
		})
		return false
	}
	return true
}

func writeSession(w http.ResponseWriter, s *Session, err error) {
	writeResult(w, http.StatusOK, map[string]interface{}{"session": s}, err)
}

// writeResult writes body on success, or the error in the server's
// detail envelope
func writeResult(w http.ResponseWriter, status int, body interface{}, err error) {
	if err == nil {
		writeJSON(w, status, body)
		return
	}
	switch e := err.(type) {
	case *ValidationError:
		issues := make([]map[string]string, 0, len(e.Issues)+1)
		for _, is := range e.Issues {
			issues = append(issues, map[string]string{"msg": is.Message})
		}
		if len(issues) == 0 {
			issues = append(issues, map[string]string{"msg": e.Message})
		}
		writeJSON(w, statusOr(e.Status, http.StatusUnprocessableEntity), map[string]interface{}{"detail": issues})
	case *DomainError:
		writeJSON(w, statusOr(e.Status, http.StatusBadRequest), map[string]string{"detail": e.Message})
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

func statusOr(status, fallback int) int {
	if status == 0 {
		return fallback
	}
	return status
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

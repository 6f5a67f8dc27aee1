package internal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode is the conversation protocol a round runs under
type Mode string

const (
	ModeFormal Mode = "formal"
	ModeChat   Mode = "chat"
)

// ParseMode parses a mode name, accepting the empty string as formal
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeFormal):
		return ModeFormal, nil
	case string(ModeChat):
		return ModeChat, nil
	default:
		return "", fmt.Errorf("unknown mode %q (supported: formal, chat)", s)
	}
}

// Session is a server-side conversation as returned by the council service
type Session struct {
	ID         string  `json:"id" yaml:"id"`
	Title      string  `json:"title,omitempty" yaml:"title,omitempty"`
	IsPinned   bool    `json:"is_pinned" yaml:"is_pinned"`
	FolderID   *string `json:"folder_id,omitempty" yaml:"folder_id,omitempty"`
	CreatedAt  string  `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	IsShared   bool    `json:"is_shared,omitempty" yaml:"is_shared,omitempty"`
	ShareToken string  `json:"share_token,omitempty" yaml:"share_token,omitempty"`
	Rounds     []Round `json:"rounds" yaml:"rounds"`
}

// Mode returns the session's protocol, which is fixed by its first round
func (s *Session) Mode() Mode {
	if s == nil || len(s.Rounds) == 0 || s.Rounds[0].Mode == "" {
		return ModeFormal
	}
	return s.Rounds[0].Mode
}

// LastRound returns the most recent round, or nil for an empty session
func (s *Session) LastRound() *Round {
	if s == nil || len(s.Rounds) == 0 {
		return nil
	}
	return &s.Rounds[len(s.Rounds)-1]
}

// Round is one question plus the council's work on it
type Round struct {
	Question             string                 `json:"question" yaml:"question"`
	Mode                 Mode                   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Status               string                 `json:"status,omitempty" yaml:"status,omitempty"`
	Responses            []Response             `json:"responses,omitempty" yaml:"responses,omitempty"`
	PeerReviews          []PeerReview           `json:"peer_reviews,omitempty" yaml:"peer_reviews,omitempty"`
	DisagreementAnalysis []DisagreementAnalysis `json:"disagreement_analysis,omitempty" yaml:"disagreement_analysis,omitempty"`
	FinalSynthesis       *string                `json:"final_synthesis,omitempty" yaml:"final_synthesis,omitempty"`
	ChatMessages         []ChatMessage          `json:"chat_messages,omitempty" yaml:"chat_messages,omitempty"`
}

// HasSynthesis reports whether the chairman produced a non-empty answer
func (r *Round) HasSynthesis() bool {
	return r.FinalSynthesis != nil && strings.TrimSpace(*r.FinalSynthesis) != ""
}

// Response is one model's answer in a formal round
type Response struct {
	ModelID        string `json:"model_id" yaml:"model_id"`
	ModelName      string `json:"model_name" yaml:"model_name"`
	Response       string `json:"response,omitempty" yaml:"response,omitempty"`
	Error          string `json:"error,omitempty" yaml:"error,omitempty"`
	ResponseTimeMs int64  `json:"response_time_ms,omitempty" yaml:"response_time_ms,omitempty"`
}

// Failed reports whether the model returned an error instead of content
func (r Response) Failed() bool {
	return r.Error != ""
}

// PeerReview is one model's ranking of the anonymized responses
type PeerReview struct {
	ReviewerModel string    `json:"reviewer_model" yaml:"reviewer_model"`
	Rankings      []Ranking `json:"rankings" yaml:"rankings"`
}

func (r PeerReview) clone() PeerReview {
	if r.Rankings == nil {
		return r
	}
	rankings := make([]Ranking, len(r.Rankings))
	for i, rk := range r.Rankings {
		if rk.Extra != nil {
			extra := make(map[string]json.RawMessage, len(rk.Extra))
			for k, v := range rk.Extra {
				extra[k] = append(json.RawMessage(nil), v...)
			}
			rk.Extra = extra
		}
		rankings[i] = rk
	}
	r.Rankings = rankings
	return r
}

// Ranking places one response number at a rank. Extra fields the server
// attaches (reasoning and the like) are kept verbatim.
type Ranking struct {
	ResponseNum int                        `json:"response_num" yaml:"response_num"`
	Rank        int                        `json:"rank" yaml:"rank"`
	Extra       map[string]json.RawMessage `json:"-" yaml:"-"`
}

// UnmarshalJSON keeps unknown keys in Extra
func (r *Ranking) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["response_num"]; ok {
		if err := json.Unmarshal(v, &r.ResponseNum); err != nil {
			return fmt.Errorf("response_num: %w", err)
		}
		delete(raw, "response_num")
	}
	if v, ok := raw["rank"]; ok {
		if err := json.Unmarshal(v, &r.Rank); err != nil {
			return fmt.Errorf("rank: %w", err)
		}
		delete(raw, "rank")
	}
	if len(raw) > 0 {
		r.Extra = raw
	}
	return nil
}

// MarshalJSON writes the known fields plus Extra
func (r Ranking) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Extra)+2)
	for k, v := range r.Extra {
		out[k] = v
	}
	out["response_num"] = r.ResponseNum
	out["rank"] = r.Rank
	return json.Marshal(out)
}

// DisagreementAnalysis summarizes how consistently a model was ranked
type DisagreementAnalysis struct {
	ModelID           string  `json:"model_id" yaml:"model_id"`
	ModelName         string  `json:"model_name" yaml:"model_name"`
	RanksReceived     []int   `json:"ranks_received" yaml:"ranks_received"`
	MeanRank          float64 `json:"mean_rank" yaml:"mean_rank"`
	DisagreementScore float64 `json:"disagreement_score" yaml:"disagreement_score"`
	HasDisagreement   bool    `json:"has_disagreement" yaml:"has_disagreement"`
}

// ChatMessage is one utterance in a chat-mode round
type ChatMessage struct {
	ModelID        string `json:"model_id,omitempty" yaml:"model_id,omitempty"`
	ModelName      string `json:"model_name" yaml:"model_name"`
	Content        string `json:"content" yaml:"content"`
	ReplyTo        string `json:"reply_to,omitempty" yaml:"reply_to,omitempty"`
	ResponseTimeMs int64  `json:"response_time_ms,omitempty" yaml:"response_time_ms,omitempty"`
}

// Model is a catalog entry for a council member
type Model struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	IsChairman bool   `json:"is_chairman" yaml:"is_chairman"`
}

// Folder groups sessions in the catalog
type Folder struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Color    string `json:"color,omitempty" yaml:"color,omitempty"`
	Position int    `json:"position" yaml:"position"`
}

// SessionSummary is a catalog row
type SessionSummary struct {
	ID         string  `json:"id" yaml:"id"`
	Title      string  `json:"title,omitempty" yaml:"title,omitempty"`
	Question   string  `json:"question,omitempty" yaml:"question,omitempty"`
	Status     string  `json:"status,omitempty" yaml:"status,omitempty"`
	IsPinned   bool    `json:"is_pinned" yaml:"is_pinned"`
	FolderID   *string `json:"folder_id,omitempty" yaml:"folder_id,omitempty"`
	RoundCount int     `json:"round_count" yaml:"round_count"`
	CreatedAt  string  `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// DisplayTitle falls back to the question when no title was set
func (s SessionSummary) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	if s.Question != "" {
		return s.Question
	}
	return "Untitled"
}

// ShareInfo describes whether a session is publicly viewable
type ShareInfo struct {
	IsShared   bool   `json:"is_shared"`
	ShareToken string `json:"share_token,omitempty"`
}

// SessionPatch is a partial update. Nil fields are left untouched;
// DetachFolder sends an explicit null folder_id.
type SessionPatch struct {
	Title        *string
	IsPinned     *bool
	FolderID     *string
	DetachFolder bool
}

// MarshalJSON emits only the fields being changed
func (p SessionPatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 3)
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.IsPinned != nil {
		out["is_pinned"] = *p.IsPinned
	}
	if p.DetachFolder {
		out["folder_id"] = nil
	} else if p.FolderID != nil {
		out["folder_id"] = *p.FolderID
	}
	return json.Marshal(out)
}

// FolderPatch is a partial folder update
type FolderPatch struct {
	Name     *string `json:"name,omitempty"`
	Color    *string `json:"color,omitempty"`
	Position *int    `json:"position,omitempty"`
}

// CreateSessionRequest is the body of create-session
type CreateSessionRequest struct {
	Question  string   `json:"question"`
	Mode      Mode     `json:"mode"`
	ModelIDs  []string `json:"model_ids,omitempty"`
	Incognito bool     `json:"incognito,omitempty"`
}

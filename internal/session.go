package internal

// MessageKind identifies how a transcript entry is rendered
type MessageKind string

const (
	KindUser     MessageKind = "user"
	KindSystem   MessageKind = "system"
	KindCouncil  MessageKind = "council"
	KindChat     MessageKind = "chat"
	KindChairman MessageKind = "chairman"
	KindError    MessageKind = "error"
	KindVoting   MessageKind = "voting"
)

// System entry texts used by the formal protocol
const (
	SystemGathering = "Gathering responses from the council..."
	SystemDeciding  = "The chairman is deciding..."
)

// DisplayMessage is a transcript entry derived from a session. It is never
// sent to the server.
type DisplayMessage struct {
	Order        int                   `json:"order" yaml:"order"`
	Kind         MessageKind           `json:"kind" yaml:"kind"`
	Content      string                `json:"content" yaml:"content"`
	ModelName    string                `json:"model_name,omitempty" yaml:"model_name,omitempty"`
	LatencyMs    int64                 `json:"latency_ms,omitempty" yaml:"latency_ms,omitempty"`
	ReplyTo      string                `json:"reply_to,omitempty" yaml:"reply_to,omitempty"`
	Disagreement *DisagreementAnalysis `json:"disagreement,omitempty" yaml:"disagreement,omitempty"`
	Reviews      []PeerReview          `json:"reviews,omitempty" yaml:"reviews,omitempty"`
}

// Clone returns a copy of m that shares no memory with it
func (m DisplayMessage) Clone() DisplayMessage {
	if m.Disagreement != nil {
		d := *m.Disagreement
		d.RanksReceived = append([]int(nil), d.RanksReceived...)
		m.Disagreement = &d
	}
	if m.Reviews != nil {
		reviews := make([]PeerReview, len(m.Reviews))
		for i, r := range m.Reviews {
			reviews[i] = r.clone()
		}
		m.Reviews = reviews
	}
	return m
}

// Transcript pairs a session with its projected messages for export
type Transcript struct {
	Session  *Session         `json:"session" yaml:"session"`
	Messages []DisplayMessage `json:"messages" yaml:"messages"`
}

// NewTranscript projects a session into an exportable transcript
func NewTranscript(s *Session) *Transcript {
	return &Transcript{Session: s, Messages: ProjectSession(s)}
}

package internal

import "fmt"

// ProjectSession folds every round of a session into one transcript.
// Order numbers continue across rounds.
func ProjectSession(s *Session) []DisplayMessage {
	if s == nil {
		return nil
	}
	var out []DisplayMessage
	for i := range s.Rounds {
		out = append(out, ProjectRound(&s.Rounds[i], len(out))...)
	}
	return out
}

// ProjectRound converts one round into display messages starting at order
// start. It is pure: the same round always yields the same entries.
//
// Formal rounds project to user, gathering notice, one entry per response,
// voting (only when reviews exist), deciding notice and chairman (only when
// a synthesis exists). Chat rounds project to user followed by the chat
// messages in server order.
func ProjectRound(r *Round, start int) []DisplayMessage {
	if r == nil {
		return nil
	}
	p := projection{order: start}
	p.add(DisplayMessage{Kind: KindUser, Content: r.Question})

	if r.Mode == ModeChat {
		for _, m := range r.ChatMessages {
			p.add(DisplayMessage{
				Kind:      KindChat,
				Content:   m.Content,
				ModelName: m.ModelName,
				LatencyMs: m.ResponseTimeMs,
				ReplyTo:   m.ReplyTo,
			})
		}
		return p.out
	}

	p.add(DisplayMessage{Kind: KindSystem, Content: SystemGathering})

	for _, resp := range r.Responses {
		if resp.Failed() {
			p.add(DisplayMessage{
				Kind:      KindError,
				Content:   resp.Error,
				ModelName: resp.ModelName,
				LatencyMs: resp.ResponseTimeMs,
			})
			continue
		}
		p.add(DisplayMessage{
			Kind:         KindCouncil,
			Content:      resp.Response,
			ModelName:    resp.ModelName,
			LatencyMs:    resp.ResponseTimeMs,
			Disagreement: findDisagreement(r.DisagreementAnalysis, resp.ModelID),
		})
	}

	if len(r.PeerReviews) > 0 {
		p.add(DisplayMessage{
			Kind:    KindVoting,
			Content: votingSummary(r.PeerReviews),
			Reviews: r.PeerReviews,
		})
	}

	if r.HasSynthesis() {
		p.add(DisplayMessage{Kind: KindSystem, Content: SystemDeciding})
		p.add(DisplayMessage{Kind: KindChairman, Content: *r.FinalSynthesis})
	}

	return p.out
}

// ChatEntry builds the display entry for one revealed chat message
func ChatEntry(m ChatMessage, order int) DisplayMessage {
	return DisplayMessage{
		Order:     order,
		Kind:      KindChat,
		Content:   m.Content,
		ModelName: m.ModelName,
		LatencyMs: m.ResponseTimeMs,
		ReplyTo:   m.ReplyTo,
	}
}

type projection struct {
	order int
	out   []DisplayMessage
}

func (p *projection) add(m DisplayMessage) {
	m.Order = p.order
	p.order++
	p.out = append(p.out, m)
}

// findDisagreement returns a copy of the analysis entry for modelID, if any
func findDisagreement(items []DisagreementAnalysis, modelID string) *DisagreementAnalysis {
	if modelID == "" {
		return nil
	}
	for i := range items {
		if items[i].ModelID == modelID {
			d := items[i]
			return &d
		}
	}
	return nil
}

func votingSummary(reviews []PeerReview) string {
	if len(reviews) == 1 {
		return "1 council member ranked the responses"
	}
	return fmt.Sprintf("%d council members ranked the responses", len(reviews))
}

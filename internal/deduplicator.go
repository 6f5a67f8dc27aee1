package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// dedupeIDs drops repeated ids, keeping first occurrences in order
func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique
}

// SessionDigest hashes the conversational content of a session. Metadata
// such as title and pin state is left out so renames do not look like new
// content.
func SessionDigest(session *Session) string {
	h := sha256.New()
	for _, r := range session.Rounds {
		h.Write([]byte(r.Question))
		h.Write([]byte(r.Mode))
		for _, resp := range r.Responses {
			h.Write([]byte(resp.ModelID))
			h.Write([]byte(resp.Response))
			h.Write([]byte(resp.Error))
		}
		h.Write([]byte(strconv.Itoa(len(r.PeerReviews))))
		if r.FinalSynthesis != nil {
			h.Write([]byte(*r.FinalSynthesis))
		}
		for _, m := range r.ChatMessages {
			h.Write([]byte(m.ModelName))
			h.Write([]byte(m.Content))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

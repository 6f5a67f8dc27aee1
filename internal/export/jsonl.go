package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/council-session/internal"
)

// JSONLExporter exports transcripts in JSONL format (one message per line)
type JSONLExporter struct{}

// Export exports a transcript to JSONL format
func (e *JSONLExporter) Export(t *internal.Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range t.Messages {
		obj := map[string]interface{}{
			"session_id": t.Session.ID,
			"order":      msg.Order,
			"kind":       msg.Kind,
			"content":    msg.Content,
		}
		if msg.ModelName != "" {
			obj["model_name"] = msg.ModelName
		}
		if msg.LatencyMs > 0 {
			obj["latency_ms"] = msg.LatencyMs
		}
		if msg.ReplyTo != "" {
			obj["reply_to"] = msg.ReplyTo
		}

		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}

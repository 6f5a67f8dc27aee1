package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/council-session/internal"
)

// JSONExporter writes the session document and its transcript, pretty-printed
type JSONExporter struct{}

// Export exports a transcript to JSON format
func (e *JSONExporter) Export(t *internal.Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(t)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}

package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEmptyQuestion is returned when a submission is blank after trimming
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrOrchestrationInFlight is returned when a round is already running
	ErrOrchestrationInFlight = errors.New("a question is already being answered")
	// ErrRevealCancelled is returned when the chat reveal loop was torn down
	ErrRevealCancelled = errors.New("chat reveal cancelled")
)

// Load failure wording shown in place of a transcript
const (
	LoadErrorTimeout = "The server took too long to respond. It may still be starting up, try again in a moment."
	LoadErrorGeneric = "Could not load this conversation."
)

// NetworkTimeoutError is raised when the client stopped waiting on an operation
type NetworkTimeoutError struct {
	Op    string
	After time.Duration
}

func (e *NetworkTimeoutError) Error() string {
	return fmt.Sprintf("network timeout: %s did not complete within %s", e.Op, e.After)
}

// TransportError covers connection failures and non-JSON error responses
type TransportError struct {
	Op     string
	Status int // 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport error: %s: HTTP %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FieldIssue is one field-level complaint from the server
type FieldIssue struct {
	Message string   `json:"message"`
	Loc     []string `json:"loc,omitempty"`
}

// ValidationError is a structured rejection of the request payload
type ValidationError struct {
	Op      string
	Status  int
	Message string
	Issues  []FieldIssue
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Op, e.Message)
}

// DomainError is a server-side refusal carrying a readable message
type DomainError struct {
	Op      string
	Status  int
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// StorageError represents errors accessing local state
type StorageError struct {
	Path string
	Op   string // "open", "read", "write", "delete"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError represents errors decoding cached or persisted data
type ParseError struct {
	Source string // "cache", "prefs"
	Key    string // storage key or file path
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a client-side deadline expiry
func IsTimeout(err error) bool {
	var te *NetworkTimeoutError
	return errors.As(err, &te)
}

// IsValidation reports whether err is a payload validation failure
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UserMessage renders err as the single line shown in a transcript
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		te *NetworkTimeoutError
		ve *ValidationError
		de *DomainError
		tr *TransportError
	)
	switch {
	case errors.As(err, &te):
		return LoadErrorTimeout
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &de):
		return de.Message
	case errors.As(err, &tr):
		if tr.Status != 0 {
			return fmt.Sprintf("The council service returned HTTP %d.", tr.Status)
		}
		return "Could not reach the council service."
	default:
		return err.Error()
	}
}

// NormalizeErrorPayload reduces an error body to one message. Precedence:
// a plain string, then the first list item's message, then the object's
// message, then the compact JSON itself.
func NormalizeErrorPayload(payload json.RawMessage) string {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || string(payload) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return s
	}

	var list []map[string]json.RawMessage
	if err := json.Unmarshal(payload, &list); err == nil {
		if len(list) > 0 {
			if msg, ok := messageField(list[0]); ok {
				return msg
			}
		}
		return compactJSON(payload)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err == nil {
		if msg, ok := messageField(obj); ok {
			return msg
		}
	}

	return compactJSON(payload)
}

// messageField reads "message" or FastAPI's "msg" as a string
func messageField(obj map[string]json.RawMessage) (string, bool) {
	for _, key := range []string{"message", "msg"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s, true
		}
	}
	return "", false
}

func compactJSON(payload json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return strings.TrimSpace(string(payload))
	}
	return buf.String()
}

// fieldIssues decodes a list payload into issues, ignoring entries it cannot read
func fieldIssues(payload json.RawMessage) []FieldIssue {
	var list []map[string]json.RawMessage
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil
	}
	issues := make([]FieldIssue, 0, len(list))
	for _, item := range list {
		msg, _ := messageField(item)
		issue := FieldIssue{Message: msg}
		if raw, ok := item["loc"]; ok {
			var loc []interface{}
			if err := json.Unmarshal(raw, &loc); err == nil {
				for _, part := range loc {
					issue.Loc = append(issue.Loc, fmt.Sprint(part))
				}
			}
		}
		issues = append(issues, issue)
	}
	return issues
}

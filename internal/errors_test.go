package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestStorageError(t *testing.T) {
	originalErr := errors.New("permission denied")
	err := &StorageError{
		Path: "/test/path",
		Op:   "open",
		Err:  originalErr,
	}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "storage error") {
		t.Errorf("StorageError.Error() should contain 'storage error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "/test/path") {
		t.Errorf("StorageError.Error() should contain path, got: %q", errorMsg)
	}
	if !errors.Is(err, originalErr) {
		t.Error("StorageError.Unwrap() should return original error")
	}
}

func TestParseError(t *testing.T) {
	originalErr := errors.New("invalid JSON")
	err := &ParseError{Source: "cache", Key: "session_1.json", Err: originalErr}

	if !strings.Contains(err.Error(), "[cache]") {
		t.Errorf("ParseError.Error() = %q, want source tag", err.Error())
	}
	if !errors.Is(err, originalErr) {
		t.Error("ParseError.Unwrap() should return original error")
	}
}

func TestExportError(t *testing.T) {
	originalErr := errors.New("disk full")
	err := &ExportError{Format: "md", Path: "/out/a.md", Err: originalErr}

	if !strings.Contains(err.Error(), "export error [md]") {
		t.Errorf("ExportError.Error() = %q", err.Error())
	}
	if !errors.Is(err, originalErr) {
		t.Error("ExportError.Unwrap() should return original error")
	}
}

func TestNormalizeErrorPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"plain string", `"Session not found"`, "Session not found"},
		{"list with message", `[{"message":"question too long"},{"message":"second"}]`, "question too long"},
		{"list with msg", `[{"loc":["body","question"],"msg":"field required","type":"missing"}]`, "field required"},
		{"object with message", `{"message":"rate limited","code":429}`, "rate limited"},
		{"object without message", `{"code": 7, "reason":"x"}`, `{"code":7,"reason":"x"}`},
		{"list without message", `[{"code":1}]`, `[{"code":1}]`},
		{"empty list", `[]`, `[]`},
		{"number", `42`, `42`},
		{"null", `null`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeErrorPayload(json.RawMessage(tt.payload))
			if got != tt.want {
				t.Errorf("NormalizeErrorPayload(%s) = %q, want %q", tt.payload, got, tt.want)
			}
		})
	}
}

func TestFieldIssues(t *testing.T) {
	issues := fieldIssues(json.RawMessage(`[{"loc":["body","model_ids",0],"msg":"unknown model"}]`))
	if len(issues) != 1 {
		t.Fatalf("fieldIssues() len = %d, want 1", len(issues))
	}
	if issues[0].Message != "unknown model" {
		t.Errorf("fieldIssues()[0].Message = %q", issues[0].Message)
	}
	if strings.Join(issues[0].Loc, ".") != "body.model_ids.0" {
		t.Errorf("fieldIssues()[0].Loc = %v", issues[0].Loc)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"timeout", &NetworkTimeoutError{Op: "get-session", After: time.Second}, LoadErrorTimeout},
		{"validation", &ValidationError{Op: "create-session", Message: "question too long"}, "question too long"},
		{"domain wrapped", fmt.Errorf("submit: %w", &DomainError{Op: "run-all", Message: "no models available"}), "no models available"},
		{"transport no status", &TransportError{Op: "list-models", Err: errors.New("connection refused")}, "Could not reach the council service."},
		{"transport status", &TransportError{Op: "list-models", Status: 502, Err: errors.New("bad gateway")}, "The council service returned HTTP 502."},
		{"plain", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(fmt.Errorf("load: %w", &NetworkTimeoutError{Op: "x"})) {
		t.Error("IsTimeout() = false for wrapped timeout")
	}
	if IsTimeout(&DomainError{Op: "x", Message: "y"}) {
		t.Error("IsTimeout() = true for domain error")
	}
	if !IsValidation(&ValidationError{Op: "x"}) {
		t.Error("IsValidation() = false for validation error")
	}
}

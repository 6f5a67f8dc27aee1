package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RoundService is the part of the council API that drives a round
type RoundService interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error)
	ContinueSession(ctx context.Context, id, question string) (*Session, error)
	RunAll(ctx context.Context, id string) (*Session, error)
	GatherResponses(ctx context.Context, id string) (*Session, error)
	RequestReviews(ctx context.Context, id string) (*Session, error)
	Synthesize(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// CatalogService is the part of the council API that manages metadata
type CatalogService interface {
	ListSessions(ctx context.Context) ([]SessionSummary, error)
	PatchSession(ctx context.Context, id string, patch SessionPatch) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	ShareSession(ctx context.Context, id string) (*ShareInfo, error)
	UnshareSession(ctx context.Context, id string) error
	GetShareInfo(ctx context.Context, id string) (*ShareInfo, error)
	BranchSession(ctx context.Context, id string, fromRound *int) (*Session, error)
	ListFolders(ctx context.Context) ([]Folder, error)
	CreateFolder(ctx context.Context, name, color string) (*Folder, error)
	UpdateFolder(ctx context.Context, id string, patch FolderPatch) (*Folder, error)
	DeleteFolder(ctx context.Context, id string) error
}

// CouncilService is the full remote API
type CouncilService interface {
	RoundService
	CatalogService
	GetSession(ctx context.Context, id string) (*Session, error)
	GetSharedSession(ctx context.Context, token string) (*Session, error)
	ListModels(ctx context.Context) ([]Model, error)
	Health(ctx context.Context) (*HealthStatus, error)
}

// HealthStatus is the body of the health endpoint
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Client talks to the council service over HTTP/JSON
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for the service at baseURL. The default HTTP
// client has no timeout; session loads are bounded by RaceDeadline instead.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{},
		userAgent: "council-session",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root this client targets
func (c *Client) BaseURL() string {
	return c.baseURL
}

type sessionEnvelope struct {
	Session *Session `json:"session"`
	Message string   `json:"message,omitempty"`
}

type sessionListEnvelope struct {
	Sessions []SessionSummary `json:"sessions"`
	Count    int              `json:"count"`
}

type modelListEnvelope struct {
	Models []Model `json:"models"`
}

type folderEnvelope struct {
	Folder *Folder `json:"folder"`
}

type folderListEnvelope struct {
	Folders []Folder `json:"folders"`
	Count   int      `json:"count"`
}

type shareEnvelope struct {
	Share *ShareInfo `json:"share"`
}

func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	return c.sessionCall(ctx, "create-session", http.MethodPost, "/session", req)
}

func (c *Client) ContinueSession(ctx context.Context, id, question string) (*Session, error) {
	body := map[string]string{"question": question}
	return c.sessionCall(ctx, "continue-session", http.MethodPost, sessionPath(id, "continue"), body)
}

func (c *Client) RunAll(ctx context.Context, id string) (*Session, error) {
	return c.sessionCall(ctx, "run-all", http.MethodPost, sessionPath(id, "run-all"), nil)
}

func (c *Client) GatherResponses(ctx context.Context, id string) (*Session, error) {
	return c.sessionCall(ctx, "gather-responses", http.MethodPost, sessionPath(id, "responses"), nil)
}

func (c *Client) RequestReviews(ctx context.Context, id string) (*Session, error) {
	return c.sessionCall(ctx, "request-reviews", http.MethodPost, sessionPath(id, "reviews"), nil)
}

func (c *Client) Synthesize(ctx context.Context, id string) (*Session, error) {
	return c.sessionCall(ctx, "synthesize", http.MethodPost, sessionPath(id, "synthesize"), nil)
}

func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	return c.sessionCall(ctx, "get-session", http.MethodGet, sessionPath(id, ""), nil)
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, "delete-session", http.MethodDelete, sessionPath(id, ""), nil, nil)
}

func (c *Client) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	var env sessionListEnvelope
	if err := c.do(ctx, "list-sessions", http.MethodGet, "/sessions", nil, &env); err != nil {
		return nil, err
	}
	return env.Sessions, nil
}

func (c *Client) PatchSession(ctx context.Context, id string, patch SessionPatch) (*Session, error) {
	return c.sessionCall(ctx, "patch-session", http.MethodPatch, sessionPath(id, ""), patch)
}

func (c *Client) ShareSession(ctx context.Context, id string) (*ShareInfo, error) {
	return c.shareCall(ctx, "share-session", http.MethodPost, id)
}

func (c *Client) UnshareSession(ctx context.Context, id string) error {
	return c.do(ctx, "unshare-session", http.MethodDelete, sessionPath(id, "share"), nil, nil)
}

func (c *Client) GetShareInfo(ctx context.Context, id string) (*ShareInfo, error) {
	return c.shareCall(ctx, "get-share-info", http.MethodGet, id)
}

func (c *Client) GetSharedSession(ctx context.Context, token string) (*Session, error) {
	return c.sessionCall(ctx, "get-shared-session", http.MethodGet, "/shared/"+url.PathEscape(token), nil)
}

func (c *Client) BranchSession(ctx context.Context, id string, fromRound *int) (*Session, error) {
	body := map[string]interface{}{}
	if fromRound != nil {
		body["from_round_index"] = *fromRound
	}
	return c.sessionCall(ctx, "branch-session", http.MethodPost, sessionPath(id, "branch"), body)
}

func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var env modelListEnvelope
	if err := c.do(ctx, "list-models", http.MethodGet, "/models", nil, &env); err != nil {
		return nil, err
	}
	return env.Models, nil
}

func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	var env folderListEnvelope
	if err := c.do(ctx, "list-folders", http.MethodGet, "/folders", nil, &env); err != nil {
		return nil, err
	}
	return env.Folders, nil
}

func (c *Client) CreateFolder(ctx context.Context, name, color string) (*Folder, error) {
	body := map[string]string{"name": name}
	if color != "" {
		body["color"] = color
	}
	return c.folderCall(ctx, "create-folder", http.MethodPost, "/folders", body)
}

func (c *Client) UpdateFolder(ctx context.Context, id string, patch FolderPatch) (*Folder, error) {
	return c.folderCall(ctx, "update-folder", http.MethodPatch, "/folders/"+url.PathEscape(id), patch)
}

func (c *Client) DeleteFolder(ctx context.Context, id string) error {
	return c.do(ctx, "delete-folder", http.MethodDelete, "/folders/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var h HealthStatus
	if err := c.do(ctx, "health", http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func sessionPath(id, action string) string {
	p := "/session/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) sessionCall(ctx context.Context, op, method, path string, body interface{}) (*Session, error) {
	var env sessionEnvelope
	if err := c.do(ctx, op, method, path, body, &env); err != nil {
		return nil, err
	}
	if env.Session == nil {
		return nil, &TransportError{Op: op, Err: errors.New("response has no session")}
	}
	return env.Session, nil
}

func (c *Client) shareCall(ctx context.Context, op, method, id string) (*ShareInfo, error) {
	var env shareEnvelope
	if err := c.do(ctx, op, method, sessionPath(id, "share"), nil, &env); err != nil {
		return nil, err
	}
	if env.Share == nil {
		return nil, &TransportError{Op: op, Err: errors.New("response has no share info")}
	}
	return env.Share, nil
}

func (c *Client) folderCall(ctx context.Context, op, method, path string, body interface{}) (*Folder, error) {
	var env folderEnvelope
	if err := c.do(ctx, op, method, path, body, &env); err != nil {
		return nil, err
	}
	if env.Folder == nil {
		return nil, &TransportError{Op: op, Err: errors.New("response has no folder")}
	}
	return env.Folder, nil
}

// do performs one request. out may be nil when the body is not needed.
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	Logger().WithFields(logrus.Fields{
		"op":         op,
		"method":     method,
		"path":       path,
		"request_id": requestID,
	}).Debug("council request")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 400 {
		return classifyErrorResponse(op, resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// classifyErrorResponse maps an HTTP error body onto the error taxonomy.
// Bodies that are not JSON are transport failures; a list payload is a
// validation failure; anything else with a message is a domain error.
func classifyErrorResponse(op string, status int, body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return &TransportError{Op: op, Status: status, Err: errors.New(http.StatusText(status))}
	}

	payload := json.RawMessage(trimmed)
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err == nil {
		if detail, ok := wrapper["detail"]; ok {
			payload = detail
		}
	}

	msg := NormalizeErrorPayload(payload)
	if msg == "" {
		msg = http.StatusText(status)
	}

	if bytes.HasPrefix(bytes.TrimSpace(payload), []byte("[")) || status == http.StatusUnprocessableEntity {
		return &ValidationError{Op: op, Status: status, Message: msg, Issues: fieldIssues(payload)}
	}
	return &DomainError{Op: op, Status: status, Message: msg}
}

package api

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
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is where the MailFlow backend listens in development
const DefaultBaseURL = "http://localhost:8000"

// maxErrorBody bounds how much of a failed response is kept in StatusError
const maxErrorBody = 512

// Observer is notified after every round trip. Status is 0 on transport failure.
type Observer interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// Client talks to the MailFlow backend. It performs no retries, sets no timeout
// and does not cache; every failure is returned to the caller untouched.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	observer Observer
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers an observer for request metrics
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient creates a client for the backend rooted at baseURL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: missing host", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the endpoint every request is sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one call. route is the templated path used for metrics.
// allowEmpty accepts a 2xx response with no body; every other call needs a JSON document.
type request struct {
	method     string
	route      string
	path       string
	query      string
	body       any
	allowEmpty bool
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", r.method, r.path, err)
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL + r.path
	if r.query != "" {
		target += "?" + r.query
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", r.method, r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(r, 0, start)
		c.logger.Debug("api request failed",
			zap.String("method", r.method), zap.String("path", r.path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()
	c.observe(r, resp.StatusCode, start)
	c.logger.Debug("api request",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     r.method,
			Path:       r.path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) && r.allowEmpty {
			return nil
		}
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func (c *Client) observe(r request, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(r.method, r.route, status, time.Since(start))
	}
}

// queryEscape percent-encodes a query value with %20 for spaces
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ListEmails fetches every email
func (c *Client) ListEmails(ctx context.Context) ([]Email, error) {
	var emails []Email
	if err := c.do(ctx, request{method: http.MethodGet, route: "/api/emails", path: "/api/emails"}, &emails); err != nil {
		return nil, err
	}
	if emails == nil {
		emails = []Email{}
	}
	return emails, nil
}

// ListActionItems fetches the action items extracted from every email
func (c *Client) ListActionItems(ctx context.Context) ([]ActionItem, error) {
	var items []ActionItem
	r := request{method: http.MethodGet, route: "/api/emails/actions/all", path: "/api/emails/actions/all"}
	if err := c.do(ctx, r, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []ActionItem{}
	}
	return items, nil
}

// ProcessAll asks the server to categorize and extract actions from unprocessed emails
func (c *Client) ProcessAll(ctx context.Context) (*ProcessResult, error) {
	var res ProcessResult
	r := request{method: http.MethodPost, route: "/api/processing/process-all", path: "/api/processing/process-all", allowEmpty: true}
	if err := c.do(ctx, r, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListPrompts fetches every prompt
func (c *Client) ListPrompts(ctx context.Context) ([]Prompt, error) {
	var prompts []Prompt
	if err := c.do(ctx, request{method: http.MethodGet, route: "/api/prompts", path: "/api/prompts"}, &prompts); err != nil {
		return nil, err
	}
	if prompts == nil {
		prompts = []Prompt{}
	}
	return prompts, nil
}

// CreatePrompt stores a new prompt; the server assigns its id
func (c *Client) CreatePrompt(ctx context.Context, req CreatePromptRequest) (*Prompt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var p Prompt
	r := request{method: http.MethodPost, route: "/api/prompts/", path: "/api/prompts/", body: req}
	if err := c.do(ctx, r, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePrompt changes the given fields of a prompt
func (c *Client) UpdatePrompt(ctx context.Context, id ID, req UpdatePromptRequest) (*Prompt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var p Prompt
	r := request{method: http.MethodPut, route: "/api/prompts/{id}", path: "/api/prompts/" + id.String(), body: req}
	if err := c.do(ctx, r, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePrompt removes a prompt
func (c *Client) DeletePrompt(ctx context.Context, id ID) (*Message, error) {
	var m Message
	r := request{method: http.MethodDelete, route: "/api/prompts/{id}", path: "/api/prompts/" + id.String(), allowEmpty: true}
	if err := c.do(ctx, r, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Chat sends one user turn to the assistant
func (c *Client) Chat(ctx context.Context, query string) (*ChatReply, error) {
	var reply ChatReply
	r := request{method: http.MethodPost, route: "/api/agent/chat", path: "/api/agent/chat", body: ChatRequest{Query: query}}
	if err := c.do(ctx, r, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// ListDrafts fetches every draft
func (c *Client) ListDrafts(ctx context.Context) ([]Draft, error) {
	var drafts []Draft
	if err := c.do(ctx, request{method: http.MethodGet, route: "/api/drafts", path: "/api/drafts"}, &drafts); err != nil {
		return nil, err
	}
	if drafts == nil {
		drafts = []Draft{}
	}
	return drafts, nil
}

// GetDraft fetches one draft
func (c *Client) GetDraft(ctx context.Context, id ID) (*Draft, error) {
	var d Draft
	r := request{method: http.MethodGet, route: "/api/drafts/{id}", path: "/api/drafts/" + id.String()}
	if err := c.do(ctx, r, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDraft stores a new draft
func (c *Client) CreateDraft(ctx context.Context, req CreateDraftRequest) (*Draft, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var d Draft
	r := request{method: http.MethodPost, route: "/api/drafts/", path: "/api/drafts/", body: req}
	if err := c.do(ctx, r, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateDraft changes the given fields of a draft
func (c *Client) UpdateDraft(ctx context.Context, id ID, req UpdateDraftRequest) (*Draft, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var d Draft
	r := request{method: http.MethodPut, route: "/api/drafts/{id}", path: "/api/drafts/" + id.String(), body: req}
	if err := c.do(ctx, r, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// DeleteDraft removes a draft
func (c *Client) DeleteDraft(ctx context.Context, id ID) (*Message, error) {
	var m Message
	r := request{method: http.MethodDelete, route: "/api/drafts/{id}", path: "/api/drafts/" + id.String(), allowEmpty: true}
	if err := c.do(ctx, r, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GenerateDraft asks the server to write a reply. Parameters travel in the query string only.
func (c *Client) GenerateDraft(ctx context.Context, req GenerateDraftRequest) (*Draft, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var d Draft
	r := request{
		method: http.MethodPost,
		route:  "/api/drafts/generate",
		path:   "/api/drafts/generate",
		query:  "email_id=" + req.EmailID.String() + "&instruction=" + queryEscape(req.instruction()),
	}
	if err := c.do(ctx, r, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

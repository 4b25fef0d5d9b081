// Package client implements the symmetric client runtime of §4.G: agent
// card discovery, task create/get/list/cancel, an SSE consumer, and a
// poll-to-completion helper. It never imports a concrete HTTP server
// runtime — callers inject an http.Client-compatible Doer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/agentweave/a2a/protocol"
)

// Doer is the injectable HTTP transport. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ErrCardFetchFailed is returned by Discover on a non-2xx response.
var ErrCardFetchFailed = errors.New("client: card_fetch_failed")

// ErrSkillNotFound is returned by Skill when the card has no matching entry.
var ErrSkillNotFound = errors.New("client: skill_not_found")

// ErrTimeout is returned by WaitForTask when maxWait elapses before the
// task reaches a terminal state.
var ErrTimeout = errors.New("client: timeout")

const waitPollInterval = 100 * time.Millisecond

// Option configures a Client.
type Option func(*Client)

// WithDoer sets the underlying HTTP transport. Defaults to http.DefaultClient.
func WithDoer(d Doer) Option {
	return func(c *Client) { c.doer = d }
}

// WithAuth sets the Authorization header on every request.
func WithAuth(scheme, token string) Option {
	return func(c *Client) { c.authScheme, c.authToken = scheme, token }
}

// Client talks the wire protocol of §6 against a single agent's base URL.
type Client struct {
	baseURL    string
	doer       Doer
	authScheme string
	authToken  string

	mu   sync.RWMutex
	card *protocol.AgentCard
}

// New creates a Client targeting baseURL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", c.authScheme+" "+c.authToken)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

// Discover fetches and caches the agent card.
func (c *Client) Discover(ctx context.Context) (*protocol.AgentCard, error) {
	c.mu.RLock()
	if c.card != nil {
		card := c.card
		c.mu.RUnlock()
		return card, nil
	}
	c.mu.RUnlock()

	req, err := c.newRequest(ctx, http.MethodGet, "/.well-known/agent-card.json", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCardFetchFailed, err)
	}
	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCardFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrCardFetchFailed, resp.StatusCode)
	}

	var card protocol.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrCardFetchFailed, err)
	}

	c.mu.Lock()
	c.card = &card
	c.mu.Unlock()
	return &card, nil
}

// Skill looks up a skill by id in the (already discovered) card.
func (c *Client) Skill(card *protocol.AgentCard, id string) (protocol.SkillSummary, error) {
	for _, s := range card.Skills {
		if s.ID == id {
			return s, nil
		}
	}
	return protocol.SkillSummary{}, fmt.Errorf("%w: %q", ErrSkillNotFound, id)
}

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respBody any) error {
	var r io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, r)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody protocol.ErrorBody
		if json.NewDecoder(resp.Body).Decode(&errBody) == nil && errBody.Error.Code != "" {
			return fmt.Errorf("client: %s %s: %s: %s", method, path, errBody.Error.Code, errBody.Error.Message)
		}
		return fmt.Errorf("client: %s %s: status %d", method, path, resp.StatusCode)
	}
	if respBody == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("client: %s %s: decode response: %w", method, path, err)
	}
	return nil
}

// CreateTask implements "Send message" (§4.G): POST /tasks.
func (c *Client) CreateTask(ctx context.Context, req protocol.CreateTaskRequest) (protocol.CreateTaskResponse, error) {
	var resp protocol.CreateTaskResponse
	err := c.doJSON(ctx, http.MethodPost, "/tasks", req, &resp)
	return resp, err
}

// GetTask implements GET /tasks/{taskId}.
func (c *Client) GetTask(ctx context.Context, taskID string) (protocol.Task, error) {
	var t protocol.Task
	err := c.doJSON(ctx, http.MethodGet, "/tasks/"+taskID, nil, &t)
	return t, err
}

// CancelTask implements POST /tasks/{taskId}/cancel.
func (c *Client) CancelTask(ctx context.Context, taskID string) (protocol.Task, error) {
	var t protocol.Task
	err := c.doJSON(ctx, http.MethodPost, "/tasks/"+taskID+"/cancel", nil, &t)
	return t, err
}

// ListTasksFilter narrows a ListTasks call.
type ListTasksFilter struct {
	ContextID string
	Status    []protocol.TaskStatus
	Limit     int
	Offset    int
}

// ListTasks implements GET /tasks.
func (c *Client) ListTasks(ctx context.Context, filter ListTasksFilter) (protocol.ListTasksResponse, error) {
	q := url.Values{}
	if filter.ContextID != "" {
		q.Set("contextId", filter.ContextID)
	}
	if len(filter.Status) > 0 {
		strs := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			strs[i] = string(s)
		}
		q.Set("status", strings.Join(strs, ","))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	path := "/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp protocol.ListTasksResponse
	err := c.doJSON(ctx, http.MethodGet, path, nil, &resp)
	return resp, err
}

// WaitForTask polls GetTask at a fixed cadence until the task reaches a
// terminal state or maxWait elapses (§4.G).
func (c *Client) WaitForTask(ctx context.Context, taskID string, maxWait time.Duration) (protocol.Task, error) {
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}
	deadline := time.Now().Add(maxWait)
	for {
		t, err := c.GetTask(ctx, taskID)
		if err != nil {
			return protocol.Task{}, err
		}
		if t.Status.Terminal() {
			return t, nil
		}
		if time.Now().After(deadline) {
			return protocol.Task{}, fmt.Errorf("%w: task %q did not settle within %s", ErrTimeout, taskID, maxWait)
		}
		select {
		case <-ctx.Done():
			return protocol.Task{}, ctx.Err()
		case <-time.After(waitPollInterval):
		}
	}
}

// Invoke calls POST /entrypoints/{key}/invoke (the synchronous path).
func (c *Client) Invoke(ctx context.Context, key string, input any) (protocol.InvokeResponse, error) {
	var resp protocol.InvokeResponse
	err := c.doJSON(ctx, http.MethodPost, "/entrypoints/"+key+"/invoke", map[string]any{"input": input}, &resp)
	return resp, err
}

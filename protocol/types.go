// Package protocol defines the wire-level data model shared by the HTTP
// handlers and the client: tasks, the agent card, SSE envelopes, and the
// closed error-code taxonomy. Nothing in this package talks to a network or
// holds mutable state — it is pure data plus small lookup helpers
// (TaskStatus.Terminal, ErrorCode.HTTPStatus).
package protocol

import "time"

// TaskStatus is the lifecycle state of a Task. Terminal states never change
// once reached.
type TaskStatus string

const (
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal reports whether s is a terminal status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	default:
		return false
	}
}

// ErrorCode enumerates the closed taxonomy of protocol errors.
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "invalid_request"
	ErrInvalidInput        ErrorCode = "invalid_input"
	ErrInvalidOutput       ErrorCode = "invalid_output"
	ErrSkillNotFound       ErrorCode = "skill_not_found"
	ErrEntrypointNotFound  ErrorCode = "entrypoint_not_found"
	ErrTaskNotFound        ErrorCode = "task_not_found"
	ErrNotImplemented      ErrorCode = "not_implemented"
	ErrInvalidState        ErrorCode = "invalid_state"
	ErrStreamNotSupported  ErrorCode = "stream_not_supported"
	ErrInternal            ErrorCode = "internal_error"
	ErrParse               ErrorCode = "parse_error"
)

// HTTPStatus maps an ErrorCode to the status code it must surface at (§7).
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrInvalidRequest, ErrInvalidInput, ErrStreamNotSupported, ErrInvalidState:
		return 400
	case ErrTaskNotFound, ErrSkillNotFound, ErrEntrypointNotFound:
		return 404
	case ErrNotImplemented:
		return 501
	case ErrInternal, ErrInvalidOutput:
		return 500
	default:
		return 500
	}
}

// Issue is a single schema validation failure.
type Issue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorDetail is the body of every error response: {error:{code,message,details?}}.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message,omitempty"`
	Details any       `json:"details,omitempty"`
}

// ErrorBody wraps an ErrorDetail for JSON responses.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// Result is the output of a successfully settled invocation or task.
type Result struct {
	Output any    `json:"output"`
	Usage  any    `json:"usage,omitempty"`
	Model  string `json:"model,omitempty"`
}

// Task is a server-tracked asynchronous execution of a skill.
type Task struct {
	TaskID    string         `json:"taskId"`
	SkillID   string         `json:"skillId"`
	ContextID string         `json:"contextId,omitempty"`
	Status    TaskStatus     `json:"status"`
	Result    *Result        `json:"result,omitempty"`
	Error     *ErrorDetail   `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// SkillSummary is the discovery-facing description of one skill.
type SkillSummary struct {
	ID           string `json:"id"`
	Description  string `json:"description,omitempty"`
	InputModes   []string `json:"inputModes,omitempty"`
	OutputModes  []string `json:"outputModes,omitempty"`
	Streaming    bool   `json:"streaming"`
	InputSchema  any    `json:"inputSchema,omitempty"`
	OutputSchema any    `json:"outputSchema,omitempty"`
	Pricing      any    `json:"pricing,omitempty"`
}

// AgentCard is the public discovery document served at
// /.well-known/agent-card.json.
type AgentCard struct {
	Name         string         `json:"name"`
	Version      string         `json:"version"`
	Description  string         `json:"description,omitempty"`
	URL          string         `json:"url"`
	Skills       []SkillSummary `json:"skills"`
	Capabilities Capabilities   `json:"capabilities"`
	Extensions   map[string]any `json:"extensions,omitempty"`
	DefaultInputModes  []string `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string `json:"defaultOutputModes,omitempty"`
}

// Capabilities advertises protocol-level feature flags on the agent card.
type Capabilities struct {
	Streaming         bool `json:"streaming"`
	TaskSubscriptions bool `json:"taskSubscriptions"`
}

// StreamKind discriminates a skill-stream SSE envelope.
type StreamKind string

const (
	StreamRunStart StreamKind = "run-start"
	StreamDelta    StreamKind = "delta"
	StreamText     StreamKind = "text"
	StreamError    StreamKind = "error"
	StreamRunEnd   StreamKind = "run-end"
)

// StreamEnvelope is one SSE payload on a skill stream.
type StreamEnvelope struct {
	RunID     string     `json:"runId"`
	Sequence  int        `json:"sequence"`
	CreatedAt time.Time  `json:"createdAt"`
	Kind      StreamKind `json:"kind"`
	Text      string     `json:"text,omitempty"`
	Delta     any        `json:"delta,omitempty"`
	Result    *Result    `json:"result,omitempty"`
	Status    TaskStatus `json:"status,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
}

// TaskEnvelope is one SSE payload on a task subscription.
type TaskEnvelope struct {
	TaskID string       `json:"taskId"`
	Status TaskStatus   `json:"status"`
	Result *Result      `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// Message is the inbound content of a task creation request.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent carries either a flat Text, or Parts, per the extraction
// policy in §4.D of the spec.
type MessageContent struct {
	Text  string        `json:"text,omitempty"`
	Parts []MessagePart `json:"parts,omitempty"`
}

// MessagePart is one element of a multi-part message.
type MessagePart struct {
	Text string `json:"text,omitempty"`
}

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	Message   Message        `json:"message"`
	SkillID   string         `json:"skillId"`
	ContextID string         `json:"contextId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// CreateTaskResponse is the body returned by POST /tasks.
type CreateTaskResponse struct {
	TaskID string     `json:"taskId"`
	Status TaskStatus `json:"status"`
}

// ListTasksResponse is the body returned by GET /tasks.
type ListTasksResponse struct {
	Tasks   []Task `json:"tasks"`
	Total   int    `json:"total"`
	HasMore bool   `json:"hasMore"`
}

// InvokeResponse is the body returned by POST /entrypoints/{key}/invoke.
type InvokeResponse struct {
	RunID  string     `json:"run_id"`
	Status string     `json:"status"`
	Output any        `json:"output"`
	Usage  any        `json:"usage,omitempty"`
	Model  string     `json:"model,omitempty"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}

// EntrypointsResponse is the body returned by GET /entrypoints.
type EntrypointsResponse struct {
	Items []SkillSummary `json:"items"`
}

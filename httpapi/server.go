// Package httpapi implements the REST+SSE protocol surface described in
// §6: health, discovery, synchronous and streaming invoke, and the task
// lifecycle endpoints. Handlers are thin translators onto agentcore.Core
// and task.Manager — they hold no business logic of their own.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/agentweave/a2a/agentcore"
	"github.com/agentweave/a2a/internal/obslog"
	"github.com/agentweave/a2a/protocol"
	"github.com/agentweave/a2a/skill"
	"github.com/agentweave/a2a/task"
)

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultReadTimeout       = 30 * time.Second
	defaultWriteTimeout      = 0 // streaming endpoints must not be cut off
	defaultIdleTimeout       = 120 * time.Second
	defaultMaxBodySize       int64 = 10 << 20

	// subscribeCap is the absolute lifetime of a task-subscription SSE
	// connection, independent of client or task activity (§5).
	subscribeCap = 5 * time.Minute
)

// CardConfig describes the static fields of the agent card; the skills
// list is derived from the registry's contents when NewServer runs.
type CardConfig struct {
	Name               string
	Version            string
	Description        string
	URL                string
	Extensions         map[string]any
	DefaultInputModes  []string
	DefaultOutputModes []string
}

// Server wires the skill registry, agent core, and task manager to an
// http.Handler implementing the external interface in §6.
type Server struct {
	registry *skill.Registry
	core     *agentcore.Core
	tasks    *task.Manager

	maxBodySize int64
	readTimeout time.Duration
	writeTimeout time.Duration
	idleTimeout time.Duration

	cardJSON []byte
	entrypointsJSON []byte
	healthJSON []byte
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithMaxBodySize sets the maximum allowed request body size. Default 10 MB.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) { s.maxBodySize = n }
}

// WithReadTimeout overrides the default 30s request read timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readTimeout = d }
}

// WithIdleTimeout overrides the default 120s idle timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) { s.idleTimeout = d }
}

// NewServer builds a Server. The card is computed once from the registry's
// current contents — callers that add skills after NewServer must construct
// a new Server to pick them up, matching the registry's "written only at
// setup" contract.
func NewServer(reg *skill.Registry, core *agentcore.Core, tasks *task.Manager, cfg CardConfig, opts ...Option) *Server {
	s := &Server{
		registry:     reg,
		core:         core,
		tasks:        tasks,
		maxBodySize:  defaultMaxBodySize,
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		idleTimeout:  defaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	card := buildCard(reg, cfg)
	s.cardJSON = marshalCached(card)
	s.entrypointsJSON = marshalCached(protocol.EntrypointsResponse{Items: card.Skills})
	s.healthJSON = marshalCached(protocol.HealthResponse{OK: true, Version: cfg.Version})

	return s
}

func marshalCached(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		obslog.Error("httpapi: failed to precompute response", "error", err)
		return []byte(`{}`)
	}
	return data
}

// Handler returns the http.Handler implementing the full protocol surface,
// instrumented with OpenTelemetry.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /.well-known/agent-card.json", s.handleCard)
	mux.HandleFunc("GET /entrypoints", s.handleEntrypoints)
	mux.HandleFunc("POST /entrypoints/{key}/invoke", s.handleInvoke)
	mux.HandleFunc("POST /entrypoints/{key}/stream", s.handleStream)
	mux.HandleFunc("POST /tasks", s.handleCreateTask)
	mux.HandleFunc("GET /tasks", s.handleListTasks)
	mux.HandleFunc("GET /tasks/{taskId}", s.handleGetTask)
	mux.HandleFunc("POST /tasks/{taskId}/cancel", s.handleCancelTask)
	mux.HandleFunc("GET /tasks/{taskId}/subscribe", s.handleSubscribeTask)
	return otelhttp.NewHandler(mux, "a2a-server")
}

// ListenAndServe starts an HTTP server on addr using Handler.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       s.idleTimeout,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSONBytes(w, http.StatusOK, s.healthJSON)
}

func (s *Server) handleCard(w http.ResponseWriter, _ *http.Request) {
	writeJSONBytes(w, http.StatusOK, s.cardJSON)
}

func (s *Server) handleEntrypoints(w http.ResponseWriter, _ *http.Request) {
	writeJSONBytes(w, http.StatusOK, s.entrypointsJSON)
}

func writeJSONBytes(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code protocol.ErrorCode, message string, details any) {
	writeJSON(w, code.HTTPStatus(), protocol.ErrorBody{
		Error: protocol.ErrorDetail{Code: code, Message: message, Details: details},
	})
}

func headersOf(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// limitBody wraps r.Body with a size cap and returns the updated request.
func (s *Server) limitBody(w http.ResponseWriter, r *http.Request) *http.Request {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize)
	return r
}

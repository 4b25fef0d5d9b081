// Package skill holds the registry of named capabilities an agent exposes.
package skill

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/agentweave/a2a/schema"
)

var (
	// ErrInvalidSkill is returned when a skill has an empty or missing key.
	ErrInvalidSkill = errors.New("skill: invalid key")
	// ErrDuplicateSkill is returned by Add when the key is already registered.
	ErrDuplicateSkill = errors.New("skill: duplicate key")
	// ErrNoHandler is returned when neither handler is set.
	ErrNoHandler = errors.New("skill: at least one handler is required")
)

// HandlerContext is the narrow handle passed to invoke and stream handlers.
// It never exposes the task manager or HTTP plumbing back to user code —
// only what a handler legitimately needs.
type HandlerContext struct {
	Context context.Context
	Key     string
	Input   any
	Headers map[string]string
	RunID   string

	// Runtime is a narrow handle a handler may use to call out to other
	// agents (composition). It is opaque to this package — callers agree
	// on its concrete type out of band, typically *client.Client — so that
	// handler code never holds a back-reference to the full task runtime.
	Runtime any
}

// InvokeResult is the outcome of a synchronous invoke handler.
type InvokeResult struct {
	Output any
	Usage  any
	Model  string
}

// InvokeHandler runs a skill synchronously and returns its result.
type InvokeHandler func(hc HandlerContext) (InvokeResult, error)

// Emitter is given to a streaming handler to push chunk envelopes toward the
// SSE framing layer. Send returns once the chunk has been accepted.
type Emitter interface {
	Send(chunk any) error
}

// StreamResult is the terminal outcome of a streaming handler, once it has
// finished emitting chunks.
type StreamResult struct {
	Output any
	Usage  any
	Model  string
}

// StreamHandler runs a skill as a stream of chunks, finishing with a result.
type StreamHandler func(hc HandlerContext, emit Emitter) (StreamResult, error)

// Skill is one named capability an agent offers.
type Skill struct {
	Key           string
	Description   string
	InputSchema   *schema.Schema
	OutputSchema  *schema.Schema
	InvokeHandler InvokeHandler
	StreamHandler StreamHandler
	Pricing       any

	// InputModes / OutputModes are carried through to the agent card
	// unchanged; the core does not interpret them.
	InputModes  []string
	OutputModes []string
}

// Streaming reports whether this skill can be driven via the streaming
// invoke path — true whenever a StreamHandler is present.
func (s Skill) Streaming() bool {
	return s.StreamHandler != nil
}

// Registry is an insertion-ordered key→Skill map, read concurrently by
// request handlers and written only at setup via Add.
type Registry struct {
	mu    sync.RWMutex
	order []string
	byKey map[string]Skill
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Skill)}
}

// Add inserts skill, rejecting an empty key, a duplicate key, or a skill
// with neither handler set.
func (r *Registry) Add(s Skill) error {
	if s.Key == "" {
		return ErrInvalidSkill
	}
	if s.InvokeHandler == nil && s.StreamHandler == nil {
		return fmt.Errorf("%w: skill %q", ErrNoHandler, s.Key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byKey[s.Key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateSkill, s.Key)
	}
	r.byKey[s.Key] = s
	r.order = append(r.order, s.Key)
	return nil
}

// Get returns the skill registered under key, if any.
func (r *Registry) Get(key string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byKey[key]
	return s, ok
}

// List returns all skills in insertion order.
func (r *Registry) List() []Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Skill, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.byKey[k])
	}
	return out
}

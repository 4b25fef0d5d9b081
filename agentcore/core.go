// Package agentcore orchestrates one invocation of one skill: lookup,
// input validation, handler dispatch, output validation.
package agentcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentweave/a2a/protocol"
	"github.com/agentweave/a2a/schema"
	"github.com/agentweave/a2a/skill"
)

// ValidationKind distinguishes an input-side from an output-side validation
// failure, per §4.C.
type ValidationKind string

const (
	KindInput  ValidationKind = "input"
	KindOutput ValidationKind = "output"
)

// ValidationError carries the issues produced by a failed schema check.
type ValidationError struct {
	Kind   ValidationKind
	Issues []protocol.Issue
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("agentcore: %s validation failed (%d issues)", e.Kind, len(e.Issues))
}

// ErrSkillNotFound is returned when Invoke/Stream is called with an unknown key.
var ErrSkillNotFound = errors.New("agentcore: skill not found")

// ErrNotImplemented is returned when Stream is called on a skill with no
// StreamHandler, or Invoke on one with no InvokeHandler.
var ErrNotImplemented = errors.New("agentcore: operation not implemented by skill")

// Core dispatches invocations against a skill registry.
type Core struct {
	Registry *skill.Registry
	// Runtime is handed to every handler's HandlerContext.Runtime unchanged.
	Runtime any
}

// Option configures a Core at construction time.
type Option func(*Core)

// WithRuntime attaches a narrow handle (e.g. a *client.Client) that handlers
// can use to call other agents, without the core importing that package.
func WithRuntime(runtime any) Option {
	return func(c *Core) { c.Runtime = runtime }
}

// New creates a Core backed by reg.
func New(reg *skill.Registry, opts ...Option) *Core {
	c := &Core{Registry: reg}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request bundles the inputs to a single invocation.
type Request struct {
	Key     string
	Input   any
	Headers map[string]string
	RunID   string
}

// Invoke runs a skill's synchronous handler, validating input and output
// against the skill's declared schemas when present.
func (c *Core) Invoke(ctx context.Context, req Request) (skill.InvokeResult, error) {
	sk, ok := c.Registry.Get(req.Key)
	if !ok {
		return skill.InvokeResult{}, fmt.Errorf("%w: %q", ErrSkillNotFound, req.Key)
	}
	if sk.InvokeHandler == nil {
		return skill.InvokeResult{}, fmt.Errorf("%w: %q has no invoke handler", ErrNotImplemented, req.Key)
	}

	input, err := validateInput(sk, req.Input)
	if err != nil {
		return skill.InvokeResult{}, err
	}

	hc := skill.HandlerContext{
		Context: ctx,
		Key:     req.Key,
		Input:   input,
		Headers: req.Headers,
		RunID:   req.RunID,
		Runtime: c.Runtime,
	}

	result, err := sk.InvokeHandler(hc)
	if err != nil {
		return skill.InvokeResult{}, err
	}

	output, verr := validateOutput(sk, result.Output)
	if verr != nil {
		return skill.InvokeResult{}, verr
	}
	result.Output = output
	return result, nil
}

// Stream runs a skill's streaming handler, validating input up front and
// output once the handler settles.
func (c *Core) Stream(ctx context.Context, req Request, emit skill.Emitter) (skill.StreamResult, error) {
	sk, ok := c.Registry.Get(req.Key)
	if !ok {
		return skill.StreamResult{}, fmt.Errorf("%w: %q", ErrSkillNotFound, req.Key)
	}
	if sk.StreamHandler == nil {
		return skill.StreamResult{}, fmt.Errorf("%w: %q has no stream handler", ErrNotImplemented, req.Key)
	}

	input, err := validateInput(sk, req.Input)
	if err != nil {
		return skill.StreamResult{}, err
	}

	hc := skill.HandlerContext{
		Context: ctx,
		Key:     req.Key,
		Input:   input,
		Headers: req.Headers,
		RunID:   req.RunID,
		Runtime: c.Runtime,
	}

	result, err := sk.StreamHandler(hc, emit)
	if err != nil {
		return skill.StreamResult{}, err
	}

	output, verr := validateOutput(sk, result.Output)
	if verr != nil {
		return skill.StreamResult{}, verr
	}
	result.Output = output
	return result, nil
}

func validateInput(sk skill.Skill, input any) (any, error) {
	if sk.InputSchema == nil {
		return input, nil
	}
	canonical, issues, err := schema.Validate(sk.InputSchema, input)
	if err != nil {
		return nil, fmt.Errorf("agentcore: input validation: %w", err)
	}
	if issues != nil {
		return nil, &ValidationError{Kind: KindInput, Issues: issues}
	}
	return canonical, nil
}

func validateOutput(sk skill.Skill, output any) (any, error) {
	if sk.OutputSchema == nil {
		return output, nil
	}
	canonical, issues, err := schema.Validate(sk.OutputSchema, output)
	if err != nil {
		return nil, fmt.Errorf("agentcore: output validation: %w", err)
	}
	if issues != nil {
		return nil, &ValidationError{Kind: KindOutput, Issues: issues}
	}
	return canonical, nil
}

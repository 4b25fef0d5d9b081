package agentcore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentweave/a2a/schema"
	"github.com/agentweave/a2a/skill"
)

func echoSkill() skill.Skill {
	return skill.Skill{
		Key: "echo",
		InvokeHandler: func(hc skill.HandlerContext) (skill.InvokeResult, error) {
			return skill.InvokeResult{Output: hc.Input}, nil
		},
	}
}

func TestCore_InvokeSkillNotFound(t *testing.T) {
	reg := skill.NewRegistry()
	c := New(reg)

	_, err := c.Invoke(context.Background(), Request{Key: "nope"})
	assert.ErrorIs(t, err, ErrSkillNotFound)
}

func TestCore_InvokeNotImplemented(t *testing.T) {
	reg := skill.NewRegistry()
	require.NoError(t, reg.Add(skill.Skill{Key: "stream-only", StreamHandler: func(skill.HandlerContext, skill.Emitter) (skill.StreamResult, error) {
		return skill.StreamResult{}, nil
	}}))
	c := New(reg)

	_, err := c.Invoke(context.Background(), Request{Key: "stream-only"})
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestCore_InvokeHappyPath(t *testing.T) {
	reg := skill.NewRegistry()
	require.NoError(t, reg.Add(echoSkill()))
	c := New(reg)

	result, err := c.Invoke(context.Background(), Request{Key: "echo", Input: map[string]any{"text": "hi"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"text": "hi"}, result.Output)
}

func TestCore_InvokeInputValidationFailure(t *testing.T) {
	reg := skill.NewRegistry()
	sk := echoSkill()
	sk.InputSchema = schema.New(map[string]any{
		"type":     "object",
		"required": []string{"text"},
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
	})
	require.NoError(t, reg.Add(sk))
	c := New(reg)

	_, err := c.Invoke(context.Background(), Request{Key: "echo", Input: map[string]any{}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, KindInput, verr.Kind)
	assert.NotEmpty(t, verr.Issues)
}

func TestCore_InvokeOutputValidationFailure(t *testing.T) {
	reg := skill.NewRegistry()
	sk := skill.Skill{
		Key: "bad-output",
		OutputSchema: schema.New(map[string]any{
			"type":     "object",
			"required": []string{"text"},
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
		}),
		InvokeHandler: func(skill.HandlerContext) (skill.InvokeResult, error) {
			return skill.InvokeResult{Output: map[string]any{}}, nil
		},
	}
	require.NoError(t, reg.Add(sk))
	c := New(reg)

	_, err := c.Invoke(context.Background(), Request{Key: "bad-output"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, KindOutput, verr.Kind)
}

func TestCore_InvokePropagatesHandlerError(t *testing.T) {
	reg := skill.NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, reg.Add(skill.Skill{
		Key: "explode",
		InvokeHandler: func(skill.HandlerContext) (skill.InvokeResult, error) {
			return skill.InvokeResult{}, boom
		},
	}))
	c := New(reg)

	_, err := c.Invoke(context.Background(), Request{Key: "explode"})
	assert.ErrorIs(t, err, boom)
}

func TestCore_RuntimePassedThroughToHandler(t *testing.T) {
	reg := skill.NewRegistry()
	var seenRuntime any
	require.NoError(t, reg.Add(skill.Skill{
		Key: "uses-runtime",
		InvokeHandler: func(hc skill.HandlerContext) (skill.InvokeResult, error) {
			seenRuntime = hc.Runtime
			return skill.InvokeResult{}, nil
		},
	}))
	runtime := "fake-client-handle"
	c := New(reg, WithRuntime(runtime))

	_, err := c.Invoke(context.Background(), Request{Key: "uses-runtime"})
	require.NoError(t, err)
	assert.Equal(t, runtime, seenRuntime)
}

func TestCore_StreamHappyPath(t *testing.T) {
	reg := skill.NewRegistry()
	require.NoError(t, reg.Add(skill.Skill{
		Key: "stream",
		StreamHandler: func(hc skill.HandlerContext, emit skill.Emitter) (skill.StreamResult, error) {
			require.NoError(t, emit.Send("chunk-1"))
			return skill.StreamResult{Output: "done"}, nil
		},
	}))
	c := New(reg)

	var received []any
	emit := emitterFunc(func(chunk any) error {
		received = append(received, chunk)
		return nil
	})

	result, err := c.Stream(context.Background(), Request{Key: "stream"}, emit)
	require.NoError(t, err)
	assert.Equal(t, "done", result.Output)
	assert.Equal(t, []any{"chunk-1"}, received)
}

type emitterFunc func(chunk any) error

func (f emitterFunc) Send(chunk any) error { return f(chunk) }

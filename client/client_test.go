package client_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentweave/a2a/agentcore"
	"github.com/agentweave/a2a/client"
	"github.com/agentweave/a2a/httpapi"
	"github.com/agentweave/a2a/protocol"
	"github.com/agentweave/a2a/skill"
	"github.com/agentweave/a2a/task"
)

func echoSkill() skill.Skill {
	return skill.Skill{
		Key:         "echo",
		Description: "echoes its input back",
		InvokeHandler: func(hc skill.HandlerContext) (skill.InvokeResult, error) {
			return skill.InvokeResult{Output: hc.Input}, nil
		},
		StreamHandler: func(hc skill.HandlerContext, emit skill.Emitter) (skill.StreamResult, error) {
			_ = emit.Send(hc.Input)
			return skill.StreamResult{Output: hc.Input}, nil
		},
	}
}

func slowSkill(d time.Duration) skill.Skill {
	return skill.Skill{
		Key: "slow",
		InvokeHandler: func(hc skill.HandlerContext) (skill.InvokeResult, error) {
			select {
			case <-time.After(d):
				return skill.InvokeResult{Output: "done"}, nil
			case <-hc.Context.Done():
				return skill.InvokeResult{}, hc.Context.Err()
			}
		},
	}
}

func newTestAgent(t *testing.T, skills ...skill.Skill) *httptest.Server {
	t.Helper()
	reg := skill.NewRegistry()
	for _, s := range skills {
		require.NoError(t, reg.Add(s))
	}
	core := agentcore.New(reg)
	tasks := task.New(core)
	srv := httpapi.NewServer(reg, core, tasks, httpapi.CardConfig{Name: "test-agent", Version: "1.0.0"})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_DiscoverCachesCard(t *testing.T) {
	ts := newTestAgent(t, echoSkill())
	c := client.New(ts.URL)

	card, err := c.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-agent", card.Name)
	require.Len(t, card.Skills, 1)

	ts.Close() // second Discover must use the cache, not hit the network
	card2, err := c.Discover(context.Background())
	require.NoError(t, err)
	assert.Same(t, card, card2)
}

func TestClient_DiscoverFailure(t *testing.T) {
	c := client.New("http://127.0.0.1:0")
	_, err := c.Discover(context.Background())
	assert.ErrorIs(t, err, client.ErrCardFetchFailed)
}

func TestClient_Skill(t *testing.T) {
	ts := newTestAgent(t, echoSkill())
	c := client.New(ts.URL)
	card, err := c.Discover(context.Background())
	require.NoError(t, err)

	s, err := c.Skill(card, "echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", s.ID)

	_, err = c.Skill(card, "nope")
	assert.ErrorIs(t, err, client.ErrSkillNotFound)
}

func TestClient_CreateGetCancelTask(t *testing.T) {
	ts := newTestAgent(t, slowSkill(time.Second))
	c := client.New(ts.URL)

	created, err := c.CreateTask(context.Background(), protocol.CreateTaskRequest{SkillID: "slow"})
	require.NoError(t, err)
	assert.Equal(t, protocol.TaskRunning, created.Status)

	got, err := c.GetTask(context.Background(), created.TaskID)
	require.NoError(t, err)
	assert.Equal(t, created.TaskID, got.TaskID)

	cancelled, err := c.CancelTask(context.Background(), created.TaskID)
	require.NoError(t, err)
	assert.Equal(t, protocol.TaskCancelled, cancelled.Status)
}

func TestClient_WaitForTaskHappyPath(t *testing.T) {
	ts := newTestAgent(t, echoSkill())
	c := client.New(ts.URL)

	created, err := c.CreateTask(context.Background(), protocol.CreateTaskRequest{
		SkillID: "echo",
		Message: protocol.Message{Content: protocol.MessageContent{Text: `{"text":"hi"}`}},
	})
	require.NoError(t, err)

	settled, err := c.WaitForTask(context.Background(), created.TaskID, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, protocol.TaskCompleted, settled.Status)
	assert.Equal(t, map[string]any{"text": "hi"}, settled.Result.Output)
}

func TestClient_WaitForTaskTimeout(t *testing.T) {
	ts := newTestAgent(t, slowSkill(time.Second))
	c := client.New(ts.URL)

	created, err := c.CreateTask(context.Background(), protocol.CreateTaskRequest{SkillID: "slow"})
	require.NoError(t, err)

	_, err = c.WaitForTask(context.Background(), created.TaskID, 20*time.Millisecond)
	assert.ErrorIs(t, err, client.ErrTimeout)
}

func TestClient_ListTasks(t *testing.T) {
	ts := newTestAgent(t, echoSkill())
	c := client.New(ts.URL)

	for i := 0; i < 3; i++ {
		_, err := c.CreateTask(context.Background(), protocol.CreateTaskRequest{
			SkillID:   "echo",
			ContextID: "ctx-1",
			Message:   protocol.Message{Content: protocol.MessageContent{Text: "1"}},
		})
		require.NoError(t, err)
	}

	listed, err := c.ListTasks(context.Background(), client.ListTasksFilter{ContextID: "ctx-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, listed.Total)
}

func TestClient_Invoke(t *testing.T) {
	ts := newTestAgent(t, echoSkill())
	c := client.New(ts.URL)

	resp, err := c.Invoke(context.Background(), "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, map[string]any{"text": "hi"}, resp.Output)
}

func TestClient_InvokeUnknownSkill(t *testing.T) {
	ts := newTestAgent(t)
	c := client.New(ts.URL)

	_, err := c.Invoke(context.Background(), "nope", nil)
	require.Error(t, err)
}

func TestClient_SubscribeTask(t *testing.T) {
	ts := newTestAgent(t, slowSkill(50*time.Millisecond))
	c := client.New(ts.URL)

	created, err := c.CreateTask(context.Background(), protocol.CreateTaskRequest{SkillID: "slow"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := c.SubscribeTask(ctx, created.TaskID)
	require.NoError(t, err)

	var last protocol.TaskEnvelope
	for evt := range events {
		require.NoError(t, evt.ParseErr)
		last = evt.Envelope
	}
	assert.Equal(t, protocol.TaskCompleted, last.Status)
}

func TestClient_StreamInvoke(t *testing.T) {
	ts := newTestAgent(t, echoSkill())
	c := client.New(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := c.StreamInvoke(ctx, "echo", "hi")
	require.NoError(t, err)

	var kinds []protocol.StreamKind
	for evt := range events {
		require.NoError(t, evt.ParseErr)
		kinds = append(kinds, evt.Envelope.Kind)
	}
	require.NotEmpty(t, kinds)
	assert.Equal(t, protocol.StreamRunStart, kinds[0])
	assert.Equal(t, protocol.StreamRunEnd, kinds[len(kinds)-1])
}

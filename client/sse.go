package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/agentweave/a2a/protocol"
)

// sseFrame is one raw parsed SSE record before its payload is decoded into a
// concrete envelope type.
type sseFrame struct {
	event string
	data  string
}

// readFrames scans r for SSE records, pushing one frame per blank-line
// terminated block onto ch. It stops on EOF, a read error, or ctx.Done.
func readFrames(ctx context.Context, r io.Reader, ch chan<- sseFrame) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var event string
	var data strings.Builder

	flush := func() bool {
		if data.Len() == 0 {
			return true
		}
		select {
		case ch <- sseFrame{event: event, data: data.String()}:
		case <-ctx.Done():
			return false
		}
		event = ""
		data.Reset()
		return true
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, ":"):
			continue
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			d := strings.TrimPrefix(line, "data:")
			d = strings.TrimPrefix(d, " ")
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(d)
		case line == "":
			if !flush() {
				return
			}
		}
	}
	flush()
}

// TaskEvent is one parsed task-subscription SSE record.
type TaskEvent struct {
	Name     string
	Envelope protocol.TaskEnvelope
	ParseErr error
}

// SubscribeTask opens GET /tasks/{taskId}/subscribe and streams parsed task
// events to the returned channel until the task settles, ctx is done, or
// the connection ends. A malformed frame is surfaced as a TaskEvent with
// ParseErr set (a parse_error envelope, per §7), not silently dropped.
func (c *Client) SubscribeTask(ctx context.Context, taskID string) (<-chan TaskEvent, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/tasks/"+taskID+"/subscribe", nil)
	if err != nil {
		return nil, fmt.Errorf("client: subscribe %s: %w", taskID, err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: subscribe %s: %w", taskID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, fmt.Errorf("client: subscribe %s: status %d", taskID, resp.StatusCode)
	}

	frames := make(chan sseFrame)
	events := make(chan TaskEvent)

	go func() {
		defer close(frames)
		defer resp.Body.Close()
		readFrames(ctx, resp.Body, frames)
	}()

	go func() {
		defer close(events)
		for f := range frames {
			var env protocol.TaskEnvelope
			evt := TaskEvent{Name: f.event}
			if err := json.Unmarshal([]byte(f.data), &env); err != nil {
				evt.ParseErr = fmt.Errorf("client: parse_error: %w", err)
			} else {
				evt.Envelope = env
			}
			select {
			case events <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// StreamEvent is one parsed skill-stream SSE record.
type StreamEvent struct {
	Envelope protocol.StreamEnvelope
	ParseErr error
}

// StreamInvoke opens POST /entrypoints/{key}/stream and streams parsed
// envelopes to the returned channel.
func (c *Client) StreamInvoke(ctx context.Context, key string, input any) (<-chan StreamEvent, error) {
	body, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return nil, fmt.Errorf("client: marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/entrypoints/"+key+"/stream", strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("client: stream %s: %w", key, err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: stream %s: %w", key, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, fmt.Errorf("client: stream %s: status %d", key, resp.StatusCode)
	}

	frames := make(chan sseFrame)
	events := make(chan StreamEvent)

	go func() {
		defer close(frames)
		defer resp.Body.Close()
		readFrames(ctx, resp.Body, frames)
	}()

	go func() {
		defer close(events)
		for f := range frames {
			var env protocol.StreamEnvelope
			evt := StreamEvent{}
			if err := json.Unmarshal([]byte(f.data), &env); err != nil {
				evt.ParseErr = fmt.Errorf("client: parse_error: %w", err)
			} else {
				evt.Envelope = env
			}
			select {
			case events <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/agentweave/a2a/agentcore"
	"github.com/agentweave/a2a/protocol"
	"github.com/agentweave/a2a/sse"
	"github.com/agentweave/a2a/task"
)

const (
	defaultListLimit = 50
)

var validStatuses = map[protocol.TaskStatus]bool{
	protocol.TaskRunning:   true,
	protocol.TaskCompleted: true,
	protocol.TaskFailed:    true,
	protocol.TaskCancelled: true,
}

// handleCreateTask implements POST /tasks.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	r = s.limitBody(w, r)

	var req protocol.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, protocol.ErrInvalidRequest, "malformed request body", nil)
		return
	}
	if req.SkillID == "" {
		writeError(w, protocol.ErrInvalidRequest, "skillId is required", nil)
		return
	}

	t, err := s.tasks.Create(r.Context(), req.SkillID, req.Message, req.ContextID, req.Metadata)
	if err != nil {
		writeCreateError(w, req.SkillID, err)
		return
	}

	writeJSON(w, http.StatusOK, protocol.CreateTaskResponse{TaskID: t.TaskID, Status: t.Status})
}

func writeCreateError(w http.ResponseWriter, skillID string, err error) {
	if errors.Is(err, agentcore.ErrSkillNotFound) {
		writeError(w, protocol.ErrSkillNotFound, "skill not found: "+skillID, nil)
		return
	}
	if errors.Is(err, agentcore.ErrNotImplemented) {
		writeError(w, protocol.ErrNotImplemented, err.Error(), nil)
		return
	}
	writeError(w, protocol.ErrInvalidRequest, err.Error(), nil)
}

// handleGetTask implements GET /tasks/{taskId}.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("taskId")
	t, err := s.tasks.Get(taskID)
	if err != nil {
		writeError(w, protocol.ErrTaskNotFound, "task not found: "+taskID, nil)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleListTasks implements GET /tasks. Per the Open Question resolution
// in §9, unknown status tokens are rejected with invalid_request rather
// than silently yielding an empty result.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	statuses, err := parseStatuses(q)
	if err != nil {
		writeError(w, protocol.ErrInvalidRequest, err.Error(), nil)
		return
	}

	limit := defaultListLimit
	if v := q.Get("limit"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			writeError(w, protocol.ErrInvalidRequest, "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			writeError(w, protocol.ErrInvalidRequest, "offset must be a non-negative integer", nil)
			return
		}
		offset = n
	}

	tasks, total, hasMore := s.tasks.List(task.ListFilter{
		ContextID: q.Get("contextId"),
		Statuses:  statuses,
		Limit:     limit,
		Offset:    offset,
	})

	writeJSON(w, http.StatusOK, protocol.ListTasksResponse{
		Tasks:   tasks,
		Total:   total,
		HasMore: hasMore,
	})
}

func parseStatuses(q url.Values) ([]protocol.TaskStatus, error) {
	raw := q.Get("status")
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]protocol.TaskStatus, 0, len(parts))
	for _, p := range parts {
		status := protocol.TaskStatus(strings.TrimSpace(p))
		if !validStatuses[status] {
			return nil, errors.New("unknown status value: " + string(status))
		}
		out = append(out, status)
	}
	return out, nil
}

// handleCancelTask implements POST /tasks/{taskId}/cancel.
func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("taskId")
	t, err := s.tasks.Cancel(taskID)
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			writeError(w, protocol.ErrTaskNotFound, "task not found: "+taskID, nil)
			return
		}
		writeError(w, protocol.ErrInvalidState, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleSubscribeTask implements GET /tasks/{taskId}/subscribe (§4.D/§4.E):
// emits one event and closes if the task is already terminal, otherwise
// streams further events until settlement, client disconnect, or the
// absolute connection cap.
func (s *Server) handleSubscribeTask(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("taskId")

	ctx, cancel := context.WithTimeout(r.Context(), subscribeCap)
	defer cancel()

	snapshot, ch, err := s.tasks.Subscribe(ctx, taskID)
	if err != nil {
		writeError(w, protocol.ErrTaskNotFound, "task not found: "+taskID, nil)
		return
	}

	sse.SetHeaders(w)
	writer, werr := sse.NewWriter(w)
	if werr != nil {
		writeError(w, protocol.ErrInternal, "streaming not supported by response writer", nil)
		return
	}

	if ch == nil {
		writer.Write(terminalEvent(snapshot))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			writer.Write(evt)
		}
	}
}

func terminalEvent(t protocol.Task) sse.Event {
	env := protocol.TaskEnvelope{TaskID: t.TaskID, Status: t.Status, Result: t.Result, Error: t.Error}
	data, err := json.Marshal(env)
	if err != nil {
		data = []byte(`{}`)
	}
	name := "statusUpdate"
	switch {
	case t.Error != nil:
		name = "error"
	case t.Result != nil:
		name = "resultUpdate"
	}
	return sse.Event{Name: name, Data: data}
}

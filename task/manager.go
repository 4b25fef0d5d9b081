package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/agentweave/a2a/agentcore"
	"github.com/agentweave/a2a/internal/idgen"
	"github.com/agentweave/a2a/protocol"
	"github.com/agentweave/a2a/skill"
	"github.com/agentweave/a2a/sse"
)

// ErrTaskNotFound is returned by Get/Cancel/Subscribe for an unknown task ID.
var ErrTaskNotFound = errors.New("task: not found")

// ErrNotRunning is returned by Cancel when the task has already reached a
// terminal state.
var ErrNotRunning = errors.New("task: not running")

// Metrics is the narrow hook the task manager reports through. A nil
// Metrics is a valid no-op.
type Metrics interface {
	TaskCreated(skillID string)
	TaskSettled(skillID string, status protocol.TaskStatus, elapsed time.Duration)
}

// record is the manager's internal bookkeeping for one task, guarded by its
// own mutex so that a slow handler never blocks List/Get of other tasks. It
// also owns the fan-out of its own status stream directly (see fanout.go)
// rather than delegating to a standalone broadcaster type.
type record struct {
	mu         sync.Mutex
	task       protocol.Task
	cancelling bool
	cancel     context.CancelFunc
	fanout     fanout
}

func (r *record) snapshot() protocol.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.task
}

// Manager tracks asynchronous task execution against an agentcore.Core. It
// owns no HTTP concerns: callers hand it the task's protocol.Message (Create
// extracts the skill input from it) and get back protocol.Task values.
type Manager struct {
	core    *agentcore.Core
	metrics Metrics
	now     func() time.Time

	mu      sync.RWMutex
	byID    map[string]*record
	order   []string
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithMetrics attaches a Metrics sink.
func WithMetrics(m Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// withClock overrides the manager's notion of "now", for tests.
func withClock(now func() time.Time) Option {
	return func(mgr *Manager) { mgr.now = now }
}

// New creates a Manager that dispatches invocations through core.
func New(core *agentcore.Core, opts ...Option) *Manager {
	mgr := &Manager{
		core: core,
		now:  time.Now,
		byID: make(map[string]*record),
	}
	for _, opt := range opts {
		opt(mgr)
	}
	return mgr
}

// Create registers a new task and starts its handler in the background,
// returning the initial (running) snapshot immediately. Per §4.D, input is
// extracted from msg.Content before being handed to the skill.
func (m *Manager) Create(ctx context.Context, skillID string, msg protocol.Message, contextID string, metadata map[string]any) (protocol.Task, error) {
	sk, ok := m.core.Registry.Get(skillID)
	if !ok {
		return protocol.Task{}, fmt.Errorf("%w: %q", agentcore.ErrSkillNotFound, skillID)
	}
	if sk.InvokeHandler == nil {
		return protocol.Task{}, fmt.Errorf("%w: %q has no invoke handler", agentcore.ErrNotImplemented, skillID)
	}

	input := ExtractInput(msg.Content)

	now := m.now()
	taskID := idgen.New()

	// The handler runs detached from the request that created it, so the
	// span context is carried across explicitly rather than via ctx.
	spanCtx := trace.SpanContextFromContext(ctx)
	runCtx, cancel := context.WithCancel(trace.ContextWithSpanContext(context.Background(), spanCtx))

	rec := &record{
		task: protocol.Task{
			TaskID:    taskID,
			SkillID:   skillID,
			ContextID: contextID,
			Status:    protocol.TaskRunning,
			Metadata:  metadata,
			CreatedAt: now,
			UpdatedAt: now,
		},
		cancel: cancel,
	}

	m.mu.Lock()
	m.byID[taskID] = rec
	m.order = append(m.order, taskID)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.TaskCreated(skillID)
	}

	go m.run(runCtx, rec, sk, input)

	return rec.snapshot(), nil
}

// run executes the skill handler and settles rec, discarding the outcome if
// the task has already reached a terminal state by the time the handler
// returns (the completion latch required by invariant 5).
func (m *Manager) run(ctx context.Context, rec *record, sk skill.Skill, input any) {
	started := m.now()
	defer func() {
		if p := recover(); p != nil {
			m.settle(rec, nil, &protocol.ErrorDetail{
				Code:    protocol.ErrInternal,
				Message: fmt.Sprintf("handler panic: %v", p),
			}, started)
		}
	}()

	result, err := m.core.Invoke(ctx, agentcore.Request{
		Key:   rec.task.SkillID,
		Input: input,
		RunID: rec.task.TaskID,
	})
	if err != nil {
		m.settle(rec, nil, classifyError(err, ctx), started)
		return
	}

	m.settle(rec, &protocol.Result{
		Output: result.Output,
		Usage:  result.Usage,
		Model:  result.Model,
	}, nil, started)
}

// classifyError maps a handler-side failure onto the closed error taxonomy,
// per §4.D's failure classification.
func classifyError(err error, ctx context.Context) *protocol.ErrorDetail {
	if ctx.Err() != nil {
		return &protocol.ErrorDetail{Code: protocol.ErrInvalidState, Message: "cancelled"}
	}
	var verr *agentcore.ValidationError
	if errors.As(err, &verr) {
		code := protocol.ErrInvalidInput
		if verr.Kind == agentcore.KindOutput {
			code = protocol.ErrInvalidOutput
		}
		return &protocol.ErrorDetail{Code: code, Message: verr.Error(), Details: verr.Issues}
	}
	return &protocol.ErrorDetail{Code: protocol.ErrInternal, Message: err.Error()}
}

// settle transitions rec to a terminal state unless it already is one (the
// cancelling sub-state always wins: a handler result racing a cancel is
// discarded in favor of "cancelled").
func (m *Manager) settle(rec *record, result *protocol.Result, errDetail *protocol.ErrorDetail, started time.Time) {
	rec.mu.Lock()
	if rec.task.Status.Terminal() || rec.cancelling {
		if rec.cancelling && !rec.task.Status.Terminal() {
			rec.task.Status = protocol.TaskCancelled
			rec.task.UpdatedAt = m.now()
			rec.fanout.settle(envelopeEvent(rec.task))
		}
		rec.mu.Unlock()
		return
	}

	rec.task.UpdatedAt = m.now()
	if errDetail != nil {
		rec.task.Status = protocol.TaskFailed
		rec.task.Error = errDetail
	} else {
		rec.task.Status = protocol.TaskCompleted
		rec.task.Result = result
	}
	snapshot := rec.task
	rec.fanout.settle(envelopeEvent(snapshot))
	rec.mu.Unlock()

	if m.metrics != nil {
		m.metrics.TaskSettled(snapshot.SkillID, snapshot.Status, m.now().Sub(started))
	}
}

func envelopeEvent(t protocol.Task) sse.Event {
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

// Get returns the current snapshot of a task.
func (m *Manager) Get(taskID string) (protocol.Task, error) {
	m.mu.RLock()
	rec, ok := m.byID[taskID]
	m.mu.RUnlock()
	if !ok {
		return protocol.Task{}, fmt.Errorf("%w: %q", ErrTaskNotFound, taskID)
	}
	return rec.snapshot(), nil
}

// ListFilter narrows a List call.
type ListFilter struct {
	ContextID string
	Statuses  []protocol.TaskStatus
	Limit     int
	Offset    int
}

// List returns tasks matching filter, insertion-ordered, along with the
// total count before pagination and whether more results remain.
func (m *Manager) List(filter ListFilter) (tasks []protocol.Task, total int, hasMore bool) {
	m.mu.RLock()
	recs := make([]*record, 0, len(m.order))
	for _, id := range m.order {
		recs = append(recs, m.byID[id])
	}
	m.mu.RUnlock()

	statusSet := make(map[protocol.TaskStatus]bool, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statusSet[s] = true
	}

	matched := make([]protocol.Task, 0, len(recs))
	for _, rec := range recs {
		t := rec.snapshot()
		if filter.ContextID != "" && t.ContextID != filter.ContextID {
			continue
		}
		if len(statusSet) > 0 && !statusSet[t.Status] {
			continue
		}
		matched = append(matched, t)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	total = len(matched)
	offset := filter.Offset
	if offset > total {
		offset = total
	}
	end := total
	if filter.Limit > 0 && offset+filter.Limit < end {
		end = offset + filter.Limit
	}
	tasks = matched[offset:end]
	hasMore = end < total
	return tasks, total, hasMore
}

// Cancel transitions a running task toward cancellation. It is not
// idempotent: calling it on a task that is already terminal (including one
// already cancelled) returns ErrNotRunning.
func (m *Manager) Cancel(taskID string) (protocol.Task, error) {
	m.mu.RLock()
	rec, ok := m.byID[taskID]
	m.mu.RUnlock()
	if !ok {
		return protocol.Task{}, fmt.Errorf("%w: %q", ErrTaskNotFound, taskID)
	}

	rec.mu.Lock()
	if rec.task.Status.Terminal() || rec.cancelling {
		rec.mu.Unlock()
		return protocol.Task{}, fmt.Errorf("%w: task %q is not running", ErrNotRunning, taskID)
	}
	rec.cancelling = true
	cancel := rec.cancel
	rec.mu.Unlock()

	cancel()

	// settle() also handles this transition when the handler goroutine
	// notices ctx.Err(), but cancellation should be observable immediately
	// rather than racing the handler's next check.
	rec.mu.Lock()
	if !rec.task.Status.Terminal() {
		rec.task.Status = protocol.TaskCancelled
		rec.task.UpdatedAt = m.now()
		rec.fanout.settle(envelopeEvent(rec.task))
	}
	snapshot := rec.task
	rec.mu.Unlock()

	// Whichever of Cancel or settle() made the transition, this call is the
	// one that cancelled the task, so it reports the settlement once.
	if m.metrics != nil {
		m.metrics.TaskSettled(snapshot.SkillID, snapshot.Status, m.now().Sub(snapshot.CreatedAt))
	}
	return snapshot, nil
}

// Subscribe reports the current snapshot and, if the task is not yet
// terminal, a channel of further SSE events; the channel is closed once the
// task settles or ctx is done. If the task is already terminal, ch is nil
// and callers should emit one event from the returned snapshot and stop.
func (m *Manager) Subscribe(ctx context.Context, taskID string) (snapshot protocol.Task, ch <-chan sse.Event, err error) {
	m.mu.RLock()
	rec, ok := m.byID[taskID]
	m.mu.RUnlock()
	if !ok {
		return protocol.Task{}, nil, fmt.Errorf("%w: %q", ErrTaskNotFound, taskID)
	}

	rec.mu.Lock()
	snapshot = rec.task
	if snapshot.Status.Terminal() {
		rec.mu.Unlock()
		return snapshot, nil, nil
	}
	id, sub := rec.fanout.join()
	rec.mu.Unlock()

	go func() {
		<-ctx.Done()
		rec.mu.Lock()
		rec.fanout.leave(id)
		rec.mu.Unlock()
	}()

	return snapshot, sub, nil
}

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/agentweave/a2a/agentcore"
	"github.com/agentweave/a2a/internal/idgen"
	"github.com/agentweave/a2a/protocol"
	"github.com/agentweave/a2a/skill"
	"github.com/agentweave/a2a/sse"
)

type invokeBody struct {
	Input any `json:"input"`
}

// handleInvoke implements POST /entrypoints/{key}/invoke (§6): a
// synchronous call that returns its result (or error) in the HTTP response.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	r = s.limitBody(w, r)

	var body invokeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, protocol.ErrInvalidRequest, "malformed request body", nil)
		return
	}

	runID := idgen.New()
	result, err := s.core.Invoke(r.Context(), agentcore.Request{
		Key:     key,
		Input:   body.Input,
		Headers: headersOf(r),
		RunID:   runID,
	})
	if err != nil {
		writeInvokeError(w, key, err)
		return
	}

	writeJSON(w, http.StatusOK, protocol.InvokeResponse{
		RunID:  runID,
		Status: string(protocol.TaskCompleted),
		Output: result.Output,
		Usage:  result.Usage,
		Model:  result.Model,
	})
}

// writeInvokeError classifies an agentcore error onto the wire taxonomy for
// the synchronous invoke path, where errors surface as HTTP responses
// rather than being recorded on a task (§7).
func writeInvokeError(w http.ResponseWriter, key string, err error) {
	if errors.Is(err, agentcore.ErrSkillNotFound) {
		writeError(w, protocol.ErrEntrypointNotFound, "entrypoint not found: "+key, nil)
		return
	}
	if errors.Is(err, agentcore.ErrNotImplemented) {
		writeError(w, protocol.ErrNotImplemented, err.Error(), nil)
		return
	}
	var verr *agentcore.ValidationError
	if errors.As(err, &verr) {
		code := protocol.ErrInvalidInput
		if verr.Kind == agentcore.KindOutput {
			code = protocol.ErrInvalidOutput
		}
		writeError(w, code, verr.Error(), verr.Issues)
		return
	}
	writeError(w, protocol.ErrInternal, err.Error(), nil)
}

// handleStream implements POST /entrypoints/{key}/stream (§6/§4.E): emits
// run-start, any number of chunk envelopes, then run-end; errors emit an
// error envelope followed by a failed run-end.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	r = s.limitBody(w, r)

	sk, ok := s.core.Registry.Get(key)
	if !ok {
		writeError(w, protocol.ErrEntrypointNotFound, "entrypoint not found: "+key, nil)
		return
	}
	if !sk.Streaming() {
		writeError(w, protocol.ErrStreamNotSupported, "entrypoint does not support streaming: "+key, nil)
		return
	}

	var body invokeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, protocol.ErrInvalidRequest, "malformed request body", nil)
		return
	}

	sse.SetHeaders(w)
	writer, err := sse.NewWriter(w)
	if err != nil {
		writeError(w, protocol.ErrInternal, "streaming not supported by response writer", nil)
		return
	}

	runID := idgen.New()
	em := &streamEmitter{writer: writer, runID: runID}

	em.write(protocol.StreamEnvelope{RunID: runID, Kind: protocol.StreamRunStart})

	result, err := s.core.Stream(r.Context(), agentcore.Request{
		Key:     key,
		Input:   body.Input,
		Headers: headersOf(r),
		RunID:   runID,
	}, em)
	if err != nil {
		em.write(protocol.StreamEnvelope{
			RunID: runID,
			Kind:  protocol.StreamError,
			Error: &protocol.ErrorDetail{Code: protocol.ErrInternal, Message: err.Error()},
		})
		em.write(protocol.StreamEnvelope{RunID: runID, Kind: protocol.StreamRunEnd, Status: protocol.TaskFailed})
		return
	}

	em.write(protocol.StreamEnvelope{
		RunID:  runID,
		Kind:   protocol.StreamRunEnd,
		Status: protocol.TaskCompleted,
		Result: &protocol.Result{Output: result.Output, Usage: result.Usage, Model: result.Model},
	})
}

// streamEmitter bridges a skill's Emitter capability to SSE framing,
// enriching every envelope with a gap-free sequence number, per §4.E.
type streamEmitter struct {
	writer *sse.Writer
	runID  string
	seq    int
}

// Send implements skill.Emitter. A string chunk becomes a "text" envelope;
// anything else becomes a "delta" envelope carrying the chunk verbatim.
func (e *streamEmitter) Send(chunk any) error {
	env := protocol.StreamEnvelope{RunID: e.runID}
	if text, ok := chunk.(string); ok {
		env.Kind = protocol.StreamText
		env.Text = text
	} else {
		env.Kind = protocol.StreamDelta
		env.Delta = chunk
	}
	e.write(env)
	return nil
}

func (e *streamEmitter) write(env protocol.StreamEnvelope) {
	env.Sequence = e.seq
	env.CreatedAt = time.Now()
	e.seq++
	data, err := json.Marshal(env)
	if err != nil {
		data = []byte(`{}`)
	}
	e.writer.Write(sse.Event{Name: string(env.Kind), Data: data})
}

var _ skill.Emitter = (*streamEmitter)(nil)

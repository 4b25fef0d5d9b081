// Package sse implements Server-Sent Events wire framing. Fan-out to
// multiple subscribers is a concern of the callers that own a subscriber
// set (see task.record's fanout), not of this package: a frame is a frame
// regardless of how many readers end up seeing it.
package sse

import (
	"fmt"
	"net/http"
	"strings"
)

// Event is a single record to frame onto the wire.
type Event struct {
	ID   string
	Name string
	Data []byte
}

// Writer frames Events onto an http.ResponseWriter per the SSE wire format:
// optional "id:", then "event:", then one "data:" line per payload line,
// then a blank line. Callers must set headers via SetHeaders before the
// first Write.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter wraps w. It returns an error if w does not support flushing,
// which SSE requires.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("sse: response writer does not support flushing")
	}
	return &Writer{w: w, flusher: f}, nil
}

// SetHeaders sets the standard SSE response headers. Must be called before
// the first Write.
func SetHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
}

// Write frames and flushes a single event.
func (sw *Writer) Write(evt Event) {
	var b strings.Builder
	if evt.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", evt.ID)
	}
	if evt.Name != "" {
		fmt.Fprintf(&b, "event: %s\n", evt.Name)
	}
	for _, line := range strings.Split(string(evt.Data), "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteByte('\n')
	_, _ = fmt.Fprint(sw.w, b.String())
	sw.flusher.Flush()
}

package task

import "github.com/agentweave/a2a/sse"

// taskEventBuffer bounds how far a slow SSE reader can lag behind a task's
// status transitions before events start getting dropped for it. A task
// only ever settles once, so the worst case is a subscriber missing its
// final resultUpdate/error frame — which GetTask still serves from the
// snapshot, so no information is lost permanently.
const taskEventBuffer = 64

// fanout is the subscriber bookkeeping for one task's status stream. Unlike
// a general-purpose pub/sub primitive, it is owned directly by a record and
// always guarded by that record's own mutex — there is no separate locking
// layer, since a task's subscriber set is never touched except while its
// record's mutex is already held.
//
// Subscribers are keyed by an incrementing id rather than by channel
// identity: unsubscribe is an O(1) map delete instead of a linear scan for
// a matching channel value.
type fanout struct {
	subs    map[int64]chan sse.Event
	nextID  int64
	settled bool
}

// join registers a new subscriber and returns its id and event channel.
// Callers must already hold the owning record's mutex. If the task has
// already settled, the returned channel is immediately closed.
func (f *fanout) join() (int64, <-chan sse.Event) {
	ch := make(chan sse.Event, taskEventBuffer)
	if f.settled {
		close(ch)
		return 0, ch
	}
	if f.subs == nil {
		f.subs = make(map[int64]chan sse.Event)
	}
	f.nextID++
	id := f.nextID
	f.subs[id] = ch
	return id, ch
}

// leave drops a subscriber registered via join and closes its channel, if
// settle has not already done so. Callers must already hold the owning
// record's mutex.
func (f *fanout) leave(id int64) {
	if ch, ok := f.subs[id]; ok {
		close(ch)
		delete(f.subs, id)
	}
}

// notify delivers evt to every current subscriber, dropping it for any
// whose buffer is full rather than blocking the caller (the task's run
// goroutine or a Cancel call reporting the task's status transition).
// Callers must already hold the owning record's mutex.
func (f *fanout) notify(evt sse.Event) {
	for _, ch := range f.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// settle delivers evt as the final event, then closes and forgets every
// subscriber channel. Idempotent: a task settles exactly once, but settle
// may be called defensively from more than one code path. Callers must
// already hold the owning record's mutex.
func (f *fanout) settle(evt sse.Event) {
	if f.settled {
		return
	}
	f.settled = true
	f.notify(evt)
	for id, ch := range f.subs {
		close(ch)
		delete(f.subs, id)
	}
}

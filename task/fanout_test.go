package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agentweave/a2a/sse"
)

func TestFanout_NotifyReachesAllSubscribers(t *testing.T) {
	var f fanout
	_, ch1 := f.join()
	_, ch2 := f.join()

	f.notify(sse.Event{Name: "x", Data: []byte("1")})

	select {
	case evt := <-ch1:
		assert.Equal(t, "x", evt.Name)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ch1")
	}
	select {
	case evt := <-ch2:
		assert.Equal(t, "x", evt.Name)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ch2")
	}
}

func TestFanout_DropsOnFullBuffer(t *testing.T) {
	var f fanout
	_, ch := f.join()

	for i := 0; i < taskEventBuffer+10; i++ {
		f.notify(sse.Event{Name: "x"})
	}

	count := 0
drain:
	for {
		select {
		case <-ch:
			count++
		default:
			break drain
		}
	}
	assert.LessOrEqual(t, count, taskEventBuffer)
}

func TestFanout_LeaveStopsDelivery(t *testing.T) {
	var f fanout
	id, ch := f.join()
	f.leave(id)

	f.notify(sse.Event{Name: "x"})

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should not receive after leave unless already closed")
	default:
	}
}

func TestFanout_SettleClosesSubscribers(t *testing.T) {
	var f fanout
	_, ch := f.join()
	f.settle(sse.Event{Name: "resultUpdate"})

	evt, ok := <-ch
	assert.True(t, ok, "settle's own event should be delivered before close")
	assert.Equal(t, "resultUpdate", evt.Name)

	_, ok = <-ch
	assert.False(t, ok)
	assert.True(t, f.settled)
}

func TestFanout_JoinAfterSettleReturnsClosedChannel(t *testing.T) {
	var f fanout
	f.settle(sse.Event{Name: "resultUpdate"})

	_, ch := f.join()
	_, ok := <-ch
	assert.False(t, ok)
}

func TestFanout_SettleIdempotent(t *testing.T) {
	var f fanout
	f.settle(sse.Event{Name: "resultUpdate"})
	assert.NotPanics(t, func() { f.settle(sse.Event{Name: "resultUpdate"}) })
}

func TestFanout_IDsAreUniquePerSubscriber(t *testing.T) {
	var f fanout
	id1, _ := f.join()
	id2, _ := f.join()
	assert.NotEqual(t, id1, id2)
}

package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealmatch-service/internal/models"
)

type fakeConn struct {
	mu       sync.Mutex
	written  [][]byte
	writeErr error
	closed   bool
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) messages(t *testing.T) []models.ChatEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	events := make([]models.ChatEvent, 0, len(f.written))
	for _, raw := range f.written {
		var ev models.ChatEvent
		require.NoError(t, json.Unmarshal(raw, &ev))
		events = append(events, ev)
	}
	return events
}

func TestBroadcastDeliversToCounterpart(t *testing.T) {
	hub := NewHub()
	aliceConn := &fakeConn{}
	bobConn := &fakeConn{}
	hub.Subscribe("m1", aliceConn, ConnInfo{ConnID: "c1", UserID: "alice"})
	hub.Subscribe("m1", bobConn, ConnInfo{ConnID: "c2", UserID: "bob"})

	hub.BroadcastMessage("m1", models.Message{ID: "msg1", MatchID: "m1", SenderID: "alice", Text: "hi"})

	events := bobConn.messages(t)
	require.Len(t, events, 1)
	assert.Equal(t, "message", events[0].Type)
	require.NotNil(t, events[0].Message)
	assert.Equal(t, "msg1", events[0].Message.ID)

	// sender's own connection never sees its echo
	assert.Empty(t, aliceConn.messages(t))
}

func TestBroadcastSuppressesDuplicateDelivery(t *testing.T) {
	hub := NewHub()
	bobConn := &fakeConn{}
	hub.Subscribe("m1", bobConn, ConnInfo{ConnID: "c1", UserID: "bob"})

	msg := models.Message{ID: "msg1", MatchID: "m1", SenderID: "alice", Text: "hi"}
	hub.BroadcastMessage("m1", msg)
	hub.BroadcastMessage("m1", msg)

	assert.Len(t, bobConn.messages(t), 1)
}

func TestBroadcastDistinctMessagesBothArrive(t *testing.T) {
	hub := NewHub()
	bobConn := &fakeConn{}
	hub.Subscribe("m1", bobConn, ConnInfo{ConnID: "c1", UserID: "bob"})

	hub.BroadcastMessage("m1", models.Message{ID: "msg1", MatchID: "m1", SenderID: "alice"})
	hub.BroadcastMessage("m1", models.Message{ID: "msg2", MatchID: "m1", SenderID: "alice"})

	assert.Len(t, bobConn.messages(t), 2)
}

func TestBroadcastScopedToMatch(t *testing.T) {
	hub := NewHub()
	bobConn := &fakeConn{}
	carolConn := &fakeConn{}
	hub.Subscribe("m1", bobConn, ConnInfo{ConnID: "c1", UserID: "bob"})
	hub.Subscribe("m2", carolConn, ConnInfo{ConnID: "c2", UserID: "carol"})

	hub.BroadcastMessage("m1", models.Message{ID: "msg1", MatchID: "m1", SenderID: "alice"})

	assert.Len(t, bobConn.messages(t), 1)
	assert.Empty(t, carolConn.messages(t))
}

func TestBroadcastWriteErrorEvictsConnection(t *testing.T) {
	hub := NewHub()
	broken := &fakeConn{writeErr: assert.AnError}
	hub.Subscribe("m1", broken, ConnInfo{ConnID: "c1", UserID: "bob"})
	require.Equal(t, 1, hub.Subscribers("m1"))

	hub.BroadcastMessage("m1", models.Message{ID: "msg1", MatchID: "m1", SenderID: "alice"})

	assert.Equal(t, 0, hub.Subscribers("m1"))
	assert.True(t, broken.closed)
}

func TestUnsubscribeIdempotent(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{}
	hub.Subscribe("m1", conn, ConnInfo{ConnID: "c1", UserID: "bob"})

	hub.Unsubscribe("m1", conn)
	hub.Unsubscribe("m1", conn)

	assert.Equal(t, 0, hub.Subscribers("m1"))
}

// overlapConn trips a counter when two goroutines are inside
// WriteMessage at the same time.
type overlapConn struct {
	inflight int32
	overlaps int32
	writes   int32
}

func (f *overlapConn) WriteMessage(messageType int, data []byte) error {
	if atomic.AddInt32(&f.inflight, 1) > 1 {
		atomic.AddInt32(&f.overlaps, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&f.inflight, -1)
	atomic.AddInt32(&f.writes, 1)
	return nil
}

func (f *overlapConn) Close() error { return nil }

func TestConcurrentBroadcastsSerializeWritesPerConn(t *testing.T) {
	hub := NewHub()
	conn := &overlapConn{}
	hub.Subscribe("m1", conn, ConnInfo{ConnID: "c1", UserID: "bob"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			hub.BroadcastMessage("m1", models.Message{
				ID:       fmt.Sprintf("msg%d", n),
				MatchID:  "m1",
				SenderID: "alice",
			})
		}(i)
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&conn.overlaps))
	assert.Equal(t, int32(8), atomic.LoadInt32(&conn.writes))
}

func TestFailedWriteDoesNotConsumeDedupSlot(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{writeErr: assert.AnError}
	hub.Subscribe("m1", conn, ConnInfo{ConnID: "c1", UserID: "bob"})

	msg := models.Message{ID: "msg1", MatchID: "m1", SenderID: "alice", Text: "hi"}
	hub.BroadcastMessage("m1", msg)
	require.Equal(t, 0, hub.Subscribers("m1"))

	// the reconnect must still receive the id the failed write consumed
	conn.writeErr = nil
	hub.Subscribe("m1", conn, ConnInfo{ConnID: "c2", UserID: "bob"})
	hub.BroadcastMessage("m1", msg)

	assert.Len(t, conn.messages(t), 1)
}

func TestUserWithTwoConnectionsGetsBoth(t *testing.T) {
	hub := NewHub()
	phone := &fakeConn{}
	laptop := &fakeConn{}
	hub.Subscribe("m1", phone, ConnInfo{ConnID: "c1", UserID: "bob"})
	hub.Subscribe("m1", laptop, ConnInfo{ConnID: "c2", UserID: "bob"})

	hub.BroadcastMessage("m1", models.Message{ID: "msg1", MatchID: "m1", SenderID: "alice"})

	assert.Len(t, phone.messages(t), 1)
	assert.Len(t, laptop.messages(t), 1)
}

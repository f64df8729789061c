// Package transcript maintains a client's local view of one match's chat:
// confirmed messages merged from history loads and realtime delivery, plus
// optimistic entries awaiting server confirmation. Delivery upstream is
// at-least-once and unordered across senders, so merging dedups by message
// id and display order is derived from timestamps, not arrival order.
package transcript

import (
	"sort"
	"sync"
	"time"

	"dealmatch-service/internal/models"
)

// Transcript is safe for concurrent use; realtime delivery callbacks and
// the owning view may touch it from different goroutines.
type Transcript struct {
	mu        sync.Mutex
	confirmed map[string]models.Message // keyed by server id
	pending   map[string]models.Message // keyed by client msg id
}

// New creates an empty transcript.
func New() *Transcript {
	return &Transcript{
		confirmed: make(map[string]models.Message),
		pending:   make(map[string]models.Message),
	}
}

// Add merges an authoritative message. A message id already present is
// discarded. A pending entry with the same client msg id is replaced by
// the confirmed row, whether confirmation arrives via the send response or
// the broadcast first. Reports whether the transcript changed.
func (t *Transcript) Add(msg models.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, seen := t.confirmed[msg.ID]; seen {
		return false
	}
	if msg.ClientMsgID != "" {
		delete(t.pending, msg.ClientMsgID)
	}
	t.confirmed[msg.ID] = msg
	return true
}

// Confirm reconciles the sender's own optimistic entry with the persisted
// message. Same semantics as Add.
func (t *Transcript) Confirm(msg models.Message) bool {
	return t.Add(msg)
}

// AppendPending records an optimistic local entry keyed by the
// client-generated id, shown until the server round-trip settles.
func (t *Transcript) AppendPending(clientMsgID, senderID, text string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending[clientMsgID] = models.Message{
		ID:          clientMsgID,
		SenderID:    senderID,
		ClientMsgID: clientMsgID,
		Text:        text,
		CreatedAt:   now,
	}
}

// Drop rolls back a failed optimistic send. Reports whether an entry was
// removed.
func (t *Transcript) Drop(clientMsgID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[clientMsgID]; !ok {
		return false
	}
	delete(t.pending, clientMsgID)
	return true
}

// Messages returns the display-ordered snapshot: created_at ascending,
// ties broken by id. Pending entries sort by their local timestamp.
func (t *Transcript) Messages() []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.Message, 0, len(t.confirmed)+len(t.pending))
	for _, msg := range t.confirmed {
		out = append(out, msg)
	}
	for _, msg := range t.pending {
		out = append(out, msg)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len reports the number of entries, pending included.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.confirmed) + len(t.pending)
}

package models

import "time"

// Message is one entry of a match's chat transcript. ClientMsgID is the
// sender-generated idempotency key; resending the same key returns the
// already-persisted row.
type Message struct {
	ID          string    `db:"id" json:"id"`
	MatchID     string    `db:"match_id" json:"match_id"`
	SenderID    string    `db:"sender_id" json:"sender_id"`
	ClientMsgID string    `db:"client_msg_id" json:"client_msg_id"`
	Text        string    `db:"text" json:"text"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ChatEvent is broadcast through websockets.
type ChatEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
}

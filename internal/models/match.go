package models

import "time"

// Match is a mutual, compatibility-gated right-swipe between two users on
// one deal. user1/user2 are stored in sorted order; the pair+deal tuple is
// unique regardless of orientation.
type Match struct {
	ID            string    `db:"id" json:"id"`
	User1ID       string    `db:"user1_id" json:"user1_id"`
	User2ID       string    `db:"user2_id" json:"user2_id"`
	DealID        string    `db:"deal_id" json:"deal_id"`
	NotifiedUser1 bool      `db:"notified_user1" json:"notified_user1"`
	NotifiedUser2 bool      `db:"notified_user2" json:"notified_user2"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// HasParticipant reports whether userID is one of the match's two users.
func (m Match) HasParticipant(userID string) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// Counterpart returns the other participant's id.
func (m Match) Counterpart(userID string) string {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// MatchSummary is the API-friendly view of a match for one user.
type MatchSummary struct {
	MatchID         string    `json:"match_id"`
	DealID          string    `json:"deal_id"`
	CounterpartID   string    `json:"counterpart_id"`
	CounterpartName string    `json:"counterpart_name,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

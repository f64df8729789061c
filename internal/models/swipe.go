package models

import "time"

// Swipe directions. The first recorded decision per (user, deal) is final.
const (
	DirectionLeft  = "left"
	DirectionRight = "right"
)

// Swipe records a user's left/right decision on a deal.
type Swipe struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	DealID    string    `db:"deal_id" json:"deal_id"`
	Direction string    `db:"direction" json:"direction"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ValidDirection reports whether s is a known swipe direction.
func ValidDirection(s string) bool {
	return s == DirectionLeft || s == DirectionRight
}

package repositories

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicateSwipe signals a swipe already exists for (user, deal).
	// The first recorded decision is authoritative; callers treat this as
	// "already decided", not as a failure.
	ErrDuplicateSwipe = errors.New("swipe already recorded for this deal")

	ErrSwipeNotFound   = errors.New("swipe not found")
	ErrMatchNotFound   = errors.New("match not found")
	ErrProfileNotFound = errors.New("profile not found")
)

const uniqueViolationCode = "23505"

// isUniqueViolation reports whether err is a Postgres unique-index
// rejection. Insert-time rejection is the authoritative dedup mechanism
// for swipes, matches and message idempotency keys.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}

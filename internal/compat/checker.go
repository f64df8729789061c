// Package compat evaluates whether two users' stated preferences accept
// each other. The predicate itself lives in the database as the
// check_user_compatibility function; this package invokes it and layers
// an optional cache on top.
package compat

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Checker is the compatibility predicate. Implementations must be
// symmetric: IsCompatible(a, b) equals IsCompatible(b, a).
type Checker interface {
	IsCompatible(ctx context.Context, userA, userB string) (bool, error)
}

// DBChecker calls the check_user_compatibility database function.
type DBChecker struct {
	db *sqlx.DB
}

// NewDBChecker constructs a DBChecker.
func NewDBChecker(db *sqlx.DB) *DBChecker {
	return &DBChecker{db: db}
}

// IsCompatible runs the server-side predicate for the pair.
func (c *DBChecker) IsCompatible(ctx context.Context, userA, userB string) (bool, error) {
	var ok bool
	if err := c.db.GetContext(ctx, &ok,
		`SELECT check_user_compatibility($1, $2)`, userA, userB); err != nil {
		return false, fmt.Errorf("check compatibility: %w", err)
	}
	return ok, nil
}

var _ Checker = (*DBChecker)(nil)

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"dealmatch-service/internal/models"
)

// SwipeRepository is the ledger of swipe decisions.
type SwipeRepository interface {
	Create(ctx context.Context, userID, dealID, direction string) (models.Swipe, error)
	GetForUserDeal(ctx context.Context, userID, dealID string) (models.Swipe, error)
	RightSwipesOnDeal(ctx context.Context, dealID, excludeUserID string) ([]models.Swipe, error)
}

// SwipeRepo is a sqlx implementation of SwipeRepository.
type SwipeRepo struct {
	db *sqlx.DB
}

// NewSwipeRepo constructs a SwipeRepo.
func NewSwipeRepo(db *sqlx.DB) *SwipeRepo {
	return &SwipeRepo{db: db}
}

// Create records one decision per (user, deal). A second attempt on the
// same pair fails with ErrDuplicateSwipe via the unique index, regardless
// of direction.
func (r *SwipeRepo) Create(ctx context.Context, userID, dealID, direction string) (models.Swipe, error) {
	if !models.ValidDirection(direction) {
		return models.Swipe{}, fmt.Errorf("invalid swipe direction %q", direction)
	}

	var swipe models.Swipe
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO swipes (user_id, deal_id, direction) VALUES ($1, $2, $3)
         RETURNING id, user_id, deal_id, direction, created_at`,
		userID, dealID, direction).StructScan(&swipe)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Swipe{}, ErrDuplicateSwipe
		}
		return models.Swipe{}, fmt.Errorf("create swipe: %w", err)
	}
	return swipe, nil
}

// GetForUserDeal returns the authoritative decision for (user, deal).
func (r *SwipeRepo) GetForUserDeal(ctx context.Context, userID, dealID string) (models.Swipe, error) {
	var swipe models.Swipe
	err := r.db.GetContext(ctx, &swipe,
		`SELECT id, user_id, deal_id, direction, created_at
         FROM swipes WHERE user_id=$1 AND deal_id=$2`,
		userID, dealID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Swipe{}, ErrSwipeNotFound
	}
	if err != nil {
		return models.Swipe{}, fmt.Errorf("get swipe: %w", err)
	}
	return swipe, nil
}

// RightSwipesOnDeal returns the match candidate set: every right-swipe on
// the deal by other users, earliest interest first.
func (r *SwipeRepo) RightSwipesOnDeal(ctx context.Context, dealID, excludeUserID string) ([]models.Swipe, error) {
	var swipes []models.Swipe
	err := r.db.SelectContext(ctx, &swipes,
		`SELECT id, user_id, deal_id, direction, created_at
         FROM swipes
         WHERE deal_id=$1 AND direction='right' AND user_id <> $2
         ORDER BY created_at ASC, id ASC`,
		dealID, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("list right swipes: %w", err)
	}
	return swipes, nil
}

var _ SwipeRepository = (*SwipeRepo)(nil)

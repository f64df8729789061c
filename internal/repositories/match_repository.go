package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"dealmatch-service/internal/models"
)

// MatchRepository abstracts match persistence and notification claims.
type MatchRepository interface {
	CreateIfAbsent(ctx context.Context, userA, userB, dealID string) (models.Match, bool, error)
	GetMatch(ctx context.Context, matchID string) (models.Match, error)
	GetByPairAndDeal(ctx context.Context, userA, userB, dealID string) (models.Match, error)
	IsParticipant(ctx context.Context, matchID, userID string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]models.Match, error)
	ConsumeUnnotified(ctx context.Context, userID string) ([]models.Match, error)
}

// MatchRepo is a sqlx implementation of MatchRepository.
type MatchRepo struct {
	db *sqlx.DB
}

// NewMatchRepo constructs a MatchRepo.
func NewMatchRepo(db *sqlx.DB) *MatchRepo {
	return &MatchRepo{db: db}
}

const matchColumns = `id, user1_id, user2_id, deal_id, notified_user1, notified_user2, created_at`

// sortPair normalizes the stored orientation so (A,B) and (B,A) hit the
// same unique index entry.
func sortPair(userA, userB string) (string, string) {
	if strings.Compare(userA, userB) > 0 {
		return userB, userA
	}
	return userA, userB
}

// CreateIfAbsent inserts the match for the unordered pair+deal, or returns
// the existing one. The unique index resolves concurrent inserts: the
// loser re-reads the winner's row instead of erroring.
func (r *MatchRepo) CreateIfAbsent(ctx context.Context, userA, userB, dealID string) (models.Match, bool, error) {
	if userA == userB {
		return models.Match{}, false, errors.New("cannot match a user with themselves")
	}
	user1, user2 := sortPair(userA, userB)

	var match models.Match
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO matches (user1_id, user2_id, deal_id) VALUES ($1, $2, $3)
         RETURNING `+matchColumns,
		user1, user2, dealID).StructScan(&match)
	if err == nil {
		return match, true, nil
	}
	if !isUniqueViolation(err) {
		return models.Match{}, false, fmt.Errorf("create match: %w", err)
	}

	existing, err := r.GetByPairAndDeal(ctx, userA, userB, dealID)
	if err != nil {
		return models.Match{}, false, fmt.Errorf("read match after conflict: %w", err)
	}
	return existing, false, nil
}

// GetMatch fetches a match by id.
func (r *MatchRepo) GetMatch(ctx context.Context, matchID string) (models.Match, error) {
	var match models.Match
	err := r.db.GetContext(ctx, &match,
		`SELECT `+matchColumns+` FROM matches WHERE id=$1`, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Match{}, ErrMatchNotFound
	}
	if err != nil {
		return models.Match{}, fmt.Errorf("get match: %w", err)
	}
	return match, nil
}

// GetByPairAndDeal looks the match up symmetrically.
func (r *MatchRepo) GetByPairAndDeal(ctx context.Context, userA, userB, dealID string) (models.Match, error) {
	user1, user2 := sortPair(userA, userB)
	var match models.Match
	err := r.db.GetContext(ctx, &match,
		`SELECT `+matchColumns+` FROM matches
         WHERE LEAST(user1_id, user2_id)=$1 AND GREATEST(user1_id, user2_id)=$2 AND deal_id=$3`,
		user1, user2, dealID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Match{}, ErrMatchNotFound
	}
	if err != nil {
		return models.Match{}, fmt.Errorf("get match by pair: %w", err)
	}
	return match, nil
}

// IsParticipant checks whether a user belongs to the match.
func (r *MatchRepo) IsParticipant(ctx context.Context, matchID, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM matches WHERE id=$1 AND (user1_id=$2 OR user2_id=$2))`,
		matchID, userID)
	return exists, err
}

// ListForUser returns the user's matches, newest first.
func (r *MatchRepo) ListForUser(ctx context.Context, userID string) ([]models.Match, error) {
	var matches []models.Match
	err := r.db.SelectContext(ctx, &matches,
		`SELECT `+matchColumns+` FROM matches
         WHERE user1_id=$1 OR user2_id=$1
         ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

// ConsumeUnnotified atomically claims the user's unnotified matches: the
// UPDATE .. RETURNING flips the flag and returns the rows it flipped, so a
// concurrent second call observes an empty set once this one commits. The
// flag only ever transitions false to true.
func (r *MatchRepo) ConsumeUnnotified(ctx context.Context, userID string) ([]models.Match, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin notification claim: %w", err)
	}
	defer tx.Rollback()

	var claimed []models.Match

	rows, err := tx.QueryxContext(ctx,
		`UPDATE matches SET notified_user1 = TRUE
         WHERE user1_id=$1 AND NOT notified_user1
         RETURNING `+matchColumns,
		userID)
	if err != nil {
		return nil, fmt.Errorf("claim notifications (user1 side): %w", err)
	}
	claimed, err = scanMatches(rows, claimed)
	if err != nil {
		return nil, err
	}

	rows, err = tx.QueryxContext(ctx,
		`UPDATE matches SET notified_user2 = TRUE
         WHERE user2_id=$1 AND NOT notified_user2
         RETURNING `+matchColumns,
		userID)
	if err != nil {
		return nil, fmt.Errorf("claim notifications (user2 side): %w", err)
	}
	claimed, err = scanMatches(rows, claimed)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit notification claim: %w", err)
	}
	return claimed, nil
}

func scanMatches(rows *sqlx.Rows, dst []models.Match) ([]models.Match, error) {
	defer rows.Close()
	for rows.Next() {
		var match models.Match
		if err := rows.StructScan(&match); err != nil {
			return nil, err
		}
		dst = append(dst, match)
	}
	return dst, rows.Err()
}

var _ MatchRepository = (*MatchRepo)(nil)

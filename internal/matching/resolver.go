// Package matching turns a right-swipe into at most one match.
package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"dealmatch-service/internal/compat"
	"dealmatch-service/internal/models"
	"dealmatch-service/internal/observability"
	"dealmatch-service/internal/rabbitmq"
	"dealmatch-service/internal/repositories"
)

// Resolver scans the deal's earlier right-swipes for a compatible
// counterpart and creates the match record idempotently. It never touches
// the swipe that triggered it: a failed resolution is retried on the next
// relevant swipe event, the recorded decision is already safe.
type Resolver struct {
	swipes    repositories.SwipeRepository
	matches   repositories.MatchRepository
	checker   compat.Checker
	publisher rabbitmq.Publisher
	logger    zerolog.Logger
}

// NewResolver constructs a Resolver. publisher may be nil.
func NewResolver(
	swipes repositories.SwipeRepository,
	matches repositories.MatchRepository,
	checker compat.Checker,
	publisher rabbitmq.Publisher,
	logger zerolog.Logger,
) *Resolver {
	return &Resolver{
		swipes:    swipes,
		matches:   matches,
		checker:   checker,
		publisher: publisher,
		logger:    logger,
	}
}

// matchCreatedEvent is published on the topic exchange when a new match
// row is inserted.
type matchCreatedEvent struct {
	MatchID   string    `json:"match_id"`
	User1ID   string    `json:"user1_id"`
	User2ID   string    `json:"user2_id"`
	DealID    string    `json:"deal_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Resolve processes a right-swipe by userID on dealID. It returns the
// created or pre-existing match for the first compatible candidate (in
// swipe order, earliest interest first), whether this call created it, and
// nil, nil when no compatible counterpart has swiped right yet.
//
// A failed compatibility lookup skips the candidate rather than failing
// the swipe: "not a match yet", re-evaluated on the next swipe event.
func (r *Resolver) Resolve(ctx context.Context, userID, dealID string) (*models.Match, bool, error) {
	candidates, err := r.swipes.RightSwipesOnDeal(ctx, dealID, userID)
	if err != nil {
		return nil, false, fmt.Errorf("load match candidates: %w", err)
	}

	for _, candidate := range candidates {
		ok, err := r.checker.IsCompatible(ctx, userID, candidate.UserID)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("user_id", userID).
				Str("candidate_id", candidate.UserID).
				Str("deal_id", dealID).
				Msg("compatibility lookup failed, skipping candidate")
			continue
		}
		if !ok {
			continue
		}

		match, created, err := r.matches.CreateIfAbsent(ctx, userID, candidate.UserID, dealID)
		if err != nil {
			return nil, false, fmt.Errorf("create match: %w", err)
		}
		if created {
			observability.IncMatchCreated()
			r.publishCreated(ctx, match)
			r.logger.Info().
				Str("match_id", match.ID).
				Str("deal_id", match.DealID).
				Msg("match created")
		}
		return &match, created, nil
	}

	return nil, false, nil
}

func (r *Resolver) publishCreated(ctx context.Context, match models.Match) {
	if r.publisher == nil {
		return
	}
	event := matchCreatedEvent{
		MatchID:   match.ID,
		User1ID:   match.User1ID,
		User2ID:   match.User2ID,
		DealID:    match.DealID,
		CreatedAt: match.CreatedAt,
	}
	if err := r.publisher.Publish(ctx, "match.created", event); err != nil {
		r.logger.Warn().Err(err).Str("match_id", match.ID).Msg("match event publish failed")
	}
}

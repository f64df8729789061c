package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"dealmatch-service/internal/models"
)

// ProfileRepository reads user profiles. Profiles are owned by the
// onboarding/profile collaborators; this service never writes them.
type ProfileRepository interface {
	Get(ctx context.Context, userID string) (models.Profile, error)
	GetMany(ctx context.Context, userIDs []string) ([]models.Profile, error)
}

// ProfileRepo is a sqlx implementation of ProfileRepository.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs a ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

const profileColumns = `user_id, display_name, gender, gender_preference, birthdate,
    min_age, max_age, latitude, longitude, max_distance_km, created_at`

// Get fetches one profile.
func (r *ProfileRepo) Get(ctx context.Context, userID string) (models.Profile, error) {
	var profile models.Profile
	err := r.db.GetContext(ctx, &profile,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// GetMany fetches profiles for a set of user ids. Missing ids are simply
// absent from the result.
func (r *ProfileRepo) GetMany(ctx context.Context, userIDs []string) ([]models.Profile, error) {
	if len(userIDs) == 0 {
		return []models.Profile{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+profileColumns+` FROM profiles WHERE user_id IN (?)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("build profile query: %w", err)
	}
	query = r.db.Rebind(query)

	var profiles []models.Profile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

var _ ProfileRepository = (*ProfileRepo)(nil)

package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	database, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(database); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return database, nil
}

// The unique indexes below are the source of correctness for the swipe and
// match invariants: application pre-checks are advisory, insert-time
// rejection is authoritative.
func runMigrations(database *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
            user_id UUID PRIMARY KEY,
            display_name TEXT NOT NULL,
            gender TEXT NOT NULL,
            gender_preference TEXT NOT NULL DEFAULT 'any',
            birthdate DATE NOT NULL,
            min_age INT NOT NULL DEFAULT 18,
            max_age INT NOT NULL DEFAULT 99,
            latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
            longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
            max_distance_km DOUBLE PRECISION NOT NULL DEFAULT 50,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS swipes (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL,
            deal_id UUID NOT NULL,
            direction TEXT NOT NULL CHECK (direction IN ('left', 'right')),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (user_id, deal_id)
        );`,
		`CREATE INDEX IF NOT EXISTS swipes_deal_direction_idx
            ON swipes (deal_id, direction, created_at, id);`,
		`CREATE TABLE IF NOT EXISTS matches (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user1_id UUID NOT NULL,
            user2_id UUID NOT NULL,
            deal_id UUID NOT NULL,
            notified_user1 BOOLEAN NOT NULL DEFAULT FALSE,
            notified_user2 BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CHECK (user1_id <> user2_id)
        );`,
		// Symmetric uniqueness: (A,B) and (B,A) collide on the same deal.
		`CREATE UNIQUE INDEX IF NOT EXISTS matches_pair_deal_idx
            ON matches (LEAST(user1_id, user2_id), GREATEST(user1_id, user2_id), deal_id);`,
		`CREATE TABLE IF NOT EXISTS messages (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            match_id UUID NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
            sender_id UUID NOT NULL,
            client_msg_id UUID NOT NULL,
            text TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (match_id, client_msg_id)
        );`,
		`CREATE INDEX IF NOT EXISTS messages_match_created_idx
            ON messages (match_id, created_at, id);`,
		compatibilityFunction,
	}

	for _, m := range migrations {
		if _, err := database.Exec(m); err != nil {
			return err
		}
	}
	log.Info().Msg("database migrations applied")
	return nil
}

// check_user_compatibility is the server-side predicate the resolver calls.
// Both directions must hold: each user's stated preferences accept the
// other. Distance uses the haversine great-circle approximation in km.
const compatibilityFunction = `
CREATE OR REPLACE FUNCTION check_user_compatibility(u1 UUID, u2 UUID)
RETURNS BOOLEAN AS $$
DECLARE
    p1 profiles%ROWTYPE;
    p2 profiles%ROWTYPE;
    age1 INT;
    age2 INT;
    dist_km DOUBLE PRECISION;
BEGIN
    SELECT * INTO p1 FROM profiles WHERE user_id = u1;
    IF NOT FOUND THEN
        RETURN FALSE;
    END IF;
    SELECT * INTO p2 FROM profiles WHERE user_id = u2;
    IF NOT FOUND THEN
        RETURN FALSE;
    END IF;

    IF p1.gender_preference <> 'any' AND p1.gender_preference <> p2.gender THEN
        RETURN FALSE;
    END IF;
    IF p2.gender_preference <> 'any' AND p2.gender_preference <> p1.gender THEN
        RETURN FALSE;
    END IF;

    age1 := DATE_PART('year', AGE(NOW(), p1.birthdate::timestamp))::int;
    age2 := DATE_PART('year', AGE(NOW(), p2.birthdate::timestamp))::int;
    IF age2 < p1.min_age OR age2 > p1.max_age THEN
        RETURN FALSE;
    END IF;
    IF age1 < p2.min_age OR age1 > p2.max_age THEN
        RETURN FALSE;
    END IF;

    dist_km := 6371 * 2 * ASIN(SQRT(
        POWER(SIN(RADIANS(p2.latitude - p1.latitude) / 2), 2) +
        COS(RADIANS(p1.latitude)) * COS(RADIANS(p2.latitude)) *
        POWER(SIN(RADIANS(p2.longitude - p1.longitude) / 2), 2)
    ));
    IF dist_km > p1.max_distance_km OR dist_km > p2.max_distance_km THEN
        RETURN FALSE;
    END IF;

    RETURN TRUE;
END;
$$ LANGUAGE plpgsql STABLE;
`

package models

import "time"

// Profile holds the identity and preference attributes the compatibility
// predicate reads. Owned by the profile collaborators; read-only here.
type Profile struct {
	UserID           string    `db:"user_id" json:"user_id"`
	DisplayName      string    `db:"display_name" json:"display_name"`
	Gender           string    `db:"gender" json:"gender"`
	GenderPreference string    `db:"gender_preference" json:"gender_preference"`
	Birthdate        time.Time `db:"birthdate" json:"birthdate"`
	MinAge           int       `db:"min_age" json:"min_age"`
	MaxAge           int       `db:"max_age" json:"max_age"`
	Latitude         float64   `db:"latitude" json:"latitude"`
	Longitude        float64   `db:"longitude" json:"longitude"`
	MaxDistanceKM    float64   `db:"max_distance_km" json:"max_distance_km"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

package types //nolint:revive // package name is intentional

import "time"

// UserProfile holds the demographic and goal attributes of a user. The core
// treats it as read-only input.
type UserProfile struct {
	ID            string    `json:"id,omitempty"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name,omitempty"`
	Goal          string    `json:"goal"`
	WeightKg      *float64  `json:"weight_kg,omitempty"`
	HeightCm      *float64  `json:"height_cm,omitempty"`
	DietType      string    `json:"diet_type,omitempty"`
	ActivityLevel int       `json:"activity_level"` // 1-5
	SleepHours    *float64  `json:"sleep_hours,omitempty"`
	StressLevel   *int      `json:"stress_level,omitempty"` // 1-5
	StepsPerDay   *int      `json:"steps_per_day,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DefaultProfile returns the profile used for users that have none yet.
func DefaultProfile(userID string, now time.Time) UserProfile {
	sleep := 7.0
	stress := 3
	steps := 8000
	return UserProfile{
		UserID:        userID,
		Goal:          "maintain",
		ActivityLevel: 3,
		SleepHours:    &sleep,
		StressLevel:   &stress,
		StepsPerDay:   &steps,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

package types //nolint:revive // package name is intentional

import "time"

// ProgressEntry is one logged progress snapshot. Optional metrics are nil
// when not logged.
type ProgressEntry struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	Date        time.Time `json:"date"`
	Weight      *float64  `json:"weight,omitempty"`
	Calories    *int      `json:"calories,omitempty"`
	Mood        string    `json:"mood,omitempty"`
	SleepHours  *float64  `json:"sleep_hours,omitempty"`
	StressLevel *int      `json:"stress_level,omitempty"`
	Steps       *int      `json:"steps,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

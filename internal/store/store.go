// Package store defines the persistence collaborators of the coach: the
// append-only memory log, progress log, user profiles and meal feedback.
// Implementations live in the inmem, postgres and redis subpackages.
package store

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/blueberrycongee/llmcoach/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = stderrors.New("not found")

// Default load limits used by the coach.
const (
	DefaultMemoryLoadLimit   = 10
	DefaultProgressLoadLimit = 7
)

// MemoryReader loads a user's memory log.
type MemoryReader interface {
	// LoadRecentMemories returns at most limit records, newest first.
	LoadRecentMemories(ctx context.Context, userID string, limit int) ([]types.MemoryRecord, error)
}

// MemoryWriter appends extracted insights to a user's memory log.
type MemoryWriter interface {
	// AppendMemories stores records in order and returns them as persisted.
	AppendMemories(ctx context.Context, userID string, records []types.InsightRecord) ([]types.MemoryRecord, error)
}

// MemoryStore reads and writes the memory log.
type MemoryStore interface {
	MemoryReader
	MemoryWriter
}

// ProgressReader loads a user's progress log.
type ProgressReader interface {
	// LoadRecentProgress returns at most limit entries, newest date first.
	LoadRecentProgress(ctx context.Context, userID string, limit int) ([]types.ProgressEntry, error)
}

// ProgressWriter appends progress entries.
type ProgressWriter interface {
	AppendProgress(ctx context.Context, entry types.ProgressEntry) (types.ProgressEntry, error)
}

// ProgressStore reads and writes the progress log.
type ProgressStore interface {
	ProgressReader
	ProgressWriter
}

// ProfileStore reads and writes user profiles.
type ProfileStore interface {
	// GetProfile returns ErrNotFound when the user has no profile.
	GetProfile(ctx context.Context, userID string) (types.UserProfile, error)
	UpsertProfile(ctx context.Context, profile types.UserProfile) error
}

// FeedbackWriter records meal plan ratings and issue reports.
type FeedbackWriter interface {
	RecordFeedback(ctx context.Context, feedback types.MealFeedback) (types.MealFeedback, error)
}

// Store is the full set of collaborators.
type Store interface {
	MemoryStore
	ProgressStore
	ProfileStore
	FeedbackWriter
}

// Retention bounds the memory log of each user. It is enforced on write.
type Retention struct {
	// MaxRecords caps the records kept per user; the oldest are dropped.
	// Zero keeps everything.
	MaxRecords int `yaml:"max_records"`
	// MaxAge drops records older than this. Zero disables age-based expiry.
	MaxAge time.Duration `yaml:"max_age"`
}

// DefaultRetention keeps the latest 500 records per user without expiry.
func DefaultRetention() Retention {
	return Retention{MaxRecords: 500}
}

// Expired reports whether a record created at createdAt is past MaxAge.
func (r Retention) Expired(createdAt, now time.Time) bool {
	return r.MaxAge > 0 && now.Sub(createdAt) > r.MaxAge
}

// Package inmem provides a thread-safe in-memory implementation of the
// coach stores, for tests and single-process deployments.
package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blueberrycongee/llmcoach/internal/store"
	"github.com/blueberrycongee/llmcoach/pkg/types"
)

// Store keeps every log in process memory.
type Store struct {
	mu        sync.RWMutex
	memories  map[string][]types.MemoryRecord
	seq       map[string]int64
	progress  map[string][]types.ProgressEntry
	profiles  map[string]types.UserProfile
	feedback  map[string][]types.MealFeedback
	retention store.Retention
	now       func() time.Time
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithRetention sets the memory log retention policy.
func WithRetention(r store.Retention) Option {
	return func(s *Store) { s.retention = r }
}

// WithClock sets the clock used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		memories:  make(map[string][]types.MemoryRecord),
		seq:       make(map[string]int64),
		progress:  make(map[string][]types.ProgressEntry),
		profiles:  make(map[string]types.UserProfile),
		feedback:  make(map[string][]types.MealFeedback),
		retention: store.DefaultRetention(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendMemories implements store.MemoryWriter.
func (s *Store) AppendMemories(ctx context.Context, userID string, records []types.InsightRecord) ([]types.MemoryRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("append memories: empty user id")
	}
	if len(records) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]types.MemoryRecord, 0, len(records))
	for _, r := range records {
		s.seq[userID]++
		out = append(out, types.MemoryRecord{
			ID:            uuid.NewString(),
			UserID:        userID,
			Seq:           s.seq[userID],
			InsightRecord: r,
			CreatedAt:     now,
		})
	}
	s.memories[userID] = s.applyRetention(append(s.memories[userID], out...), now)
	return append([]types.MemoryRecord(nil), out...), nil
}

// applyRetention drops expired records and then the oldest beyond the cap.
// log is in append order.
func (s *Store) applyRetention(log []types.MemoryRecord, now time.Time) []types.MemoryRecord {
	if s.retention.MaxAge > 0 {
		kept := log[:0]
		for _, m := range log {
			if !s.retention.Expired(m.CreatedAt, now) {
				kept = append(kept, m)
			}
		}
		log = kept
	}
	if keep := s.retention.MaxRecords; keep > 0 && len(log) > keep {
		log = append([]types.MemoryRecord(nil), log[len(log)-keep:]...)
	}
	return log
}

// LoadRecentMemories implements store.MemoryReader.
func (s *Store) LoadRecentMemories(ctx context.Context, userID string, limit int) ([]types.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.memories[userID]
	out := make([]types.MemoryRecord, 0, min(len(log), max(limit, 0)))
	now := s.now()
	for i := len(log) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.retention.Expired(log[i].CreatedAt, now) {
			continue
		}
		out = append(out, log[i])
	}
	return out, nil
}

// AppendProgress implements store.ProgressWriter.
func (s *Store) AppendProgress(ctx context.Context, entry types.ProgressEntry) (types.ProgressEntry, error) {
	if entry.UserID == "" {
		return types.ProgressEntry{}, fmt.Errorf("append progress: empty user id")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Date.IsZero() {
		entry.Date = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[entry.UserID] = append(s.progress[entry.UserID], entry)
	return entry, nil
}

// LoadRecentProgress implements store.ProgressReader.
func (s *Store) LoadRecentProgress(ctx context.Context, userID string, limit int) ([]types.ProgressEntry, error) {
	s.mu.RLock()
	log := s.progress[userID]
	idx := make([]int, len(log))
	for i := range idx {
		idx[i] = i
	}
	// Newest date first; equal dates keep the later insertion first.
	sort.SliceStable(idx, func(a, b int) bool {
		da, db := log[idx[a]].Date, log[idx[b]].Date
		if !da.Equal(db) {
			return da.After(db)
		}
		return idx[a] > idx[b]
	})
	if limit > 0 && len(idx) > limit {
		idx = idx[:limit]
	}
	out := make([]types.ProgressEntry, len(idx))
	for i, j := range idx {
		out[i] = log[j]
	}
	s.mu.RUnlock()
	return out, nil
}

// GetProfile implements store.ProfileStore.
func (s *Store) GetProfile(ctx context.Context, userID string) (types.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return types.UserProfile{}, fmt.Errorf("profile %s: %w", userID, store.ErrNotFound)
	}
	return p, nil
}

// UpsertProfile implements store.ProfileStore.
func (s *Store) UpsertProfile(ctx context.Context, profile types.UserProfile) error {
	if profile.UserID == "" {
		return fmt.Errorf("upsert profile: empty user id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.profiles[profile.UserID]; ok {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
	} else {
		if profile.ID == "" {
			profile.ID = uuid.NewString()
		}
		if profile.CreatedAt.IsZero() {
			profile.CreatedAt = now
		}
	}
	profile.UpdatedAt = now
	s.profiles[profile.UserID] = profile
	return nil
}

// RecordFeedback implements store.FeedbackWriter.
func (s *Store) RecordFeedback(ctx context.Context, fb types.MealFeedback) (types.MealFeedback, error) {
	if fb.UserID == "" {
		return types.MealFeedback{}, fmt.Errorf("record feedback: empty user id")
	}
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = s.now()
	}
	if fb.Issues != nil {
		fb.Issues = append([]string(nil), fb.Issues...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback[fb.UserID] = append(s.feedback[fb.UserID], fb)
	return fb, nil
}

// Feedback returns the recorded feedback of a user, oldest first.
func (s *Store) Feedback(userID string) []types.MealFeedback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.MealFeedback(nil), s.feedback[userID]...)
}

package inmem

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/llmcoach/internal/store"
	"github.com/blueberrycongee/llmcoach/pkg/types"
)

func insight(category, content string) types.InsightRecord {
	return types.InsightRecord{
		Type:     category,
		Content:  content,
		Metadata: types.InsightMetadata{Confidence: types.ConfidenceHigh},
	}
}

func TestStore_AppendAndLoadMemories(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.AppendMemories(ctx, "u1", []types.InsightRecord{
		insight("sleep_pattern", "sleeping 5 hours"),
		insight("mood_pattern", "feeling tired"),
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, int64(1), created[0].Seq)
	assert.Equal(t, int64(2), created[1].Seq)
	assert.NotEmpty(t, created[0].ID)
	assert.Equal(t, "u1", created[0].UserID)

	_, err = s.AppendMemories(ctx, "u1", []types.InsightRecord{insight("achievement", "lost 3 kg")})
	require.NoError(t, err)

	recent, err := s.LoadRecentMemories(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "achievement", recent[0].Type)
	assert.Equal(t, "mood_pattern", recent[1].Type)

	other, err := s.LoadRecentMemories(ctx, "u2", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_AppendMemoriesValidation(t *testing.T) {
	s := New()
	_, err := s.AppendMemories(context.Background(), "", []types.InsightRecord{insight("x", "y")})
	assert.Error(t, err)

	out, err := s.AppendMemories(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestStore_RetentionCap(t *testing.T) {
	s := New(WithRetention(store.Retention{MaxRecords: 3}))
	ctx := context.Background()

	for _, c := range []string{"a", "b", "c", "d", "e"} {
		_, err := s.AppendMemories(ctx, "u1", []types.InsightRecord{insight(c, c)})
		require.NoError(t, err)
	}

	all, err := s.LoadRecentMemories(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"e", "d", "c"}, []string{all[0].Type, all[1].Type, all[2].Type})
	assert.Equal(t, int64(5), all[0].Seq, "sequence keeps counting after trimming")
}

func TestStore_RetentionMaxAge(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s := New(
		WithRetention(store.Retention{MaxAge: 24 * time.Hour}),
		WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	_, err := s.AppendMemories(ctx, "u1", []types.InsightRecord{insight("old", "old")})
	require.NoError(t, err)

	now = now.Add(48 * time.Hour)
	recent, err := s.LoadRecentMemories(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, recent, "expired records are hidden on read")

	_, err = s.AppendMemories(ctx, "u1", []types.InsightRecord{insight("new", "new")})
	require.NoError(t, err)

	s.mu.RLock()
	stored := len(s.memories["u1"])
	s.mu.RUnlock()
	assert.Equal(t, 1, stored, "expired records are dropped on write")
}

func TestStore_ProgressOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC) }

	for _, e := range []types.ProgressEntry{
		{UserID: "u1", Date: day(1), Mood: "tired"},
		{UserID: "u1", Date: day(3), Mood: "happy"},
		{UserID: "u1", Date: day(3), Mood: "energetic"},
		{UserID: "u1", Date: day(2), Mood: "sad"},
	} {
		_, err := s.AppendProgress(ctx, e)
		require.NoError(t, err)
	}

	got, err := s.LoadRecentProgress(ctx, "u1", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "energetic", got[0].Mood, "later insertion wins a date tie")
	assert.Equal(t, "happy", got[1].Mood)
	assert.Equal(t, "sad", got[2].Mood)
	assert.NotEmpty(t, got[0].ID)
}

func TestStore_Profiles(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "u1")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.UpsertProfile(ctx, types.UserProfile{UserID: "u1", Name: "Luka", Goal: "lose"}))
	p, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Luka", p.Name)
	assert.Equal(t, now, p.CreatedAt)
	id := p.ID

	now = now.Add(time.Hour)
	p.Goal = "maintain"
	require.NoError(t, s.UpsertProfile(ctx, p))
	p2, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "maintain", p2.Goal)
	assert.Equal(t, id, p2.ID)
	assert.True(t, p2.UpdatedAt.After(p2.CreatedAt))
}

func TestStore_Feedback(t *testing.T) {
	s := New()
	rating := 4
	fb, err := s.RecordFeedback(context.Background(), types.MealFeedback{
		UserID: "u1", Kind: types.FeedbackRating, Rating: &rating, Issues: []string{"too salty"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, fb.ID)
	assert.False(t, fb.CreatedAt.IsZero())

	got := s.Feedback("u1")
	require.Len(t, got, 1)
	assert.Equal(t, 4, *got[0].Rating)
}

func TestStore_ConcurrentAppends(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AppendMemories(ctx, "u1", []types.InsightRecord{insight("energy_level", "tired")})
		}()
	}
	wg.Wait()

	all, err := s.LoadRecentMemories(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, all, 50)
	seen := make(map[int64]bool)
	for _, m := range all {
		assert.False(t, seen[m.Seq], "duplicate seq %d", m.Seq)
		seen[m.Seq] = true
	}
}

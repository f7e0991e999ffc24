package assembler

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/llmcoach/pkg/types"
)

var base = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func mem(id string, seq int64, at time.Time) types.MemoryRecord {
	return types.MemoryRecord{
		ID:            id,
		Seq:           seq,
		CreatedAt:     at,
		InsightRecord: types.InsightRecord{Type: "sleep_pattern", Content: "memory " + id},
	}
}

func ptr[T any](v T) *T { return &v }

func ids(records []types.MemoryRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestAssemble_SelectsFiveMostRecent(t *testing.T) {
	var log []types.MemoryRecord
	for i := 0; i < 8; i++ {
		log = append(log, mem(fmt.Sprint(i), int64(i), base.Add(time.Duration(i)*time.Hour)))
	}

	ctx := Assemble(types.UserProfile{Name: "Luka"}, log, nil)
	assert.Equal(t, []string{"7", "6", "5", "4", "3"}, ids(ctx.RecentMemories))
	assert.Equal(t, "Luka", ctx.UserProfile.Name)
}

func TestAssemble_MemoryTieBreaks(t *testing.T) {
	t.Run("same timestamp falls back to sequence", func(t *testing.T) {
		log := []types.MemoryRecord{mem("a", 2, base), mem("b", 3, base), mem("c", 1, base)}
		assert.Equal(t, []string{"b", "a", "c"}, ids(Assemble(types.UserProfile{}, log, nil).RecentMemories))
	})

	t.Run("same timestamp and sequence falls back to input order", func(t *testing.T) {
		log := []types.MemoryRecord{mem("first", 0, base), mem("second", 0, base)}
		assert.Equal(t, []string{"second", "first"}, ids(Assemble(types.UserProfile{}, log, nil).RecentMemories))
	})
}

func TestAssemble_ProgressOrdering(t *testing.T) {
	day := func(d int) time.Time { return base.AddDate(0, 0, d) }
	log := []types.ProgressEntry{
		{ID: "old", Date: day(0)},
		{ID: "newest-1", Date: day(2), Mood: "tired"},
		{ID: "mid", Date: day(1)},
		{ID: "newest-2", Date: day(2), Mood: "happy"},
	}

	ctx := Assemble(types.UserProfile{}, nil, log)
	got := make([]string, len(ctx.RecentProgress))
	for i, p := range ctx.RecentProgress {
		got[i] = p.ID
	}
	assert.Equal(t, []string{"newest-2", "newest-1", "mid", "old"}, got)

	latest, ok := ctx.LatestProgress()
	require.True(t, ok)
	assert.Equal(t, "happy", latest.Mood)
}

func TestAssemble_EmptyLogs(t *testing.T) {
	ctx := Assemble(types.UserProfile{}, nil, nil)
	require.NotNil(t, ctx.RecentMemories)
	require.NotNil(t, ctx.RecentProgress)
	assert.Empty(t, ctx.RecentMemories)
	assert.Empty(t, ctx.RecentProgress)
	_, ok := ctx.LatestProgress()
	assert.False(t, ok)
}

func TestAssemble_DoesNotMutateInputs(t *testing.T) {
	log := []types.MemoryRecord{mem("a", 1, base), mem("b", 2, base.Add(time.Hour))}
	progress := []types.ProgressEntry{{ID: "x", Date: base}, {ID: "y", Date: base.Add(time.Hour)}}

	Assemble(types.UserProfile{}, log, progress)
	assert.Equal(t, "a", log[0].ID)
	assert.Equal(t, "x", progress[0].ID)
}

func TestProperty_ContextBounding(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("recent memories has length min(N, 5)", prop.ForAll(
		func(offsets []int) bool {
			log := make([]types.MemoryRecord, len(offsets))
			for i, o := range offsets {
				log[i] = mem(fmt.Sprint(i), int64(i), base.Add(time.Duration(o)*time.Minute))
			}
			got := Assemble(types.UserProfile{}, log, nil).RecentMemories
			want := len(log)
			if want > MaxMemories {
				want = MaxMemories
			}
			return len(got) == want
		},
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.Property("selected memories are newest first", prop.ForAll(
		func(offsets []int) bool {
			log := make([]types.MemoryRecord, len(offsets))
			for i, o := range offsets {
				log[i] = mem(fmt.Sprint(i), int64(i), base.Add(time.Duration(o)*time.Minute))
			}
			got := Assemble(types.UserProfile{}, log, nil).RecentMemories
			for i := 1; i < len(got); i++ {
				if got[i].CreatedAt.After(got[i-1].CreatedAt) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.Property("assemble is deterministic", prop.ForAll(
		func(offsets []int) bool {
			log := make([]types.MemoryRecord, len(offsets))
			for i, o := range offsets {
				log[i] = mem(fmt.Sprint(i), 0, base.Add(time.Duration(o)*time.Minute))
			}
			a := ids(Assemble(types.UserProfile{}, log, nil).RecentMemories)
			b := ids(Assemble(types.UserProfile{}, log, nil).RecentMemories)
			return strings.Join(a, ",") == strings.Join(b, ",")
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}

func TestRender(t *testing.T) {
	ctx := types.CoachContext{
		UserProfile: types.UserProfile{
			Name:          "Luka",
			Goal:          "lose",
			WeightKg:      ptr(80.5),
			DietType:      "vegetarian",
			ActivityLevel: 3,
			SleepHours:    ptr(7.0),
			StressLevel:   ptr(2),
		},
		RecentMemories: []types.MemoryRecord{mem("1", 1, base)},
		RecentProgress: []types.ProgressEntry{{Date: base, Weight: ptr(78.5), Mood: "tired", Steps: ptr(9000)}},
	}

	out := Render(ctx)
	for _, want := range []string{
		"- Name: Luka",
		"- Goal: lose",
		"- Weight: 80.5 kg",
		"- Height: Not specified",
		"- Diet: vegetarian",
		"- Activity Level: 3/5",
		"- Sleep: 7 hours",
		"- Stress Level: 2/5",
		"**Recent Insights:**\n- memory 1",
		"**Latest Progress:**",
		"- Weight: 78.5 kg",
		"- Mood: tired",
		"- Steps: 9000",
		"- Date: 2024-06-01",
	} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "**Profile:**"), strings.Index(out, "**Recent Insights:**"))
	assert.Less(t, strings.Index(out, "**Recent Insights:**"), strings.Index(out, "**Latest Progress:**"))
}

func TestRender_Defaults(t *testing.T) {
	out := Render(types.CoachContext{})
	assert.Contains(t, out, "- Name: User")
	assert.Contains(t, out, "- Weight: Not specified")
	assert.NotContains(t, out, "Recent Insights")
	assert.NotContains(t, out, "Latest Progress")

	withEmptyProgress := Render(types.CoachContext{RecentProgress: []types.ProgressEntry{{Date: base}}})
	assert.Contains(t, withEmptyProgress, "- Weight: Not logged")
}

// Package assembler builds the per-turn CoachContext from already-fetched
// profile, memory and progress data, and renders it for the system prompt.
package assembler

import (
	"sort"

	"github.com/blueberrycongee/llmcoach/pkg/types"
)

// MaxMemories bounds the number of memory records placed in a context.
const MaxMemories = 5

// Assemble selects the most recent memories (at most MaxMemories) and orders
// progress entries newest first. Inputs are never modified. Memory ties on
// CreatedAt are broken by Seq, then by position in memoryLog, newest first.
// Progress ties on Date keep the later-inserted entry first.
func Assemble(profile types.UserProfile, memoryLog []types.MemoryRecord, progressLog []types.ProgressEntry) types.CoachContext {
	return types.CoachContext{
		UserProfile:    profile,
		RecentMemories: recentMemories(memoryLog, MaxMemories),
		RecentProgress: recentProgress(progressLog),
	}
}

func recentMemories(log []types.MemoryRecord, limit int) []types.MemoryRecord {
	idx := make([]int, len(log))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := log[idx[a]], log[idx[b]]
		if !ra.CreatedAt.Equal(rb.CreatedAt) {
			return ra.CreatedAt.After(rb.CreatedAt)
		}
		if ra.Seq != rb.Seq {
			return ra.Seq > rb.Seq
		}
		return idx[a] > idx[b]
	})
	if len(idx) > limit {
		idx = idx[:limit]
	}
	out := make([]types.MemoryRecord, len(idx))
	for i, j := range idx {
		out[i] = log[j]
	}
	return out
}

func recentProgress(log []types.ProgressEntry) []types.ProgressEntry {
	idx := make([]int, len(log))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		pa, pb := log[idx[a]], log[idx[b]]
		if !pa.Date.Equal(pb.Date) {
			return pa.Date.After(pb.Date)
		}
		return idx[a] > idx[b]
	})
	out := make([]types.ProgressEntry, len(idx))
	for i, j := range idx {
		out[i] = log[j]
	}
	return out
}

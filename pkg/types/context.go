package types //nolint:revive // package name is intentional

// CoachContext is the per-turn aggregate prepended to every model call. It
// is derived fresh for each turn and never persisted.
type CoachContext struct {
	UserProfile    UserProfile     `json:"user_profile"`
	RecentMemories []MemoryRecord  `json:"recent_memories"`
	RecentProgress []ProgressEntry `json:"recent_progress"`
}

// LatestProgress returns the first progress entry, if any.
func (c CoachContext) LatestProgress() (ProgressEntry, bool) {
	if len(c.RecentProgress) == 0 {
		return ProgressEntry{}, false
	}
	return c.RecentProgress[0], true
}

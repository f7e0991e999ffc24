package types //nolint:revive // package name is intentional

import "time"

// Confidence levels attached to extracted insights.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// InsightMetadata describes how and when an insight was extracted.
type InsightMetadata struct {
	ExtractedAt time.Time `json:"extracted_at"`
	Confidence  string    `json:"confidence"`
	ContextID   string    `json:"context_id,omitempty"`
}

// InsightRecord is a durable fact mined from a user message.
type InsightRecord struct {
	// Type is the category tag, e.g. "sleep_pattern".
	Type string `json:"type"`
	// Content is the original message text.
	Content  string          `json:"content"`
	Metadata InsightMetadata `json:"metadata"`
}

// MemoryRecord is an InsightRecord once appended to a user's memory log.
// Records are never edited; newer records of the same type supersede older
// ones only by recency.
type MemoryRecord struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	// Seq is the store-assigned creation order, used to break CreatedAt ties.
	Seq int64 `json:"seq"`
	InsightRecord
	CreatedAt time.Time `json:"created_at"`
}

package types //nolint:revive // package name is intentional

import "time"

// FeedbackKind distinguishes meal plan ratings from issue reports.
type FeedbackKind string

const (
	FeedbackRating FeedbackKind = "rating"
	FeedbackIssue  FeedbackKind = "issue"
)

// MealFeedback is a rating or an issue report about a meal plan.
type MealFeedback struct {
	ID         string       `json:"id"`
	UserID     string       `json:"user_id"`
	MealPlanID string       `json:"meal_plan_id,omitempty"`
	Kind       FeedbackKind `json:"kind"`

	// Rating fields.
	Rating   *int     `json:"rating,omitempty"`
	Feedback string   `json:"feedback,omitempty"`
	MealType string   `json:"meal_type,omitempty"`
	Issues   []string `json:"issues,omitempty"`

	// Issue fields.
	IssueType   string `json:"issue_type,omitempty"`
	Description string `json:"description,omitempty"`
	Suggestion  string `json:"suggestion,omitempty"`
	Severity    string `json:"severity,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

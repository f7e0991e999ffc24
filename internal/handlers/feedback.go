package handlers

import (
	"context"
	"fmt"
	"math"

	"github.com/blueberrycongee/llmcoach/pkg/types"
)

// RateMealPlanParams are the rateMealPlan arguments.
type RateMealPlanParams struct {
	MealPlanID string   `json:"mealPlanId,omitempty"`
	Rating     float64  `json:"rating"`
	Feedback   string   `json:"feedback,omitempty"`
	MealType   string   `json:"mealType,omitempty"`
	Issues     []string `json:"issues,omitempty"`
}

// RatingResult is returned by rateMealPlan.
type RatingResult struct {
	Result
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}

// RateMealPlan records a star rating.
func (h *Handlers) RateMealPlan(ctx context.Context, p RateMealPlanParams) (any, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	rating := int(math.Round(p.Rating))
	if _, err := h.feedback.RecordFeedback(ctx, types.MealFeedback{
		UserID:     uid,
		MealPlanID: p.MealPlanID,
		Kind:       types.FeedbackRating,
		Rating:     &rating,
		Feedback:   p.Feedback,
		MealType:   p.MealType,
		Issues:     p.Issues,
		CreatedAt:  h.now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("record rating: %w", err)
	}
	h.logger.InfoContext(ctx, "meal plan rated", "meal_plan_id", p.MealPlanID, "rating", rating)

	return RatingResult{
		Result:   Result{Success: true, Message: fmt.Sprintf("Thank you for your %d/5 star rating! Your feedback has been noted.", rating)},
		Rating:   rating,
		Feedback: p.Feedback,
	}, nil
}

// ReportMealIssueParams are the reportMealIssue arguments.
type ReportMealIssueParams struct {
	MealPlanID  string `json:"mealPlanId,omitempty"`
	IssueType   string `json:"issueType"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// IssueResult is returned by reportMealIssue.
type IssueResult struct {
	Result
	IssueType string `json:"issueType"`
	Severity  string `json:"severity,omitempty"`
}

// ReportMealIssue records a problem with a meal plan.
func (h *Handlers) ReportMealIssue(ctx context.Context, p ReportMealIssueParams) (any, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := h.feedback.RecordFeedback(ctx, types.MealFeedback{
		UserID:      uid,
		MealPlanID:  p.MealPlanID,
		Kind:        types.FeedbackIssue,
		IssueType:   p.IssueType,
		Description: p.Description,
		Suggestion:  p.Suggestion,
		Severity:    p.Severity,
		CreatedAt:   h.now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("record issue: %w", err)
	}
	h.logger.InfoContext(ctx, "meal issue reported", "meal_plan_id", p.MealPlanID, "issue_type", p.IssueType, "severity", p.Severity)

	return IssueResult{
		Result:    Result{Success: true, Message: "Thank you for reporting this issue! We've noted your feedback."},
		IssueType: p.IssueType,
		Severity:  p.Severity,
	}, nil
}

package handlers

import (
	"context"
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// MealPreferences are the dietary preferences of a generateMealPlan call.
type MealPreferences struct {
	DietType      string   `json:"dietType,omitempty"`
	Allergies     []string `json:"allergies,omitempty"`
	Dislikes      []string `json:"dislikes,omitempty"`
	CookingEffort string   `json:"cookingEffort,omitempty"`
}

// GenerateMealPlanParams are the generateMealPlan arguments.
type GenerateMealPlanParams struct {
	Goal        string          `json:"goal"`
	Calories    float64         `json:"calories"`
	Preferences MealPreferences `json:"preferences"`
}

// UpdateMealPlanParams are the updateMealPlan arguments.
type UpdateMealPlanParams struct {
	Section     string `json:"section"`
	Requirement string `json:"requirement"`
}

// MealPlanner produces meal plans. The plan body is opaque to the coach.
type MealPlanner interface {
	Generate(ctx context.Context, userID string, p GenerateMealPlanParams) (json.RawMessage, error)
	Update(ctx context.Context, userID string, p UpdateMealPlanParams) (json.RawMessage, error)
}

// MealPlanResult is returned by generateMealPlan and updateMealPlan.
type MealPlanResult struct {
	Result
	Plan json.RawMessage `json:"plan"`
}

// GenerateMealPlan delegates to the planner.
func (h *Handlers) GenerateMealPlan(ctx context.Context, p GenerateMealPlanParams) (any, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := h.planner.Generate(ctx, uid, p)
	if err != nil {
		return nil, fmt.Errorf("generate meal plan: %w", err)
	}
	diet := p.Preferences.DietType
	if diet == "" {
		diet = "dietary"
	}
	return MealPlanResult{
		Result: Result{
			Success: true,
			Message: fmt.Sprintf("I've created a personalized %s meal plan for %d calories per day. The plan includes balanced macronutrients and considers your %s preferences.", p.Goal, int(math.Round(p.Calories)), diet),
		},
		Plan: plan,
	}, nil
}

// UpdateMealPlan delegates to the planner.
func (h *Handlers) UpdateMealPlan(ctx context.Context, p UpdateMealPlanParams) (any, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := h.planner.Update(ctx, uid, p)
	if err != nil {
		return nil, fmt.Errorf("update meal plan: %w", err)
	}
	return MealPlanResult{
		Result: Result{
			Success: true,
			Message: fmt.Sprintf("I've updated your %s based on your request for %q. The changes maintain your nutritional goals while incorporating your preferences.", p.Section, p.Requirement),
		},
		Plan: plan,
	}, nil
}

// Macros are daily macronutrient targets in grams.
type Macros struct {
	Protein int `json:"protein"`
	Carbs   int `json:"carbs"`
	Fat     int `json:"fat"`
}

// MacroSplit derives gram targets from a calorie target and goal.
func MacroSplit(goal string, calories float64) Macros {
	protein, carbs, fat := 0.25, 0.45, 0.30
	switch goal {
	case "lose":
		protein, carbs, fat = 0.30, 0.40, 0.30
	case "gain":
		protein, carbs, fat = 0.25, 0.50, 0.25
	}
	return Macros{
		Protein: int(math.Round(calories * protein / 4)),
		Carbs:   int(math.Round(calories * carbs / 4)),
		Fat:     int(math.Round(calories * fat / 9)),
	}
}

// MacroPlanner is an in-process planner that returns calorie and macro
// targets without concrete meals. Used when no planner worker is configured.
type MacroPlanner struct{}

type macroPlan struct {
	Goal          string   `json:"goal,omitempty"`
	DietType      string   `json:"dietType"`
	CookingEffort string   `json:"cookingEffort"`
	Allergies     []string `json:"allergies,omitempty"`
	Dislikes      []string `json:"dislikes,omitempty"`
	Section       string   `json:"section,omitempty"`
	Requirement   string   `json:"requirement,omitempty"`
	Changes       string   `json:"changes,omitempty"`
	TotalCalories int      `json:"totalCalories"`
	TotalMacros   Macros   `json:"totalMacros"`
}

// Generate implements MealPlanner.
func (MacroPlanner) Generate(_ context.Context, _ string, p GenerateMealPlanParams) (json.RawMessage, error) {
	if p.Calories <= 0 {
		return nil, fmt.Errorf("calories must be positive, got %v", p.Calories)
	}
	plan := macroPlan{
		Goal:          p.Goal,
		DietType:      p.Preferences.DietType,
		CookingEffort: p.Preferences.CookingEffort,
		Allergies:     p.Preferences.Allergies,
		Dislikes:      p.Preferences.Dislikes,
		TotalCalories: int(math.Round(p.Calories)),
		TotalMacros:   MacroSplit(p.Goal, p.Calories),
	}
	if plan.DietType == "" {
		plan.DietType = "omnivore"
	}
	if plan.CookingEffort == "" {
		plan.CookingEffort = "quick"
	}
	return json.Marshal(plan)
}

// Update implements MealPlanner. Without stored plans it describes the change
// against a 2000 kcal maintenance baseline.
func (MacroPlanner) Update(_ context.Context, _ string, p UpdateMealPlanParams) (json.RawMessage, error) {
	return json.Marshal(macroPlan{
		DietType:      "omnivore",
		CookingEffort: "quick",
		Section:       p.Section,
		Requirement:   p.Requirement,
		Changes:       fmt.Sprintf("Updated %s with %s", p.Section, p.Requirement),
		TotalCalories: 2000,
		TotalMacros:   Macros{Protein: 150, Carbs: 200, Fat: 80},
	})
}

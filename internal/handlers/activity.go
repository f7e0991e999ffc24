package handlers

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/blueberrycongee/llmcoach/internal/store"
	"github.com/blueberrycongee/llmcoach/pkg/types"
)

// CardioParams are the suggestCardioPlan arguments.
type CardioParams struct {
	ActivityLevel float64  `json:"activityLevel"`
	Goal          string   `json:"goal"`
	CurrentWeight *float64 `json:"currentWeight,omitempty"`
}

// CardioActivity is one entry of a cardio plan.
type CardioActivity struct {
	Name      string `json:"name"`
	Duration  int    `json:"duration"`
	Intensity string `json:"intensity"`
	Calories  int    `json:"calories"`
	Frequency string `json:"frequency"`
}

// CardioPlan is a weekly cardio plan.
type CardioPlan struct {
	Activities     []CardioActivity `json:"activities"`
	WeeklyCalories int              `json:"weeklyCalories"`
}

// CardioResult is returned by suggestCardioPlan.
type CardioResult struct {
	Result
	Plan CardioPlan `json:"plan"`
}

// SuggestCardioPlan returns a fixed starter plan.
func (h *Handlers) SuggestCardioPlan(_ context.Context, _ CardioParams) (any, error) {
	return CardioResult{
		Result: Result{Success: true, Message: "I've created a cardio plan tailored to your activity level."},
		Plan: CardioPlan{
			Activities: []CardioActivity{
				{Name: "Walking", Duration: 30, Intensity: "moderate", Calories: 150, Frequency: "daily"},
				{Name: "Cycling", Duration: 20, Intensity: "moderate", Calories: 200, Frequency: "3x/week"},
			},
			WeeklyCalories: 1650,
		},
	}, nil
}

// LogProgressParams are the logProgress arguments.
type LogProgressParams struct {
	Weight      *float64 `json:"weight,omitempty"`
	Calories    *float64 `json:"calories,omitempty"`
	Mood        string   `json:"mood,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	SleepHours  *float64 `json:"sleepHours,omitempty"`
	StressLevel *float64 `json:"stressLevel,omitempty"`
	Steps       *float64 `json:"steps,omitempty"`
}

// LogProgressResult is returned by logProgress.
type LogProgressResult struct {
	Result
	Log types.ProgressEntry `json:"log"`
}

// LogProgress appends a progress entry dated now.
func (h *Handlers) LogProgress(ctx context.Context, p LogProgressParams) (any, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := h.progress.AppendProgress(ctx, types.ProgressEntry{
		UserID:      uid,
		Date:        h.now().UTC(),
		Weight:      p.Weight,
		Calories:    intPtr(p.Calories),
		Mood:        p.Mood,
		SleepHours:  p.SleepHours,
		StressLevel: intPtr(p.StressLevel),
		Steps:       intPtr(p.Steps),
		Notes:       p.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("log progress: %w", err)
	}
	return LogProgressResult{
		Result: Result{Success: true, Message: "Progress logged successfully!"},
		Log:    entry,
	}, nil
}

// LifestyleParams are the adjustPlanForLifestyle arguments.
type LifestyleParams struct {
	SleepHours  *float64 `json:"sleepHours,omitempty"`
	StressLevel *float64 `json:"stressLevel,omitempty"`
	StepsPerDay *float64 `json:"stepsPerDay,omitempty"`
}

// Adjustments echoes the lifestyle values now stored on the profile.
type Adjustments struct {
	SleepHours  *float64 `json:"sleepHours,omitempty"`
	StressLevel *int     `json:"stressLevel,omitempty"`
	StepsPerDay *int     `json:"stepsPerDay,omitempty"`
}

// LifestyleResult is returned by adjustPlanForLifestyle.
type LifestyleResult struct {
	Result
	Adjustments Adjustments `json:"adjustments"`
}

// AdjustPlanForLifestyle stores the given lifestyle values on the profile.
// Omitted values keep their current setting.
func (h *Handlers) AdjustPlanForLifestyle(ctx context.Context, p LifestyleParams) (any, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := h.profiles.GetProfile(ctx, uid)
	if stderrors.Is(err, store.ErrNotFound) {
		profile, err = types.DefaultProfile(uid, h.now().UTC()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if p.SleepHours != nil {
		profile.SleepHours = p.SleepHours
	}
	if v := intPtr(p.StressLevel); v != nil {
		profile.StressLevel = v
	}
	if v := intPtr(p.StepsPerDay); v != nil {
		profile.StepsPerDay = v
	}
	if err := h.profiles.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return LifestyleResult{
		Result: Result{Success: true, Message: "Your meal plan has been adjusted based on your lifestyle changes."},
		Adjustments: Adjustments{
			SleepHours:  profile.SleepHours,
			StressLevel: profile.StressLevel,
			StepsPerDay: profile.StepsPerDay,
		},
	}, nil
}

// Package handlers is the reference implementation of every function in the
// default catalog. Hosts with their own data layer supply their own
// dispatcher instead.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/blueberrycongee/llmcoach/internal/store"
	"github.com/blueberrycongee/llmcoach/pkg/catalog"
	"github.com/blueberrycongee/llmcoach/pkg/dispatch"
)

// Result is the envelope every handler returns. Function-specific fields are
// added by embedding it.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Deps are the collaborators the handlers read and write.
type Deps struct {
	Profiles store.ProfileStore
	Progress store.ProgressWriter
	Feedback store.FeedbackWriter
	Planner  MealPlanner
}

// Handlers implements the default catalog functions.
type Handlers struct {
	profiles store.ProfileStore
	progress store.ProgressWriter
	feedback store.FeedbackWriter
	planner  MealPlanner
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures Handlers.
type Option func(*Handlers)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handlers) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithClock sets the clock used to date progress entries and feedback.
func WithClock(now func() time.Time) Option {
	return func(h *Handlers) { h.now = now }
}

// New creates the handlers. A nil planner falls back to MacroPlanner.
func New(deps Deps, opts ...Option) (*Handlers, error) {
	if deps.Profiles == nil || deps.Progress == nil || deps.Feedback == nil {
		return nil, fmt.Errorf("handlers: profiles, progress and feedback stores are required")
	}
	h := &Handlers{
		profiles: deps.Profiles,
		progress: deps.Progress,
		feedback: deps.Feedback,
		planner:  deps.Planner,
		logger:   slog.Default(),
		now:      time.Now,
	}
	if h.planner == nil {
		h.planner = MacroPlanner{}
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register adds every handler to t.
func (h *Handlers) Register(t *dispatch.Table) error {
	regs := []func() error{
		func() error { return dispatch.Register(t, catalog.FnGenerateMealPlan, h.GenerateMealPlan) },
		func() error { return dispatch.Register(t, catalog.FnUpdateMealPlan, h.UpdateMealPlan) },
		func() error { return dispatch.Register(t, catalog.FnGetMoodMeal, h.GetMoodMeal) },
		func() error { return dispatch.Register(t, catalog.FnSuggestCardioPlan, h.SuggestCardioPlan) },
		func() error { return dispatch.Register(t, catalog.FnLogProgress, h.LogProgress) },
		func() error { return dispatch.Register(t, catalog.FnAdjustPlanForLifestyle, h.AdjustPlanForLifestyle) },
		func() error { return dispatch.Register(t, catalog.FnRateMealPlan, h.RateMealPlan) },
		func() error { return dispatch.Register(t, catalog.FnReportMealIssue, h.ReportMealIssue) },
	}
	for _, r := range regs {
		if err := r(); err != nil {
			return err
		}
	}
	return nil
}

// Table builds a dispatch table for c and checks it covers c exactly.
func (h *Handlers) Table(c *catalog.Catalog) (*dispatch.Table, error) {
	t := dispatch.NewTable()
	if err := h.Register(t); err != nil {
		return nil, err
	}
	if err := t.Check(c); err != nil {
		return nil, err
	}
	return t, nil
}

func userID(ctx context.Context) (string, error) {
	id, ok := dispatch.UserIDFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("handlers: no user in context")
	}
	return id, nil
}

// intPtr rounds a JSON number to an int.
func intPtr(v *float64) *int {
	if v == nil {
		return nil
	}
	n := int(math.Round(*v))
	return &n
}

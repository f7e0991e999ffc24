package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/blueberrycongee/llmcoach/internal/httputil"
	"github.com/blueberrycongee/llmcoach/internal/observability"
	"github.com/blueberrycongee/llmcoach/internal/resilience"
)

const maxPlanBody = 2 << 20

// WorkerConfig configures the meal planner worker client.
type WorkerConfig struct {
	BaseURL      string                          `yaml:"base_url"`
	APIKey       string                          `yaml:"api_key"`
	Timeout      time.Duration                   `yaml:"timeout"`
	AllowPrivate bool                            `yaml:"allow_private"`
	Breaker      resilience.CircuitBreakerConfig `yaml:"breaker"`
}

// WorkerPlanner is a MealPlanner backed by an HTTP worker exposing
// POST /meal-plans/generate and POST /meal-plans/update.
type WorkerPlanner struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	breaker    *resilience.CircuitBreaker
	propagator propagation.TextMapPropagator
}

var _ MealPlanner = (*WorkerPlanner)(nil)

// NewWorkerPlanner validates cfg and creates the client. A nil client uses
// an http.Client with cfg.Timeout.
func NewWorkerPlanner(cfg WorkerConfig, client *http.Client) (*WorkerPlanner, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("meal planner worker: base url is required")
	}
	base, err := httputil.ValidateEndpoint("planner.base_url", cfg.BaseURL, cfg.AllowPrivate)
	if err != nil {
		return nil, fmt.Errorf("meal planner worker: %w", err)
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &WorkerPlanner{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		client:     client,
		breaker:    resilience.NewCircuitBreaker("meal-planner", cfg.Breaker),
		propagator: otel.GetTextMapPropagator(),
	}, nil
}

// Breaker exposes the worker's circuit breaker.
func (w *WorkerPlanner) Breaker() *resilience.CircuitBreaker {
	return w.breaker
}

type workerRequest struct {
	UserID string `json:"userId"`
	Params any    `json:"params"`
}

type workerResponse struct {
	Plan json.RawMessage `json:"plan"`
}

// Generate implements MealPlanner.
func (w *WorkerPlanner) Generate(ctx context.Context, userID string, p GenerateMealPlanParams) (json.RawMessage, error) {
	return w.call(ctx, "/meal-plans/generate", workerRequest{UserID: userID, Params: p})
}

// Update implements MealPlanner.
func (w *WorkerPlanner) Update(ctx context.Context, userID string, p UpdateMealPlanParams) (json.RawMessage, error) {
	return w.call(ctx, "/meal-plans/update", workerRequest{UserID: userID, Params: p})
}

func (w *WorkerPlanner) call(ctx context.Context, path string, body workerRequest) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal worker request: %w", err)
	}

	var plan json.RawMessage
	err = w.breaker.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create worker request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if w.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+w.apiKey)
		}
		observability.PropagateIDs(ctx, req.Header)
		w.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("meal planner worker: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			raw, _ := httputil.ReadLimitedBody(resp.Body, 4<<10)
			return fmt.Errorf("meal planner worker: status %d: %s", resp.StatusCode, httputil.Snippet(raw, 256))
		}

		var out workerResponse
		if err := httputil.DecodeLimitedJSON(resp.Body, maxPlanBody, &out); err != nil {
			return fmt.Errorf("meal planner worker: %w", err)
		}
		if len(out.Plan) == 0 || string(out.Plan) == "null" {
			return fmt.Errorf("meal planner worker: response has no plan")
		}
		plan = out.Plan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

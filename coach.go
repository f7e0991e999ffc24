package llmcoach

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/blueberrycongee/llmcoach/internal/assembler"
	"github.com/blueberrycongee/llmcoach/internal/metrics"
	"github.com/blueberrycongee/llmcoach/internal/observability"
	"github.com/blueberrycongee/llmcoach/internal/orchestrator"
	"github.com/blueberrycongee/llmcoach/internal/store"
	"github.com/blueberrycongee/llmcoach/internal/store/inmem"
	"github.com/blueberrycongee/llmcoach/pkg/catalog"
	"github.com/blueberrycongee/llmcoach/pkg/dispatch"
	cerrors "github.com/blueberrycongee/llmcoach/pkg/errors"
	"github.com/blueberrycongee/llmcoach/pkg/insight"
	"github.com/blueberrycongee/llmcoach/pkg/types"
)

// ErrMissingUserID is returned when a turn is requested without a user.
var ErrMissingUserID = stderrors.New("llmcoach: user id is required")

// FunctionCallResult describes the function the model requested in a turn.
// Result is nil when the call was only previewed.
type FunctionCallResult struct {
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args"`
	Result json.RawMessage `json:"result,omitempty"`
}

// TurnResult is what a host receives for one user message.
type TurnResult struct {
	TurnID       string                `json:"turn_id"`
	Reply        string                `json:"reply"`
	Type         types.TurnType        `json:"type"`
	Insights     []types.InsightRecord `json:"insights"`
	FunctionCall *FunctionCallResult   `json:"function_call,omitempty"`
}

// Coach composes context assembly, insight extraction and the chat
// orchestrator into a single turn. It is safe for concurrent use.
type Coach struct {
	orch       *orchestrator.Orchestrator
	dispatcher dispatch.Dispatcher
	extractor  atomic.Pointer[insight.Extractor]

	memories store.MemoryStore
	progress store.ProgressReader
	profiles store.ProfileStore

	memoryLimit   int
	progressLimit int

	logger *observability.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// New creates a Coach. A model is required; stores missing from the options
// share one in-memory store.
func New(opts ...Option) (*Coach, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Model == nil {
		return nil, cerrors.NewConfigurationError("llmcoach: a model is required", nil)
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Extractor == nil {
		exOpts := []insight.Option{insight.WithClock(cfg.Now)}
		if cfg.Logger != nil {
			exOpts = append(exOpts, insight.WithLogger(cfg.Logger))
		}
		cfg.Extractor = insight.NewDefault(exOpts...)
	}
	if cfg.Memories == nil || cfg.Progress == nil || cfg.Profiles == nil {
		mem := inmem.New(inmem.WithClock(cfg.Now))
		if cfg.Memories == nil {
			cfg.Memories = mem
		}
		if cfg.Progress == nil {
			cfg.Progress = mem
		}
		if cfg.Profiles == nil {
			cfg.Profiles = mem
		}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(observability.TracerName)
	}
	if table, ok := cfg.Dispatcher.(*dispatch.Table); ok {
		if err := table.Check(cfg.Catalog); err != nil {
			return nil, cerrors.NewConfigurationError("llmcoach: dispatch table does not match catalog", err)
		}
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithTurnTimeout(cfg.TurnTimeout),
		orchestrator.WithLogger(cfg.Logger),
		orchestrator.WithTracer(cfg.Tracer),
	}
	if cfg.Persona != "" {
		orchOpts = append(orchOpts, orchestrator.WithPersona(cfg.Persona))
	}
	orch, err := orchestrator.New(cfg.Model, cfg.Catalog, orchOpts...)
	if err != nil {
		return nil, err
	}

	c := &Coach{
		orch:          orch,
		dispatcher:    cfg.Dispatcher,
		memories:      cfg.Memories,
		progress:      cfg.Progress,
		profiles:      cfg.Profiles,
		memoryLimit:   cfg.MemoryLimit,
		progressLimit: cfg.ProgressLimit,
		logger:        observability.Wrap(cfg.Logger, observability.NewRedactor()),
		tracer:        cfg.Tracer,
		now:           cfg.Now,
	}
	c.extractor.Store(cfg.Extractor)
	return c, nil
}

// Catalog returns the function catalog offered to the model.
func (c *Coach) Catalog() *catalog.Catalog { return c.orch.Catalog() }

// SetExtractor swaps the insight extractor. Turns in flight keep the one
// they started with.
func (c *Coach) SetExtractor(e *insight.Extractor) {
	if e != nil {
		c.extractor.Store(e)
	}
}

// Extractor returns the insight extractor currently in use.
func (c *Coach) Extractor() *insight.Extractor { return c.extractor.Load() }

// Context assembles the grounding context for userID as the next turn would
// see it.
func (c *Coach) Context(ctx context.Context, userID string) (types.CoachContext, error) {
	if userID == "" {
		return types.CoachContext{}, ErrMissingUserID
	}
	profile, err := c.loadProfile(ctx, userID)
	if err != nil {
		return types.CoachContext{}, err
	}
	memories, err := c.memories.LoadRecentMemories(ctx, userID, c.memoryLimit)
	if err != nil {
		return types.CoachContext{}, fmt.Errorf("load memories: %w", err)
	}
	progress, err := c.progress.LoadRecentProgress(ctx, userID, c.progressLimit)
	if err != nil {
		return types.CoachContext{}, fmt.Errorf("load progress: %w", err)
	}
	return assembler.Assemble(profile, memories, progress), nil
}

// HandleTurn answers one user message. history holds the prior conversation
// and is not modified.
//
// Insights extracted from message are persisted only when the turn
// succeeds; a failed write is logged and counted but never fails the turn.
// The returned error is either a context loading failure or a first model
// call failure (see errors.IsModelCallFailure).
func (c *Coach) HandleTurn(ctx context.Context, userID, message string, history []types.ChatMessage) (*TurnResult, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	start := time.Now()
	ctx, turnID := observability.EnsureTurnID(ctx)
	ctx = dispatch.WithUserID(ctx, userID)
	ctx, span := observability.StartTurnSpan(ctx, c.tracer, userID)
	defer span.End()
	log := c.logger.FromContext(ctx).WithFields("user_id", userID)

	cc, err := c.Context(ctx, userID)
	if err != nil {
		observability.RecordError(span, err)
		metrics.RecordTurn("error", time.Since(start))
		log.Error("failed to assemble coach context", "error", err)
		return nil, err
	}

	contextID := cc.UserProfile.Name
	if contextID == "" {
		contextID = "unknown"
	}
	insights := c.extractor.Load().ExtractFor(message, contextID)

	conversation := make([]types.ChatMessage, 0, len(history)+1)
	conversation = append(conversation, history...)
	conversation = append(conversation, types.NewUserMessage(message, c.now()))

	res, err := c.orch.HandleTurn(ctx, conversation, cc, c.dispatcher)
	if err != nil {
		observability.RecordError(span, err)
		metrics.RecordTurn("error", time.Since(start))
		return nil, err
	}

	if len(insights) > 0 {
		if _, werr := c.memories.AppendMemories(ctx, userID, insights); werr != nil {
			metrics.MemoryWriteFailures.Inc()
			log.RedactedError("failed to persist insights",
				"count", len(insights),
				"error", werr,
			)
		}
	}

	out := &TurnResult{
		TurnID:   turnID,
		Reply:    res.Message,
		Type:     res.Type,
		Insights: insights,
	}
	if res.FunctionCall != nil {
		out.FunctionCall = &FunctionCallResult{
			Name:   res.FunctionCall.Name,
			Args:   res.FunctionCall.Arguments,
			Result: res.Data,
		}
	}

	categories := make([]string, len(insights))
	for i, in := range insights {
		categories[i] = in.Type
	}
	metrics.RecordTurn(string(res.Type), time.Since(start))
	metrics.RecordInsights(categories)
	log.Info("turn completed",
		"type", res.Type,
		"insights", len(insights),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Coach) loadProfile(ctx context.Context, userID string) (types.UserProfile, error) {
	profile, err := c.profiles.GetProfile(ctx, userID)
	if stderrors.Is(err, store.ErrNotFound) {
		return types.DefaultProfile(userID, c.now()), nil
	}
	if err != nil {
		return types.UserProfile{}, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}

// Package orchestrator drives one chat turn through the two-phase model
// protocol: a first model call that answers in text or requests one function,
// an optional dispatch, and a follow-up call that turns the function result
// into the final reply.
package orchestrator

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/blueberrycongee/llmcoach/internal/metrics"
	"github.com/blueberrycongee/llmcoach/internal/observability"
	"github.com/blueberrycongee/llmcoach/pkg/catalog"
	"github.com/blueberrycongee/llmcoach/pkg/dispatch"
	cerrors "github.com/blueberrycongee/llmcoach/pkg/errors"
	"github.com/blueberrycongee/llmcoach/pkg/provider"
	"github.com/blueberrycongee/llmcoach/pkg/types"
)

// DefaultTurnTimeout bounds a whole turn: both model calls and the dispatch.
const DefaultTurnTimeout = 60 * time.Second

const (
	phaseFirst    = "first"
	phaseFollowup = "followup"
)

// Anomaly kinds reported to metrics and logs.
const (
	AnomalyUnknownFunction      = "unknown_function"
	AnomalyMalformedArguments   = "malformed_arguments"
	AnomalyMalformedResponse    = "malformed_response"
	AnomalyFollowupFunctionCall = "followup_function_call"
	AnomalyFollowupSkipped      = "followup_skipped"
)

// Result is the outcome of one turn.
type Result struct {
	Message string
	Type    types.TurnType
	// Data is the dispatcher's result for function_result turns.
	Data json.RawMessage
	// FunctionCall is the call the model requested, if it was accepted.
	FunctionCall *types.FunctionCall
	// States is the path the turn took through the protocol.
	States []State
	// Recovered holds a failure that was answered with a fallback reply
	// instead of being returned.
	Recovered *cerrors.CoachError
}

// Orchestrator runs turns against a model and a function catalog. It holds
// no per-turn state and is safe for concurrent use.
type Orchestrator struct {
	model   provider.Model
	catalog *catalog.Catalog
	persona string
	timeout time.Duration
	logger  *observability.Logger
	tracer  trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPersona replaces the system persona block.
func WithPersona(persona string) Option {
	return func(o *Orchestrator) { o.persona = persona }
}

// WithTurnTimeout sets the deadline covering a whole turn. Zero disables it.
func WithTurnTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithLogger sets the logger. Dispatch arguments and errors are redacted.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = observability.Wrap(logger, observability.NewRedactor()) }
}

// WithTracer sets the tracer used for model and dispatch spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = tracer }
}

// New creates an Orchestrator. The model and catalog are required.
func New(model provider.Model, c *catalog.Catalog, opts ...Option) (*Orchestrator, error) {
	if model == nil {
		return nil, cerrors.NewConfigurationError("orchestrator requires a model", nil)
	}
	if c == nil {
		return nil, cerrors.NewConfigurationError("orchestrator requires a function catalog", nil)
	}
	o := &Orchestrator{
		model:   model,
		catalog: c,
		persona: DefaultPersona,
		timeout: DefaultTurnTimeout,
		logger:  observability.Wrap(nil, observability.NewRedactor()),
		tracer:  otel.Tracer(observability.TracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Catalog returns the function catalog offered to the model.
func (o *Orchestrator) Catalog() *catalog.Catalog { return o.catalog }

// HandleTurn runs one turn. history must end with the user's message and is
// not modified. A nil dispatcher selects preview mode: a requested function
// is described but not executed.
//
// The only returned error is a first-call ModelCallFailure; every other
// failure is answered with a fallback reply recorded in Result.Recovered.
func (o *Orchestrator) HandleTurn(ctx context.Context, history []types.ChatMessage, cc types.CoachContext, d dispatch.Dispatcher) (*Result, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	log := o.logger.FromContext(ctx)
	m := newMachine()

	system := BuildSystemPrompt(o.persona, o.catalog, cc)
	history = append([]types.ChatMessage(nil), history...)

	resp, err := o.complete(ctx, phaseFirst, &provider.Request{
		SystemPrompt:      system,
		History:           history,
		Tools:             o.catalog.List(),
		AllowFunctionCall: true,
	})
	if err == nil {
		if verr := resp.Validate(); verr != nil {
			metrics.RecordAnomaly(AnomalyMalformedResponse)
			err = cerrors.NewMalformedResponseError(o.model.Name(), "", verr.Error())
		}
	}
	if err != nil {
		m.fail()
		log.Warn("first model call failed", "provider", o.model.Name(), "error", err)
		return nil, cerrors.NewModelCallError(phaseFirst, err)
	}

	if resp.Kind == provider.KindText {
		if err := m.to(StateTextReply); err != nil {
			return nil, err
		}
		msg := resp.Content
		if msg == "" {
			msg = fallbackReply
		}
		return &Result{Message: msg, Type: types.TurnText, States: m.states()}, nil
	}

	if err := m.to(StateFunctionRequested); err != nil {
		return nil, err
	}
	call := resp.FunctionCall.Clone()
	if len(call.Arguments) == 0 {
		call.Arguments = json.RawMessage(`{}`)
	}

	if verr := o.catalog.ValidateArguments(call.Name, call.Arguments); verr != nil {
		return o.reject(log, m, call, verr)
	}

	if d == nil {
		metrics.RecordFunctionCall(call.Name, metrics.OutcomePreview)
		if err := m.to(StateTextReply); err != nil {
			return nil, err
		}
		log.Info("function call previewed", "function", call.Name)
		return &Result{
			Message:      previewMessage(call.Name),
			Type:         types.TurnFunctionCall,
			FunctionCall: call,
			States:       m.states(),
		}, nil
	}

	if ctx.Err() != nil {
		m.fail()
		return nil, cerrors.NewModelCallError(phaseFirst, ctx.Err())
	}
	if err := m.to(StateDispatching); err != nil {
		return nil, err
	}

	data, derr := o.dispatch(ctx, d, call)
	if derr != nil {
		metrics.RecordFunctionCall(call.Name, metrics.OutcomeDispatchFailure)
		ce := cerrors.NewDispatchError(call.Name, derr)
		log.RedactedError("function dispatch failed",
			"function", call.Name,
			"args", call.Arguments,
			"error", derr,
		)
		if err := m.to(StateTextReply); err != nil {
			return nil, err
		}
		return &Result{
			Message:   dispatchFailedReply,
			Type:      types.TurnText,
			States:    m.states(),
			Recovered: ce,
		}, nil
	}
	metrics.RecordFunctionCall(call.Name, metrics.OutcomeSuccess)

	if err := m.to(StateAwaitingFollowupResponse); err != nil {
		return nil, err
	}
	msg := o.followup(ctx, log, system, history, call, data)
	if err := m.to(StateTextReply); err != nil {
		return nil, err
	}

	return &Result{
		Message:      msg,
		Type:         types.TurnFunctionResult,
		Data:         data,
		FunctionCall: call,
		States:       m.states(),
	}, nil
}

// reject answers a call the catalog does not accept.
func (o *Orchestrator) reject(log *observability.Logger, m *machine, call *types.FunctionCall, verr error) (*Result, error) {
	var ce *cerrors.CoachError
	if !stderrors.As(verr, &ce) {
		ce = cerrors.NewMalformedArgumentsError(call.Name, verr)
	}

	anomaly := AnomalyMalformedArguments
	label := call.Name
	if ce.Kind == cerrors.KindUnknownFunction {
		anomaly = AnomalyUnknownFunction
		label = "unknown"
	}
	metrics.RecordAnomaly(anomaly)
	metrics.RecordFunctionCall(label, metrics.OutcomeRejected)
	log.RedactedWarn("model protocol anomaly",
		"anomaly", anomaly,
		"function", call.Name,
		"args", call.Arguments,
		"catalog_version", o.catalog.Version(),
		"error", ce,
	)

	if err := m.to(StateTextReply); err != nil {
		return nil, err
	}
	return &Result{
		Message:   rephraseReply,
		Type:      types.TurnText,
		States:    m.states(),
		Recovered: ce,
	}, nil
}

// dispatch invokes the dispatcher detached from the turn's cancellation: a
// call that has started may already have changed external state.
func (o *Orchestrator) dispatch(ctx context.Context, d dispatch.Dispatcher, call *types.FunctionCall) (data json.RawMessage, err error) {
	dctx, span := observability.StartDispatchSpan(context.WithoutCancel(ctx), o.tracer, call.Name)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.RecordDispatch(call.Name, time.Since(start))
		if r := recover(); r != nil {
			data, err = nil, panicError{r}
		}
		if err != nil {
			observability.RecordError(span, err)
		}
	}()

	data, err = d.Dispatch(dctx, call.Name, call.Arguments)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		data = json.RawMessage(`null`)
	}
	return data, nil
}

// followup asks the model to phrase the function result. It never fails: a
// failed, skipped or protocol-violating follow-up degrades to a templated
// wrapper over the raw result.
func (o *Orchestrator) followup(ctx context.Context, log *observability.Logger, system string, history []types.ChatMessage, call *types.FunctionCall, data json.RawMessage) string {
	if err := ctx.Err(); err != nil {
		metrics.RecordAnomaly(AnomalyFollowupSkipped)
		log.Warn("turn cancelled after dispatch, skipping follow-up", "function", call.Name, "error", err)
		return resultWrapper(call.Name, data)
	}

	now := time.Now()
	followHistory := make([]types.ChatMessage, 0, len(history)+2)
	followHistory = append(followHistory, history...)
	followHistory = append(followHistory,
		types.ChatMessage{Role: types.RoleAssistant, FunctionCall: call.Clone(), Timestamp: now},
		types.ChatMessage{Role: types.RoleFunction, Name: call.Name, Content: string(data), Timestamp: now},
	)

	resp, err := o.complete(ctx, phaseFollowup, &provider.Request{
		SystemPrompt:      system,
		History:           followHistory,
		Tools:             o.catalog.List(),
		AllowFunctionCall: false,
	})
	if err != nil {
		log.Warn("follow-up model call failed, returning raw result",
			"provider", o.model.Name(),
			"function", call.Name,
			"error", err,
		)
		return resultWrapper(call.Name, data)
	}
	if resp == nil {
		return resultWrapper(call.Name, data)
	}

	if resp.Kind == provider.KindFunctionCall || resp.FunctionCall != nil {
		metrics.RecordAnomaly(AnomalyFollowupFunctionCall)
		requested := ""
		if resp.FunctionCall != nil {
			requested = resp.FunctionCall.Name
		}
		log.Warn("model requested a function in the follow-up phase, ignoring it",
			"function", call.Name,
			"requested", requested,
		)
	}
	if resp.Content == "" {
		return resultWrapper(call.Name, data)
	}
	return resp.Content
}

// complete performs one traced and measured model call.
func (o *Orchestrator) complete(ctx context.Context, phase string, req *provider.Request) (*provider.Response, error) {
	ctx, span := observability.StartModelSpan(ctx, o.tracer, o.model.Name(), phase)
	defer span.End()

	start := time.Now()
	resp, err := o.model.Complete(ctx, req)
	metrics.RecordModelCall(o.model.Name(), phase, err, time.Since(start))
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return resp, nil
}

type panicError struct{ v any }

func (p panicError) Error() string {
	return "dispatcher panicked: " + toString(p.v)
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case error:
		return x.Error()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "unprintable panic value"
		}
		return string(b)
	}
}

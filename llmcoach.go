// Package llmcoach is the conversational core of an AI fitness and nutrition
// coach. A Coach grounds every model call in the user's profile, recent
// memories and progress, runs the two-phase function-call protocol against a
// catalog of coaching functions, and mines durable insights from what the
// user says.
//
// Basic usage:
//
//	coach, err := llmcoach.New(
//	    llmcoach.WithModel(model),
//	    llmcoach.WithDispatcher(table),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := coach.HandleTurn(ctx, "user-1", "I only slept 5 hours", history)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Reply)
package llmcoach

import (
	"github.com/blueberrycongee/llmcoach/pkg/catalog"
	"github.com/blueberrycongee/llmcoach/pkg/dispatch"
	"github.com/blueberrycongee/llmcoach/pkg/errors"
	"github.com/blueberrycongee/llmcoach/pkg/provider"
	"github.com/blueberrycongee/llmcoach/pkg/types"
)

// Version is the current version of llmcoach.
const Version = "0.3.0"

// Re-export core types for convenience.
type (
	// ChatMessage is a single entry of a conversation.
	ChatMessage = types.ChatMessage

	// CoachContext is the per-turn grounding aggregate.
	CoachContext = types.CoachContext

	// InsightRecord is a durable fact mined from a user message.
	InsightRecord = types.InsightRecord

	// TurnType categorizes the outcome of a turn.
	TurnType = types.TurnType

	// Model is the language model collaborator.
	Model = provider.Model

	// Dispatcher executes catalog functions on behalf of the host.
	Dispatcher = dispatch.Dispatcher

	// Catalog is the set of functions the model may request.
	Catalog = catalog.Catalog

	// CoachError is the classified error type returned by the core.
	CoachError = errors.CoachError
)

// Turn outcome types.
const (
	TurnText           = types.TurnText
	TurnFunctionResult = types.TurnFunctionResult
	TurnFunctionCall   = types.TurnFunctionCall
)

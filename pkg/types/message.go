// Package types defines the data model shared by the coaching core:
// conversation messages, user profile, memory and progress records, and the
// per-turn coach context.
package types //nolint:revive // package name is intentional

import (
	"time"

	"github.com/goccy/go-json"
)

// Role identifies the author of a ChatMessage.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	// RoleFunction marks a synthetic message carrying a function result.
	RoleFunction Role = "function"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleFunction:
		return true
	default:
		return false
	}
}

// ChatMessage is a single entry of a conversation. Messages are appended
// once and never mutated afterwards.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Name is the function name for RoleFunction messages.
	Name string `json:"name,omitempty"`
	// FunctionCall is set on the assistant message that requested a call.
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// FunctionCall is a request emitted by the model to invoke a catalog function.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Clone returns a deep copy of the call.
func (c *FunctionCall) Clone() *FunctionCall {
	if c == nil {
		return nil
	}
	dst := &FunctionCall{Name: c.Name}
	if c.Arguments != nil {
		dst.Arguments = append(json.RawMessage(nil), c.Arguments...)
	}
	return dst
}

// NewUserMessage is a convenience constructor for a user turn.
func NewUserMessage(content string, at time.Time) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content, Timestamp: at}
}

// TurnType categorizes the outcome of a chat turn.
type TurnType string

const (
	// TurnText is a plain natural-language reply.
	TurnText TurnType = "text"
	// TurnFunctionResult is a reply produced after a function was executed.
	TurnFunctionResult TurnType = "function_result"
	// TurnFunctionCall is a preview reply: a call was requested but not executed.
	TurnFunctionCall TurnType = "function_call"
)

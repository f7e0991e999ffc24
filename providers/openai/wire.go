package openai

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/blueberrycongee/llmcoach/pkg/catalog"
	"github.com/blueberrycongee/llmcoach/pkg/types"
)

// Chat Completions wire types. Only the fields the coach uses are modelled.

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []tool        `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    *string    `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	// FunctionCall is the legacy single-function form some compatible
	// servers still return.
	FunctionCall *functionCall `json:"function_call,omitempty"`
}

type tool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  catalog.Schema `json:"parameters"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
}

type choice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func strPtr(s string) *string { return &s }

func toTools(descs []catalog.Descriptor) []tool {
	if len(descs) == 0 {
		return nil
	}
	out := make([]tool, len(descs))
	for i, d := range descs {
		params := d.Parameters
		if params.Properties == nil {
			params.Properties = map[string]catalog.Property{}
		}
		out[i] = tool{
			Type: "function",
			Function: toolFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		}
	}
	return out
}

// toMessages converts the coach conversation into wire messages. Function
// results are sent as tool messages answering the preceding assistant call.
func toMessages(system string, history []types.ChatMessage) []chatMessage {
	out := make([]chatMessage, 0, len(history)+1)
	if system != "" {
		out = append(out, chatMessage{Role: "system", Content: strPtr(system)})
	}
	lastCallID := ""
	calls := 0
	for _, m := range history {
		switch {
		case m.Role == types.RoleAssistant && m.FunctionCall != nil:
			calls++
			lastCallID = fmt.Sprintf("call_%d_%s", calls, m.FunctionCall.Name)
			args := string(m.FunctionCall.Arguments)
			if args == "" {
				args = "{}"
			}
			msg := chatMessage{
				Role: "assistant",
				ToolCalls: []toolCall{{
					ID:       lastCallID,
					Type:     "function",
					Function: functionCall{Name: m.FunctionCall.Name, Arguments: args},
				}},
			}
			if m.Content != "" {
				msg.Content = strPtr(m.Content)
			}
			out = append(out, msg)
		case m.Role == types.RoleFunction:
			if lastCallID == "" {
				// An orphan result cannot be sent as a tool message.
				out = append(out, chatMessage{Role: "user", Content: strPtr(fmt.Sprintf("Result of %s: %s", m.Name, m.Content))})
				continue
			}
			out = append(out, chatMessage{Role: "tool", Content: strPtr(m.Content), ToolCallID: lastCallID})
			lastCallID = ""
		default:
			out = append(out, chatMessage{Role: string(m.Role), Content: strPtr(m.Content)})
		}
	}
	return out
}

// rawArguments keeps the model's argument string as raw JSON. Invalid JSON is
// passed through unchanged so the caller can report it as malformed.
func rawArguments(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("{}")
	}
	return json.RawMessage(s)
}

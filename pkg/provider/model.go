// Package provider defines the single call interface between the coach and a
// language-model provider. Adapters hide the vendor wire format behind Model.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/blueberrycongee/llmcoach/pkg/catalog"
	"github.com/blueberrycongee/llmcoach/pkg/types"
)

// Model is a chat-completion endpoint able to return either plain text or a
// single function call.
type Model interface {
	// Name returns the provider identifier (e.g. "openai").
	Name() string

	// Complete sends one request. A successful Response is either text or a
	// function call, never both.
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Request is one model call.
type Request struct {
	SystemPrompt string
	History      []types.ChatMessage
	// Tools are the functions the model may see.
	Tools []catalog.Descriptor
	// AllowFunctionCall is false for follow-up calls, where the model must
	// answer in text.
	AllowFunctionCall bool
}

// ResponseKind discriminates a Response.
type ResponseKind string

const (
	KindText         ResponseKind = "text"
	KindFunctionCall ResponseKind = "function_call"
)

// Response is the outcome of a model call.
type Response struct {
	Kind         ResponseKind
	Content      string
	FunctionCall *types.FunctionCall
}

// TextResponse builds a text Response.
func TextResponse(content string) *Response {
	return &Response{Kind: KindText, Content: content}
}

// FunctionCallResponse builds a function-call Response.
func FunctionCallResponse(name string, args []byte) *Response {
	return &Response{Kind: KindFunctionCall, FunctionCall: &types.FunctionCall{Name: name, Arguments: args}}
}

// Validate checks that the response is exactly one of text or function call.
func (r *Response) Validate() error {
	if r == nil {
		return fmt.Errorf("empty model response")
	}
	switch r.Kind {
	case KindText:
		if r.FunctionCall != nil {
			return fmt.Errorf("text response also carries a function call")
		}
	case KindFunctionCall:
		if r.FunctionCall == nil || r.FunctionCall.Name == "" {
			return fmt.Errorf("function call response has no function name")
		}
		if r.Content != "" {
			return fmt.Errorf("function call response also carries text")
		}
	default:
		return fmt.Errorf("unknown response kind %q", r.Kind)
	}
	return nil
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, req *Request) (*Response, error)

// Name implements Model.
func (f ModelFunc) Name() string { return "func" }

// Complete implements Model.
func (f ModelFunc) Complete(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Config contains provider-specific configuration.
type Config struct {
	Name                string
	Type                string
	APIKey              string
	BaseURL             string
	AllowPrivateBaseURL bool
	Model               string
	Temperature         float64
	MaxTokens           int
	Timeout             time.Duration
	Headers             map[string]string
	HTTPClient          *http.Client
}

// Factory creates a Model from configuration.
type Factory func(cfg Config) (Model, error)

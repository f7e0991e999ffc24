// Package openai implements provider.Model over the OpenAI Chat Completions
// API and compatible servers.
package openai

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/blueberrycongee/llmcoach/internal/httputil"
	"github.com/blueberrycongee/llmcoach/internal/observability"
	"github.com/blueberrycongee/llmcoach/pkg/errors"
	"github.com/blueberrycongee/llmcoach/pkg/provider"
)

const (
	// ProviderName is the identifier for this provider.
	ProviderName = "openai"

	// DefaultBaseURL is the default OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"

	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000

	maxErrorBody = 64 << 10
)

// Provider implements the OpenAI API adapter.
type Provider struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	headers     map[string]string
	client      *http.Client
}

var _ provider.Model = (*Provider)(nil)

// New creates a new OpenAI provider with the given options.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		headers:     make(map[string]string),
		client:      &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromConfig creates a provider from a Config struct.
func NewFromConfig(cfg provider.Config) (provider.Model, error) {
	if cfg.BaseURL != "" {
		base, err := httputil.ValidateEndpoint("model.base_url", cfg.BaseURL, cfg.AllowPrivateBaseURL)
		if err != nil {
			return nil, err
		}
		cfg.BaseURL = base
	}
	opts := []Option{
		WithAPIKey(cfg.APIKey),
		WithBaseURL(cfg.BaseURL),
		WithModel(cfg.Model),
		WithMaxTokens(cfg.MaxTokens),
		WithHTTPClient(cfg.HTTPClient),
	}
	if cfg.Temperature > 0 {
		opts = append(opts, WithTemperature(cfg.Temperature))
	}
	p := New(opts...)
	if cfg.HTTPClient == nil && cfg.Timeout > 0 {
		p.client = &http.Client{Timeout: cfg.Timeout}
	}
	for k, v := range cfg.Headers {
		p.headers[k] = v
	}
	return p, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

// Model returns the configured model name.
func (p *Provider) Model() string {
	return p.model
}

// Complete sends one chat completion. When function calls are allowed the
// catalog is offered with tool_choice "auto"; otherwise tool_choice is
// "none" so the model must answer in text.
func (p *Provider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	httpReq, err := p.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("openai request: %w", ctx.Err())
		}
		var timeout interface{ Timeout() bool }
		if stderrors.As(err, &timeout) && timeout.Timeout() {
			return nil, errors.NewTimeoutError(ProviderName, p.model, err.Error())
		}
		return nil, errors.NewServiceUnavailableError(ProviderName, p.model, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := httputil.ReadLimitedBody(resp.Body, maxErrorBody)
		return nil, p.mapError(resp.StatusCode, body)
	}
	return p.parseResponse(resp.Body, req.AllowFunctionCall)
}

func (p *Provider) buildRequest(ctx context.Context, req *provider.Request) (*http.Request, error) {
	temp := p.temperature
	wire := chatRequest{
		Model:       p.model,
		Messages:    toMessages(req.SystemPrompt, req.History),
		Tools:       toTools(req.Tools),
		Temperature: &temp,
		MaxTokens:   p.maxTokens,
	}
	if len(wire.Tools) > 0 {
		if req.AllowFunctionCall {
			wire.ToolChoice = "auto"
		} else {
			wire.ToolChoice = "none"
		}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(p.baseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}
	observability.PropagateIDs(ctx, httpReq.Header)
	return httpReq, nil
}

// parseResponse accepts exactly one of a text reply or a single function
// call. Anything else is reported as a malformed response. When function
// calls are not allowed, calls sent alongside text are dropped and the text
// is kept.
func (p *Provider) parseResponse(r io.Reader, allowCalls bool) (*provider.Response, error) {
	var chatResp chatResponse
	if err := httputil.DecodeLimitedJSON(r, httputil.DefaultMaxResponseBodyBytes, &chatResp); err != nil {
		return nil, errors.NewMalformedResponseError(ProviderName, p.model, fmt.Sprintf("unmarshal response: %v", err))
	}
	if len(chatResp.Choices) == 0 {
		return nil, errors.NewMalformedResponseError(ProviderName, p.model, "no choices returned")
	}

	msg := chatResp.Choices[0].Message
	content := ""
	if msg.Content != nil {
		content = strings.TrimSpace(*msg.Content)
	}

	calls := make([]functionCall, 0, len(msg.ToolCalls)+1)
	for _, tc := range msg.ToolCalls {
		calls = append(calls, tc.Function)
	}
	if msg.FunctionCall != nil && msg.FunctionCall.Name != "" {
		calls = append(calls, *msg.FunctionCall)
	}

	switch {
	case !allowCalls && len(calls) > 0 && content != "":
		return provider.TextResponse(content), nil
	case len(calls) > 1:
		return nil, errors.NewMalformedResponseError(ProviderName, p.model, fmt.Sprintf("%d function calls in one response", len(calls)))
	case len(calls) == 1 && content != "":
		return nil, errors.NewMalformedResponseError(ProviderName, p.model, "response carries both text and a function call")
	case len(calls) == 1:
		return provider.FunctionCallResponse(calls[0].Name, rawArguments(calls[0].Arguments)), nil
	case content == "":
		return nil, errors.NewMalformedResponseError(ProviderName, p.model, "response carries neither text nor a function call")
	default:
		return provider.TextResponse(content), nil
	}
}

// mapError converts an OpenAI error response to a standardized error.
func (p *Provider) mapError(statusCode int, body []byte) error {
	var errResp errorResponse
	message := "unknown error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewAuthenticationError(ProviderName, p.model, message)
	case http.StatusTooManyRequests:
		return errors.NewRateLimitError(ProviderName, p.model, message)
	case http.StatusBadRequest:
		if errResp.Error.Code == errors.TypeContextLength {
			e := errors.NewInvalidRequestError(ProviderName, p.model, message)
			e.Type = errors.TypeContextLength
			return e
		}
		return errors.NewInvalidRequestError(ProviderName, p.model, message)
	case http.StatusNotFound:
		return errors.NewNotFoundError(ProviderName, p.model, message)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errors.NewTimeoutError(ProviderName, p.model, message)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return errors.NewServiceUnavailableError(ProviderName, p.model, message)
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return errors.NewInvalidRequestError(ProviderName, p.model, message)
	default:
		return errors.NewInternalError(ProviderName, p.model, message)
	}
}

package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/llmcoach/pkg/catalog"
	"github.com/blueberrycongee/llmcoach/pkg/dispatch"
)

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Request: mcp.Request{Method: string(mcp.MethodToolsCall)},
		Params:  mcp.CallToolParams{Name: name, Arguments: args},
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestServer_ListsCatalog(t *testing.T) {
	s := NewServer(catalog.Default(), dispatch.NewTable(), "test", nil)

	msg := s.MCPServer().HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	for _, name := range catalog.Default().Names() {
		assert.Contains(t, string(data), `"`+name+`"`)
	}
}

func TestServer_CallToolDispatches(t *testing.T) {
	var gotUser string
	var gotArgs json.RawMessage
	d := dispatch.Func(func(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
		gotUser, _ = dispatch.UserIDFromContext(ctx)
		gotArgs = args
		return json.RawMessage(`{"success":true}`), nil
	})
	s := NewServer(catalog.Default(), d, "test", nil)

	ctx := dispatch.WithUserID(context.Background(), "u1")
	res, err := s.callTool(ctx, callRequest(catalog.FnGetMoodMeal, map[string]any{"mood": "tired"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"success":true}`, resultText(t, res))
	assert.Equal(t, "u1", gotUser)
	assert.JSONEq(t, `{"mood":"tired"}`, string(gotArgs))
}

func TestServer_CallToolRejects(t *testing.T) {
	called := false
	d := dispatch.Func(func(context.Context, string, json.RawMessage) (json.RawMessage, error) {
		called = true
		return nil, nil
	})
	s := NewServer(catalog.Default(), d, "test", nil)
	withUser := dispatch.WithUserID(context.Background(), "u1")
	unknownBefore := testutil.ToFloat64(toolRejections.WithLabelValues(unknownTool, reasonBadArgs))

	tests := []struct {
		name string
		ctx  context.Context
		req  mcp.CallToolRequest
	}{
		{"bad enum", withUser, callRequest(catalog.FnGetMoodMeal, map[string]any{"mood": "furious"})},
		{"unknown tool", withUser, callRequest("orderPizza", nil)},
		{"missing user", context.Background(), callRequest(catalog.FnGetMoodMeal, map[string]any{"mood": "tired"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.callTool(tt.ctx, tt.req)
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
	assert.False(t, called)
	assert.Equal(t, unknownBefore+1, testutil.ToFloat64(toolRejections.WithLabelValues(unknownTool, reasonBadArgs)),
		"names outside the catalog share one label")
}

func TestServer_CallToolDispatchError(t *testing.T) {
	d := dispatch.Func(func(context.Context, string, json.RawMessage) (json.RawMessage, error) {
		return nil, errors.New("db down: password=hunter2")
	})
	s := NewServer(catalog.Default(), d, "test", nil)
	before := testutil.ToFloat64(toolCalls.WithLabelValues(catalog.FnGetMoodMeal, outcomeError))

	res, err := s.callTool(dispatch.WithUserID(context.Background(), "u1"),
		callRequest(catalog.FnGetMoodMeal, map[string]any{"mood": "tired"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.NotContains(t, resultText(t, res), "hunter2")
	assert.Equal(t, before+1, testutil.ToFloat64(toolCalls.WithLabelValues(catalog.FnGetMoodMeal, outcomeError)))
}

// Package mcp publishes the coaching function catalog as an MCP server, so
// MCP-capable agents can call the same functions the coach's model does.
package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/blueberrycongee/llmcoach/pkg/catalog"
	"github.com/blueberrycongee/llmcoach/pkg/dispatch"
)

// ServerName is the implementation name announced to MCP clients.
const ServerName = "llmcoach"

// HeaderUserID carries the user a tool call acts for.
const HeaderUserID = "X-User-ID"

// Server exposes catalog functions as MCP tools backed by a dispatcher.
type Server struct {
	mcp        *server.MCPServer
	catalog    *catalog.Catalog
	dispatcher dispatch.Dispatcher
	logger     *slog.Logger
}

// NewServer registers one tool per catalog function.
func NewServer(c *catalog.Catalog, d dispatch.Dispatcher, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcp:        server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false)),
		catalog:    c,
		dispatcher: d,
		logger:     logger,
	}
	for _, tool := range c.MCPTools() {
		s.mcp.AddTool(tool, s.callTool)
	}
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// Handler serves the streamable HTTP transport. The acting user is taken
// from the X-User-ID header.
func (s *Server) Handler() http.Handler {
	h := server.NewStreamableHTTPServer(s.mcp)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid := r.Header.Get(HeaderUserID); uid != "" {
			r = r.WithContext(dispatch.WithUserID(r.Context(), uid))
		}
		h.ServeHTTP(w, r)
	})
}

func (s *Server) callTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.Params.Name
	call := s.beginCall(name)

	args := json.RawMessage(`{}`)
	if req.Params.Arguments != nil {
		data, err := json.Marshal(req.Params.Arguments)
		if err != nil {
			call.reject(reasonBadJSON)
			return mcp.NewToolResultError("arguments are not valid JSON"), nil
		}
		args = data
	}
	if err := s.catalog.ValidateArguments(name, args); err != nil {
		call.reject(reasonBadArgs)
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := dispatch.UserIDFromContext(ctx); !ok {
		call.reject(reasonMissingUser)
		return mcp.NewToolResultError("a user id is required (" + HeaderUserID + ")"), nil
	}

	data, err := s.dispatcher.Dispatch(ctx, name, args)
	call.finish(err)
	if err != nil {
		s.logger.Error("mcp tool call failed", "tool", name, "error", err)
		return mcp.NewToolResultError("the function could not be completed"), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

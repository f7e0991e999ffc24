package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blueberrycongee/llmcoach"
	"github.com/blueberrycongee/llmcoach/internal/config"
	"github.com/blueberrycongee/llmcoach/internal/httputil"
	"github.com/blueberrycongee/llmcoach/internal/metrics"
	"github.com/blueberrycongee/llmcoach/internal/observability"
	"github.com/blueberrycongee/llmcoach/internal/resilience"
	cerrors "github.com/blueberrycongee/llmcoach/pkg/errors"
	"github.com/blueberrycongee/llmcoach/pkg/types"
)

const maxChatBody int64 = 1 << 20

type coachService interface {
	HandleTurn(ctx context.Context, userID, message string, history []types.ChatMessage) (*llmcoach.TurnResult, error)
	Context(ctx context.Context, userID string) (types.CoachContext, error)
}

type routeDeps struct {
	coach   coachService
	limiter resilience.Limiter
	health  http.Handler
	mcp     http.Handler
}

var errNilConfig = stderrors.New("config is required")

type chatRequest struct {
	UserID  string              `json:"user_id"`
	Message string              `json:"message"`
	History []types.ChatMessage `json:"history"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func buildRouter(cfg *config.Config, deps routeDeps, logger *slog.Logger) (http.Handler, error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(observability.RequestIDMiddleware)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/livez"))

	if deps.health != nil {
		r.With(metrics.Middleware("health")).Get("/health", deps.health.ServeHTTP)
	}
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler())
	}
	if cfg.MCP.Enabled && deps.mcp != nil {
		r.With(metrics.Middleware("mcp")).Handle(cfg.MCP.Path, deps.mcp)
	}

	api := &apiHandler{
		coach:  deps.coach,
		limits: turnLimiter{limiter: deps.limiter, logger: logger},
		logger: logger,
	}
	r.Route("/v1", func(r chi.Router) {
		r.With(metrics.Middleware("chat")).Post("/chat", api.chat)
		r.With(metrics.Middleware("context")).Get("/users/{userID}/context", api.context)
	})
	return r, nil
}

type apiHandler struct {
	coach  coachService
	limits turnLimiter
	logger *slog.Logger
}

func (h *apiHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := httputil.DecodeLimitedJSON(r.Body, maxChatBody, &req); err != nil {
		status := http.StatusBadRequest
		if stderrors.Is(err, httputil.ErrResponseBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResponse{Error: "invalid request body"})
		return
	}
	if req.UserID == "" {
		req.UserID = userIDFromRequest(r)
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}
	for _, m := range req.History {
		if !m.Role.Valid() {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "history contains an unknown role"})
			return
		}
	}
	if !h.limits.allow(w, r, req.UserID) {
		return
	}

	res, err := h.coach.HandleTurn(r.Context(), req.UserID, req.Message, req.History)
	if err != nil {
		h.writeTurnError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *apiHandler) context(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	cc, err := h.coach.Context(r.Context(), userID)
	if err != nil {
		h.writeTurnError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cc)
}

func (h *apiHandler) writeTurnError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case stderrors.Is(err, llmcoach.ErrMissingUserID):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
	case cerrors.IsModelCallFailure(err):
		status := http.StatusBadGateway
		retryable := cerrors.IsRetryable(err)
		if retryable {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, errorResponse{
			Error:     "the coach is unavailable right now",
			Kind:      string(cerrors.KindModelCallFailure),
			Retryable: retryable,
		})
	default:
		h.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", observability.RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/memohai/storefront/internal/assistant"
)

const maxMessageRunes = 4000

// AssistantHandler serves the shopping assistant.
type AssistantHandler struct {
	service *assistant.Service
}

// ResolveRequest is the /assistant/resolve payload.
type ResolveRequest struct {
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
}

// ResolveResponse mirrors reference.Result without internal fields.
type ResolveResponse struct {
	DisplayText   string  `json:"display_text"`
	ReferencedIDs []int64 `json:"referenced_ids"`
}

// NewAssistantHandler creates the assistant handler.
func NewAssistantHandler(service *assistant.Service) *AssistantHandler {
	return &AssistantHandler{service: service}
}

// Register mounts the assistant routes.
func (h *AssistantHandler) Register(e *echo.Echo) {
	group := e.Group("/assistant")
	group.POST("/chat", h.Chat)
	group.POST("/resolve", h.Resolve)
}

// Chat godoc
// @Summary Chat with the shopping assistant
// @Description Answers one customer message. Generator or catalog failures still return 200 with `error` set.
// @Tags assistant
// @Param payload body assistant.Request true "Chat payload"
// @Success 200 {object} assistant.Response
// @Failure 400 {object} ErrorResponse
// @Router /assistant/chat [post]
func (h *AssistantHandler) Chat(c echo.Context) error {
	var req assistant.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len([]rune(req.Message)) > maxMessageRunes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "message is too long")
	}
	resp, err := h.service.Chat(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyMessage) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		requestLog(c, "assistant").Error("chat failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

// Resolve godoc
// @Summary Resolve catalog references in text
// @Description Runs the reference resolver against the current catalog snapshot.
// @Tags assistant
// @Param payload body ResolveRequest true "Text to resolve"
// @Success 200 {object} ResolveResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /assistant/resolve [post]
func (h *AssistantHandler) Resolve(c echo.Context) error {
	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	result, err := h.service.Resolve(c.Request().Context(), req.Category, req.Text)
	if err != nil {
		requestLog(c, "assistant").Error("resolve failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "catalog unavailable")
	}
	return c.JSON(http.StatusOK, ResolveResponse{
		DisplayText:   result.DisplayText,
		ReferencedIDs: result.ReferencedIDs,
	})
}

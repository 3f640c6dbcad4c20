package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/storefront/internal/version"
)

// PingHandler serves /ping and HEAD /health for liveness.
type PingHandler struct{}

// PingResponse is the /ping body.
type PingResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// NewPingHandler creates a ping handler.
func NewPingHandler() *PingHandler {
	return &PingHandler{}
}

// Register mounts GET /ping and HEAD /health on the Echo instance.
func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.HEAD("/health", h.PingHead)
}

// Ping godoc
// @Summary Liveness probe
// @Tags system
// @Success 200 {object} PingResponse
// @Router /ping [get]
func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, PingResponse{
		Status:  "ok",
		Version: version.Get().String(),
	})
}

// PingHead returns 200 No Content for health checks.
func (h *PingHandler) PingHead(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

package handlers

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/memohai/storefront/internal/logger"
)

// requestLog returns the request-scoped logger tagged with the handler name.
func requestLog(c echo.Context, handler string) *slog.Logger {
	return logger.FromContext(c.Request().Context()).With(slog.String("handler", handler))
}

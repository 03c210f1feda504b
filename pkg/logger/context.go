package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// FromEcho retrieves the request-scoped logger from the Echo context,
// falling back to the global logger.
func FromEcho(c echo.Context) *zap.Logger {
	l, ok := c.Get("logger").(*zap.Logger)
	if !ok {
		return GetLogger()
	}
	return l
}

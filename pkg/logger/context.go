package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const RequestIDKey = "X-Request-ID"

// FromContext retrieves the request-scoped logger from echo.Context.
// It carries the request ID and, once the auth middleware has run, the
// cashier identity, so every till action logs who performed it.
func FromContext(c echo.Context) *zap.Logger {
	log, ok := c.Get("logger").(*zap.Logger)
	if !ok {
		requestID, ok := c.Get(RequestIDKey).(string)
		if !ok {
			requestID = c.Request().Header.Get(RequestIDKey)
			if requestID == "" {
				requestID = "unknown"
			}
		}
		log = GetLogger().With(zap.String("request_id", requestID))
	}

	if cashierID, ok := c.Get("user_id").(uint); ok {
		log = log.With(zap.Uint("cashier_id", cashierID))
	}
	return log
}

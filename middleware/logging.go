package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-crm-api/utils"
)

const loggerKey = "logger"

// RequestLogger logs every request once it has been handled.
// 5xx are logged at error, 4xx at warn, everything else at debug.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(loggerKey, log)

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if id, err := GetAccountID(c); err == nil {
			attrs = append(attrs, "account_id", id)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request", attrs...)
		case status >= http.StatusBadRequest:
			log.Warn("request", attrs...)
		default:
			log.Debug("request", attrs...)
		}
	}
}

// Recovery turns panics into a 500 envelope
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Error("panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		utils.Error(c, http.StatusInternalServerError, utils.ErrorBody{
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
		})
	})
}

// Logger returns the request logger, falling back to the default logger
func Logger(c *gin.Context) *slog.Logger {
	if value, ok := c.Get(loggerKey); ok {
		if log, ok := value.(*slog.Logger); ok {
			return log
		}
	}
	return slog.Default()
}

// Package handler exposes the conversion service over HTTP for the portal.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys set by handlers and read back by the logging middleware.
const (
	ctxRequestID    = "request_id"
	ctxJobID        = "job_id"
	ctxProviderUsed = "provider_used"
)

// CORSMiddleware returns a middleware that enables permissive CORS.
// The student portal runs in the browser and calls this API directly.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware assigns each request a unique id, echoes it in the
// X-Request-ID response header, and stores it in the gin context for the
// logging middleware. An id supplied by the caller is kept.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header("X-Request-ID", id)

		c.Next()
	}
}

// LoggingMiddleware returns a middleware that logs request details in JSON format.
// It reads the job id and serving provider back out of the gin context when a
// conversion handler recorded them.
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		requestID := c.GetString(ctxRequestID)
		jobID := c.GetString(ctxJobID)
		providerUsed := c.GetString(ctxProviderUsed)

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", latency),
			slog.String("client_ip", c.ClientIP()),
			slog.String("request_id", requestID),
		}
		if jobID != "" {
			attrs = append(attrs, slog.String("job_id", jobID))
		}
		if providerUsed != "" {
			attrs = append(attrs, slog.String("provider", providerUsed))
		}

		logger.Info("request completed", attrs...)
	}
}

// RecoveryMiddleware returns a middleware that recovers from panics.
// It logs the error and returns a 500 response in the standard error envelope.
func RecoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					slog.Any("error", err),
					slog.String("path", c.Request.URL.Path),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{
						"type":    "internal",
						"message": "internal server error",
					},
				})
			}
		}()

		c.Next()
	}
}

package stubserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"guardian/internal/idgen"
)

const (
	// RequestIDKey is the context key and response header for request IDs
	RequestIDKey = "X-Request-ID"

	userIDKey = "userID"
)

// RequestID injects a unique request ID into each request context
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDKey)
		if requestID == "" {
			requestID = idgen.New()
		}
		c.Header(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)
		c.Next()
	}
}

// Recovery recovers from panics and returns the failure envelope
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					"component", "stubserver",
					"request_id", c.GetString(RequestIDKey),
					"error", err,
					"path", c.Request.URL.Path,
				)
				respondError(c, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
				c.Abort()
			}
		}()
		c.Next()
	}
}

// Logging logs HTTP requests with structured fields
func Logging(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("HTTP request",
			"component", "stubserver",
			"request_id", c.GetString(RequestIDKey),
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
		)
	}
}

// BearerAuth validates the Authorization header against issued sessions
func BearerAuth(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(c, http.StatusUnauthorized, "Missing or invalid authorization header", "UNAUTHORIZED")
			c.Abort()
			return
		}

		userID, ok := state.Authenticate(token)
		if !ok {
			respondError(c, http.StatusUnauthorized, "Access token expired or unknown", "TOKEN_EXPIRED")
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

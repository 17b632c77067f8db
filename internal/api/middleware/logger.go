package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/timmy/chanindex/internal/logger"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Logger returns a Gin middleware that injects a request-scoped logger and
// logs each request on completion.
// Parameters: none.
// Returns:
//   - gin.HandlerFunc: middleware handler.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logger.SetRequestID(c.Request.Context(), requestID)
		ctx = logger.SetComponent(ctx, "api")
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		entry := logger.With(logger.Fields{"method": c.Request.Method, "path": c.FullPath()}).
			WithStatus(strconv.Itoa(c.Writer.Status())).
			WithDuration(time.Since(start).Milliseconds()).
			WithSize(int64(c.Writer.Size()))
		if c.Writer.Status() >= 500 {
			entry.Error(ctx, "Request failed")
			return
		}
		entry.Debug(ctx, "Request completed")
	}
}

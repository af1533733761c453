package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Recovery handles panics and logs them appropriately. When sentry has been
// initialised the panic is reported there too.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// Get stack trace
				stack := debug.Stack()

				log.Error().
					Interface("error", err).
					Str("stack", string(stack)).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Str("client_ip", c.ClientIP()).
					Str("request_id", GetRequestID(c)).
					Msg("Request panic recovered")

				if sentry.CurrentHub().Client() != nil {
					hub := sentry.CurrentHub().Clone()
					hub.Scope().SetRequest(c.Request)
					hub.Scope().SetTag("request_id", GetRequestID(c))
					hub.RecoverWithContext(c.Request.Context(), fmt.Errorf("panic: %v", err))
					hub.Flush(2 * time.Second)
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Status:  "error",
					Message: "internal server error",
					TraceID: GetRequestID(c),
				})
			}
		}()
		c.Next()
	}
}

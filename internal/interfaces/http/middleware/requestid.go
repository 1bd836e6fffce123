package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader is the header a caller may use to propagate its own ID.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID ensures every request carries an identifier: the caller's when
// the header is set, a fresh UUID otherwise.  The ID is echoed in the
// response so clients can quote it in support requests.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// RequestIDFromContext returns the request ID assigned by RequestID, or ""
// when the middleware is not mounted.
func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

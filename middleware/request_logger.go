package middleware

import (
	"aiacard/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// CtxLogger holds the request-scoped *zap.Logger.
	CtxLogger       = "logger"
	RequestIDHeader = "X-Request-ID"
)

// RequestLogger tags each request with an id, echoes it in the response and
// stores a logger carrying it under CtxLogger. A client-supplied id is kept
// only if it is a UUID.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Set(CtxLogger, utils.GetLogger().With(zap.String("requestId", id)))
		c.Next()
	}
}

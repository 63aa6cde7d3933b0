package handlers

import (
	"aiacard/middleware"
	"aiacard/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getLogger retrieves the request's Zap logger set by middleware.RequestLogger
// or falls back to the global one.
func getLogger(c *gin.Context) *zap.Logger {
	if l, exists := c.Get(middleware.CtxLogger); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return utils.GetLogger()
}

// bindJSON binds the request body, replying 400 with message on failure.
func bindJSON(c *gin.Context, req interface{}, message string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		getLogger(c).Debug("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
		utils.JSONError(c, 400, message, err.Error())
		return false
	}
	return true
}

package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medichat/utils"
)

func getLogger(c *gin.Context) *zap.Logger {
	return utils.GetLogger().With(
		zap.String("path", c.FullPath()),
		zap.String("method", c.Request.Method),
	)
}

// moderatorID pulls the authenticated moderator id set by the auth middleware.
func moderatorID(c *gin.Context) string {
	return c.GetString("moderatorID")
}

// deviceID pulls the authenticated device id set by the device middleware.
func deviceID(c *gin.Context) string {
	return c.GetString("deviceID")
}

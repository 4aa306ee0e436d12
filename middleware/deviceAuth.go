package middleware

import (
	"net/http"
	"strings"
	"time"

	deviceRepo "medichat/database/repository/device"
	"medichat/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DeviceAuthMiddleware authenticates extension requests with the device's
// opaque bearer credential. Only the SHA-256 hash is ever stored, so lookup
// goes by hash.
func DeviceAuthMiddleware(devices deviceRepo.DeviceRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		device, err := devices.GetByTokenHash(utils.HashToken(token))
		if err != nil || device == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown device credential"})
			return
		}
		if !device.Active() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Device has been revoked"})
			return
		}
		if time.Now().After(device.TokenExpiresAt) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Device credential expired, re-pair required"})
			return
		}

		if err := devices.TouchLastSeen(device.ID, time.Now()); err != nil {
			zap.L().Warn("Failed to touch device last seen",
				zap.String("deviceId", device.ID), zap.Error(err))
		}

		c.Set("deviceID", device.ID)
		c.Set("moderatorID", device.ModeratorID)
		c.Next()
	}
}

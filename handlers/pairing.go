package handlers

import (
	"errors"
	"net/http"

	"medichat/services/pairing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StartPairingHandler issues a fresh pairing code for the staff UI to show.
func StartPairingHandler(svc pairing.PairingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)

		code, err := svc.StartPairing(c.Request.Context(), moderatorID(c))
		if err != nil {
			if errors.Is(err, pairing.ErrDevicePaired) {
				c.JSON(http.StatusConflict, gin.H{"error": "A device is already paired. Revoke it before pairing a new one."})
				return
			}
			logger.Error("Failed to start pairing", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start pairing"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"code":      code.Code,
			"expiresAt": code.ExpiresAt,
		})
	}
}

// ListDevicesHandler returns the moderator's devices, revoked history included.
func ListDevicesHandler(svc pairing.PairingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)

		devices, err := svc.ListDevices(c.Request.Context(), moderatorID(c))
		if err != nil {
			logger.Error("Failed to list devices", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list devices"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"devices": devices})
	}
}

// RevokeDeviceHandler soft-revokes a device so it can no longer lease.
func RevokeDeviceHandler(svc pairing.PairingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)
		id := c.Param("id")

		var req struct {
			Reason string `json:"reason"`
		}
		_ = c.ShouldBindJSON(&req)
		if req.Reason == "" {
			req.Reason = "revoked by staff"
		}

		if err := svc.RevokeDevice(c.Request.Context(), moderatorID(c), id, req.Reason); err != nil {
			if errors.Is(err, pairing.ErrDeviceNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
				return
			}
			logger.Error("Failed to revoke device", zap.String("deviceId", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke device"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Device revoked"})
	}
}

// DeleteDeviceHandler hard-deletes a device and everything hanging off it.
func DeleteDeviceHandler(svc pairing.PairingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)
		id := c.Param("id")

		if err := svc.DeleteDevice(c.Request.Context(), moderatorID(c), id); err != nil {
			if errors.Is(err, pairing.ErrDeviceNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
				return
			}
			logger.Error("Failed to delete device", zap.String("deviceId", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete device"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Device deleted"})
	}
}

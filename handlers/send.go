package handlers

import (
	"errors"
	"net/http"

	"medichat/services/dispatch"
	"medichat/services/lease"
	"medichat/services/numbercheck"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SendMessageHandler runs the send pipeline for one queued message and
// reports the outcome code. Non-final codes mean the message is still queued
// or in flight; the caller polls the message for the eventual state.
func SendMessageHandler(svc dispatch.DispatchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)
		messageID := c.Param("id")

		result, err := svc.SendMessage(c.Request.Context(), moderatorID(c), messageID)
		if err != nil {
			switch {
			case errors.Is(err, dispatch.ErrMessageNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			case errors.Is(err, dispatch.ErrNoDevice):
				c.JSON(http.StatusConflict, gin.H{"error": "No extension is paired. Pair a device first."})
			case errors.Is(err, dispatch.ErrNoLease):
				c.JSON(http.StatusConflict, gin.H{"error": "The extension is not connected"})
			default:
				logger.Error("Send failed", zap.String("messageId", messageID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Send failed"})
			}
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// CheckNumberHandler resolves whether a phone number has an account on the
// remote network.
func CheckNumberHandler(svc numbercheck.NumberCheckService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)

		var req struct {
			Phone string `json:"phone" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		result, err := svc.Check(c.Request.Context(), moderatorID(c), moderatorID(c), req.Phone)
		if err != nil {
			switch {
			case errors.Is(err, numbercheck.ErrBadPhone):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number is not valid"})
			case errors.Is(err, numbercheck.ErrCheckTimeout):
				c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Number check timed out"})
			case errors.Is(err, numbercheck.ErrCheckFailed):
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			case errors.Is(err, dispatch.ErrNoDevice), errors.Is(err, dispatch.ErrNoLease),
				errors.Is(err, dispatch.ErrPendingAuth), errors.Is(err, dispatch.ErrPendingNetwork):
				c.JSON(http.StatusConflict, gin.H{"error": "The extension is not available for live checks"})
			default:
				logger.Error("Number check failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Number check failed"})
			}
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// SessionHandler returns the moderator's session mirror for the staff UI.
func SessionHandler(svc lease.LeaseService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)

		session, err := svc.Session(c.Request.Context(), moderatorID(c))
		if err != nil {
			logger.Error("Failed to load session", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

// PauseSendingHandler sets the tier-1 pause for the moderator.
func PauseSendingHandler(svc lease.LeaseService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)

		if err := svc.PauseSending(c.Request.Context(), moderatorID(c), moderatorID(c)); err != nil {
			logger.Error("Failed to pause sending", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to pause sending"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Sending paused"})
	}
}

// ResumeSendingHandler clears a manual tier-1 pause.
func ResumeSendingHandler(svc lease.LeaseService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)

		if err := svc.ResumeSending(c.Request.Context(), moderatorID(c)); err != nil {
			if errors.Is(err, lease.ErrNotPaused) {
				c.JSON(http.StatusConflict, gin.H{"error": "Sending is not manually paused"})
				return
			}
			logger.Error("Failed to resume sending", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resume sending"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Sending resumed"})
	}
}

// ForceReleaseHandler revokes whatever lease the moderator holds, letting a
// new device take over.
func ForceReleaseHandler(svc lease.LeaseService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)

		if err := svc.ForceRelease(c.Request.Context(), moderatorID(c)); err != nil {
			logger.Error("Failed to force release lease", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to release session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Session released"})
	}
}

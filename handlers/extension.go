package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"medichat/services/command"
	"medichat/services/lease"
	"medichat/services/pairing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PairDeviceHandler redeems a pairing code. This is the only unauthenticated
// extension endpoint; the code itself is the credential.
func PairDeviceHandler(svc pairing.PairingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)

		var req struct {
			Code             string `json:"code" binding:"required"`
			Fingerprint      string `json:"fingerprint" binding:"required"`
			Label            string `json:"label"`
			ExtensionVersion string `json:"extensionVersion"`
			Browser          string `json:"browser"`
			PushToken        string `json:"pushToken"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		result, err := svc.CompletePairing(c.Request.Context(), req.Code, pairing.CompletePairingInput{
			Fingerprint:      req.Fingerprint,
			Label:            req.Label,
			ExtensionVersion: req.ExtensionVersion,
			Browser:          req.Browser,
			IP:               c.ClientIP(),
			PushToken:        req.PushToken,
		})
		if err != nil {
			switch {
			case errors.Is(err, pairing.ErrCodeInvalid):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Pairing code is invalid or expired"})
			case errors.Is(err, pairing.ErrCodeUsed):
				c.JSON(http.StatusConflict, gin.H{"error": "Pairing code was already used"})
			case errors.Is(err, pairing.ErrDeviceConflict):
				c.JSON(http.StatusConflict, gin.H{"error": "Another device is already paired to this account"})
			default:
				logger.Error("Pairing failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Pairing failed"})
			}
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

// AcquireLeaseHandler grants or renews the device's session lease.
func AcquireLeaseHandler(svc lease.LeaseService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)

		var req struct {
			Force bool `json:"force"`
		}
		_ = c.ShouldBindJSON(&req)

		grant, err := svc.Acquire(c.Request.Context(), moderatorID(c), deviceID(c), req.Force)
		if err != nil {
			switch {
			case errors.Is(err, lease.ErrDeviceBusy):
				c.JSON(http.StatusConflict, gin.H{"error": "Another device holds the session. Pass force to take over."})
			case errors.Is(err, lease.ErrDeviceInvalid):
				c.JSON(http.StatusForbidden, gin.H{"error": "Device is not valid for this account"})
			default:
				logger.Error("Lease acquisition failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Lease acquisition failed"})
			}
			return
		}
		c.JSON(http.StatusCreated, grant)
	}
}

// HeartbeatHandler renews the lease and reports extension status.
func HeartbeatHandler(svc lease.LeaseService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)
		leaseID := c.Param("id")

		var req struct {
			Token     string `json:"token" binding:"required"`
			Status    string `json:"status" binding:"required"`
			URL       string `json:"url"`
			LastError string `json:"lastError"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		updated, err := svc.Heartbeat(c.Request.Context(), leaseID, req.Token, lease.HeartbeatInput{
			Status:    req.Status,
			URL:       req.URL,
			LastError: req.LastError,
		})
		if err != nil {
			switch {
			case errors.Is(err, lease.ErrLeaseNotFound), errors.Is(err, lease.ErrBadLeaseToken):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown lease or token"})
			case errors.Is(err, lease.ErrLeaseRevoked):
				c.JSON(http.StatusGone, gin.H{"error": "Lease was revoked. Re-acquire."})
			case errors.Is(err, lease.ErrLeaseExpired):
				c.JSON(http.StatusGone, gin.H{"error": "Lease expired. Re-acquire."})
			default:
				logger.Error("Heartbeat failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Heartbeat failed"})
			}
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// ReleaseLeaseHandler revokes the lease at the device's request.
func ReleaseLeaseHandler(svc lease.LeaseService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)
		leaseID := c.Param("id")

		var req struct {
			Token string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		if err := svc.Release(c.Request.Context(), leaseID, req.Token); err != nil {
			switch {
			case errors.Is(err, lease.ErrLeaseNotFound), errors.Is(err, lease.ErrBadLeaseToken):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown lease or token"})
			case errors.Is(err, lease.ErrLeaseRevoked):
				c.JSON(http.StatusOK, gin.H{"message": "Lease already revoked"})
			default:
				logger.Error("Lease release failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Lease release failed"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Lease released"})
	}
}

// PollCommandsHandler returns the device's executable commands.
func PollCommandsHandler(svc command.CommandService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)

		limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)
		cmds, err := svc.Poll(c.Request.Context(), moderatorID(c), limit)
		if err != nil {
			logger.Error("Command poll failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Command poll failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"commands": cmds})
	}
}

// AckCommandHandler records that execution started.
func AckCommandHandler(svc command.CommandService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)
		id := c.Param("id")

		if err := svc.Acknowledge(c.Request.Context(), moderatorID(c), id); err != nil {
			respondCommandErr(c, logger, id, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Acknowledged"})
	}
}

// CompleteCommandHandler records the execution result.
func CompleteCommandHandler(svc command.CommandService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)
		id := c.Param("id")

		var req command.CompletionInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		cmd, err := svc.Complete(c.Request.Context(), moderatorID(c), id, req)
		if err != nil {
			if errors.Is(err, command.ErrBadResultStatus) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "resultStatus must be success or failure"})
				return
			}
			respondCommandErr(c, logger, id, err)
			return
		}
		c.JSON(http.StatusOK, cmd)
	}
}

// FailCommandHandler records a terminal failure without a result payload.
func FailCommandHandler(svc command.CommandService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := getLogger(c)
		id := c.Param("id")

		var req struct {
			Reason string `json:"reason"`
		}
		_ = c.ShouldBindJSON(&req)
		if req.Reason == "" {
			req.Reason = "execution failed"
		}

		if err := svc.Fail(c.Request.Context(), moderatorID(c), id, req.Reason); err != nil {
			respondCommandErr(c, logger, id, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Command failed"})
	}
}

func respondCommandErr(c *gin.Context, logger *zap.Logger, id string, err error) {
	switch {
	case errors.Is(err, command.ErrCommandNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Command not found"})
	case errors.Is(err, command.ErrCommandFinished):
		c.JSON(http.StatusConflict, gin.H{"error": "Command already reached a terminal state"})
	default:
		logger.Error("Command update failed", zap.String("commandId", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Command update failed"})
	}
}

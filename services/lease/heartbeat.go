package lease

import (
	"context"
	"fmt"
	"time"

	"medichat/config"
	leaseRepo "medichat/database/repository/lease"
	"medichat/models"
	"medichat/services/notification"
	"medichat/utils"

	"go.uber.org/zap"
)

func validExtensionStatus(status string) bool {
	switch status {
	case models.ExtensionConnected, models.ExtensionNeedsAuth,
		models.ExtensionNoNetwork, models.ExtensionDisconnected:
		return true
	}
	return false
}

func (s *DefaultLeaseService) Heartbeat(ctx context.Context, leaseID, token string, input HeartbeatInput) (*models.SessionLease, error) {
	if !validExtensionStatus(input.Status) {
		return nil, fmt.Errorf("unknown extension status %q", input.Status)
	}

	le, err := s.holderLease(leaseID, token)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(le.ModeratorID)
	defer unlock()

	now := time.Now()
	if !le.Live(now) && !le.InGrace(now, config.AppConfig.HeartbeatGrace) {
		// Too late to revive. Bury the lease so the next acquisition
		// starts clean.
		if err := s.Leases.Revoke(le.ID, models.LeaseRevokeExpired, now); err != nil && err != leaseRepo.ErrConflict {
			utils.GetLogger().Error("Failed to revoke lapsed lease",
				zap.String("leaseId", le.ID), zap.Error(err))
		}
		s.mirror(ctx, le.ModeratorID, models.ExtensionDisconnected)
		return nil, ErrLeaseExpired
	}

	expiresAt := now.Add(config.AppConfig.HeartbeatWindow)
	if err := s.Leases.RecordHeartbeat(le.ID, input.Status, input.URL, input.LastError, expiresAt, now); err != nil {
		if err == leaseRepo.ErrConflict {
			return nil, ErrLeaseRevoked
		}
		return nil, fmt.Errorf("failed to record heartbeat: %w", err)
	}

	statusChanged := le.Status != input.Status
	le.Status = input.Status
	le.LastURL = input.URL
	le.LastError = input.LastError
	le.ExpiresAt = expiresAt
	le.LastHeartbeatAt = now

	if statusChanged {
		s.mirror(ctx, le.ModeratorID, input.Status)
	}
	return le, nil
}

// mirror records the extension status on the moderator session, drives the
// status-derived message pauses, and broadcasts the change. Mirror failures
// are logged, never propagated: the lease state change already happened.
func (s *DefaultLeaseService) mirror(ctx context.Context, moderatorID, status string) {
	logger := utils.GetLogger()
	now := time.Now()

	if err := s.Sessions.MirrorStatus(moderatorID, status, now); err != nil {
		logger.Error("Failed to mirror extension status",
			zap.String("moderatorId", moderatorID), zap.Error(err))
	}

	switch status {
	case models.ExtensionConnected:
		statusReasons := []string{models.PauseReasonNeedsAuth, models.PauseReasonNoNetwork, models.PauseReasonDisconnected}
		if _, err := s.Sessions.ClearPause(moderatorID, statusReasons, now); err != nil {
			logger.Error("Failed to clear status pause",
				zap.String("moderatorId", moderatorID), zap.Error(err))
		}
		if _, err := s.Messages.UnpauseByReason(moderatorID, statusReasons, now); err != nil {
			logger.Error("Failed to unpause messages",
				zap.String("moderatorId", moderatorID), zap.Error(err))
		}
	case models.ExtensionNeedsAuth:
		s.pauseForStatus(moderatorID, models.PauseReasonNeedsAuth, now)
	case models.ExtensionNoNetwork:
		s.pauseForStatus(moderatorID, models.PauseReasonNoNetwork, now)
	case models.ExtensionDisconnected:
		s.pauseForStatus(moderatorID, models.PauseReasonDisconnected, now)
	}

	session, err := s.Sessions.Get(moderatorID)
	if err != nil {
		logger.Error("Failed to load session for status push",
			zap.String("moderatorId", moderatorID), zap.Error(err))
		return
	}
	update := notification.StatusUpdate{
		Status:      status,
		Paused:      session.Paused,
		PauseReason: session.PauseReason,
		Resumable:   session.Resumable,
	}
	if err := s.Notifier.PushStatus(ctx, moderatorID, update); err != nil {
		logger.Warn("Failed to push status update",
			zap.String("moderatorId", moderatorID), zap.Error(err))
	}
}

func (s *DefaultLeaseService) pauseForStatus(moderatorID, reason string, now time.Time) {
	logger := utils.GetLogger()
	applied, err := s.Sessions.SetPause(moderatorID, reason, "system", true, now)
	if err != nil {
		logger.Error("Failed to set status pause",
			zap.String("moderatorId", moderatorID), zap.Error(err))
		return
	}
	if !applied {
		return
	}
	if _, err := s.Messages.PauseByReason(moderatorID, reason, now); err != nil {
		logger.Error("Failed to pause messages",
			zap.String("moderatorId", moderatorID), zap.Error(err))
	}
}

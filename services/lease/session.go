package lease

import (
	"context"
	"fmt"
	"time"

	"medichat/models"
	"medichat/services/notification"
	"medichat/utils"

	"go.uber.org/zap"
)

func (s *DefaultLeaseService) Session(ctx context.Context, moderatorID string) (*models.ModeratorSession, error) {
	session, err := s.Sessions.Get(moderatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load moderator session: %w", err)
	}
	return session, nil
}

func (s *DefaultLeaseService) PauseSending(ctx context.Context, moderatorID, pausedBy string) error {
	now := time.Now()
	applied, err := s.Sessions.SetPause(moderatorID, models.PauseReasonManual, pausedBy, true, now)
	if err != nil {
		return fmt.Errorf("failed to pause sending: %w", err)
	}
	if !applied {
		// Already paused for some reason. Manual pause never overrides a
		// more specific one.
		return nil
	}
	if _, err := s.Messages.PauseByReason(moderatorID, models.PauseReasonManual, now); err != nil {
		utils.GetLogger().Error("Failed to pause queued messages",
			zap.String("moderatorId", moderatorID), zap.Error(err))
	}
	utils.GetLogger().Info("Sending paused",
		zap.String("moderatorId", moderatorID),
		zap.String("pausedBy", pausedBy))
	s.pushSessionState(ctx, moderatorID)
	return nil
}

func (s *DefaultLeaseService) ResumeSending(ctx context.Context, moderatorID string) error {
	now := time.Now()
	cleared, err := s.Sessions.ClearPause(moderatorID, []string{models.PauseReasonManual}, now)
	if err != nil {
		return fmt.Errorf("failed to resume sending: %w", err)
	}
	if !cleared {
		return ErrNotPaused
	}
	if _, err := s.Messages.UnpauseByReason(moderatorID, []string{models.PauseReasonManual}, now); err != nil {
		utils.GetLogger().Error("Failed to unpause queued messages",
			zap.String("moderatorId", moderatorID), zap.Error(err))
	}
	utils.GetLogger().Info("Sending resumed", zap.String("moderatorId", moderatorID))
	s.pushSessionState(ctx, moderatorID)
	return nil
}

func (s *DefaultLeaseService) pushSessionState(ctx context.Context, moderatorID string) {
	session, err := s.Sessions.Get(moderatorID)
	if err != nil {
		utils.GetLogger().Error("Failed to load session for status push",
			zap.String("moderatorId", moderatorID), zap.Error(err))
		return
	}
	update := notification.StatusUpdate{
		Status:      session.ExtensionStatus,
		Paused:      session.Paused,
		PauseReason: session.PauseReason,
		Resumable:   session.Resumable,
	}
	if err := s.Notifier.PushStatus(ctx, moderatorID, update); err != nil {
		utils.GetLogger().Warn("Failed to push status update",
			zap.String("moderatorId", moderatorID), zap.Error(err))
	}
}

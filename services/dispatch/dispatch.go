package dispatch

import (
	"context"
	"fmt"
	"time"

	"medichat/config"
	commandRepo "medichat/database/repository/command"
	deviceRepo "medichat/database/repository/device"
	messageRepo "medichat/database/repository/message"
	modsessionRepo "medichat/database/repository/modsession"
	"medichat/models"
	"medichat/services/lease"
	"medichat/services/notification"
	"medichat/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultDispatchService implements DispatchService.
type DefaultDispatchService struct {
	Commands commandRepo.CommandRepository
	Messages messageRepo.MessageRepository
	Devices  deviceRepo.DeviceRepository
	Sessions modsessionRepo.ModeratorSessionRepository
	Lease    lease.LeaseService
	Notifier notification.NotificationService
}

func NewDefaultDispatchService(
	commands commandRepo.CommandRepository,
	messages messageRepo.MessageRepository,
	devices deviceRepo.DeviceRepository,
	sessions modsessionRepo.ModeratorSessionRepository,
	leaseSvc lease.LeaseService,
	notifier notification.NotificationService,
) *DefaultDispatchService {
	return &DefaultDispatchService{
		Commands: commands,
		Messages: messages,
		Devices:  devices,
		Sessions: sessions,
		Lease:    leaseSvc,
		Notifier: notifier,
	}
}

func (s *DefaultDispatchService) Execute(ctx context.Context, moderatorID string, input ExecuteInput) (*models.Command, error) {
	if err := s.requireLease(ctx, moderatorID); err != nil {
		return nil, err
	}

	now := time.Now()
	timeout := input.Timeout
	if timeout <= 0 {
		timeout = config.AppConfig.CommandTimeout
	}
	priority := input.Priority
	if priority == 0 {
		priority = models.DefaultCommandPriority
	}
	cmd := &models.Command{
		ID:          uuid.New().String(),
		ModeratorID: moderatorID,
		Type:        input.Type,
		Payload:     input.Payload,
		MessageID:   input.MessageID,
		Priority:    priority,
		Status:      models.CommandPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(timeout),
	}
	if err := s.Commands.Create(cmd); err != nil {
		return nil, fmt.Errorf("failed to create command: %w", err)
	}

	// Best effort. The extension polls anyway; the push just shortens the
	// pickup latency.
	if err := s.Notifier.PushCommand(ctx, moderatorID, cmd); err != nil {
		utils.GetLogger().Warn("Failed to push command",
			zap.String("commandId", cmd.ID), zap.Error(err))
	}

	utils.GetLogger().Info("Command dispatched",
		zap.String("moderatorId", moderatorID),
		zap.String("commandId", cmd.ID),
		zap.String("type", cmd.Type))
	return cmd, nil
}

// requireLease maps the absence of a live lease onto the caller-facing error
// taxonomy, using the last reported extension status to distinguish "logged
// out" and "offline" from plain disconnection.
func (s *DefaultDispatchService) requireLease(ctx context.Context, moderatorID string) error {
	active, err := s.Lease.ActiveLease(ctx, moderatorID)
	if err != nil {
		return err
	}
	if active != nil {
		switch active.Status {
		case models.ExtensionNeedsAuth:
			return ErrPendingAuth
		case models.ExtensionNoNetwork:
			return ErrPendingNetwork
		}
		return nil
	}

	device, err := s.Devices.GetActiveByModerator(moderatorID)
	if err != nil {
		return fmt.Errorf("failed to load device: %w", err)
	}
	if device == nil {
		return ErrNoDevice
	}
	return ErrNoLease
}

func (s *DefaultDispatchService) Await(ctx context.Context, commandID string) (*models.Command, error) {
	deadline := time.Now().Add(config.AppConfig.DispatchWaitTimeout)
	ticker := time.NewTicker(config.AppConfig.DispatchPollEvery)
	defer ticker.Stop()

	for {
		cmd, err := s.Commands.GetByID(commandID)
		if err != nil {
			if err == commandRepo.ErrNotFound {
				return nil, fmt.Errorf("command %s vanished while waiting", commandID)
			}
			return nil, fmt.Errorf("failed to poll command: %w", err)
		}
		if cmd == nil {
			return nil, fmt.Errorf("command %s vanished while waiting", commandID)
		}
		if cmd.Terminal() {
			return cmd, nil
		}
		if time.Now().After(deadline) {
			return cmd, ErrWaitTimeout
		}
		select {
		case <-ctx.Done():
			return cmd, ErrWaitAborted
		case <-ticker.C:
		}
	}
}

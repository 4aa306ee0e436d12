package notification

import (
	"context"
	"encoding/json"
	"fmt"

	deviceRepo "medichat/database/repository/device"
	moderatorRepo "medichat/database/repository/moderator"
	"medichat/models"
	"medichat/utils"

	"firebase.google.com/go/v4/messaging"
	"github.com/go-redis/redis/v8"
)

// StatusChannelPrefix namespaces per-moderator status pub/sub channels.
const StatusChannelPrefix = "modstatus:"

// DefaultNotificationService pushes over FCM and mirrors status updates onto
// a per-moderator Redis channel for websocket-style subscribers.
type DefaultNotificationService struct {
	Devices    deviceRepo.DeviceRepository
	Moderators moderatorRepo.ModeratorRepository
	Redis      *redis.Client
}

func NewDefaultNotificationService(
	devices deviceRepo.DeviceRepository,
	moderators moderatorRepo.ModeratorRepository,
	redisClient *redis.Client,
) (*DefaultNotificationService, error) {
	if devices == nil || moderators == nil {
		return nil, fmt.Errorf("notification service initialization error: device or moderator repo is nil")
	}
	return &DefaultNotificationService{
		Devices:    devices,
		Moderators: moderators,
		Redis:      redisClient,
	}, nil
}

// PushCommand sends a data-only FCM message to the moderator's active device.
func (s *DefaultNotificationService) PushCommand(ctx context.Context, moderatorID string, cmd *models.Command) error {
	device, err := s.Devices.GetActiveByModerator(moderatorID)
	if err != nil {
		return fmt.Errorf("PushCommand: could not resolve device for moderator %s: %w", moderatorID, err)
	}
	if device == nil || device.PushToken == "" {
		return fmt.Errorf("PushCommand: moderator %s has no push-capable device", moderatorID)
	}

	msg := &messaging.Message{
		Token: device.PushToken,
		Data: map[string]string{
			"kind":      "execute_command",
			"commandId": cmd.ID,
			"type":      cmd.Type,
			"payload":   cmd.Payload,
		},
	}
	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("PushCommand: failed to send FCM message: %w", err)
	}
	return nil
}

// PushStatus publishes to the moderator's Redis channel and, when the staff
// account carries a push token, over FCM as well.
func (s *DefaultNotificationService) PushStatus(ctx context.Context, moderatorID string, update StatusUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("PushStatus: failed to marshal update: %w", err)
	}

	if s.Redis != nil {
		if err := s.Redis.Publish(ctx, StatusChannelPrefix+moderatorID, payload).Err(); err != nil {
			return fmt.Errorf("PushStatus: redis publish failed: %w", err)
		}
	}

	mod, err := s.Moderators.GetByID(moderatorID)
	if err != nil || mod == nil || mod.PushToken == "" {
		// Redis subscribers already got the update; FCM is optional here.
		return nil
	}

	msg := &messaging.Message{
		Token: mod.PushToken,
		Data: map[string]string{
			"kind":        "session_status",
			"status":      update.Status,
			"paused":      fmt.Sprintf("%t", update.Paused),
			"pauseReason": update.PauseReason,
			"resumable":   fmt.Sprintf("%t", update.Resumable),
		},
	}
	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("PushStatus: failed to send FCM message: %w", err)
	}
	return nil
}

package pairing

import (
	"context"
	"fmt"
	"time"

	"medichat/config"
	deviceRepo "medichat/database/repository/device"
	pairingRepo "medichat/database/repository/pairing"
	"medichat/models"
	"medichat/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	pairingCodeDigits = 6
	bearerTokenLength = 48
)

// deviceTokenLifetime is deliberately long; revocation, not expiry, is the
// primary kill switch for a paired extension.
const deviceTokenLifetime = 365 * 24 * time.Hour

// DefaultPairingService implements PairingService.
type DefaultPairingService struct {
	Devices deviceRepo.DeviceRepository
	Codes   pairingRepo.PairingRepository
}

func (s *DefaultPairingService) StartPairing(ctx context.Context, moderatorID string) (*models.PairingCode, error) {
	if moderatorID == "" {
		return nil, fmt.Errorf("moderator id is required")
	}

	active, err := s.Devices.GetActiveByModerator(moderatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active device: %w", err)
	}
	if active != nil {
		return nil, ErrDevicePaired
	}

	now := time.Now()
	if err := s.Codes.ExpireUnconsumed(moderatorID, now); err != nil {
		return nil, fmt.Errorf("failed to invalidate prior codes: %w", err)
	}

	code, err := utils.GeneratePairingCode(pairingCodeDigits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate pairing code: %w", err)
	}

	pc := &models.PairingCode{
		Code:        code,
		ModeratorID: moderatorID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(config.AppConfig.PairingCodeTTL),
	}
	if err := s.Codes.Create(pc); err != nil {
		return nil, fmt.Errorf("failed to store pairing code: %w", err)
	}

	utils.GetLogger().Info("pairing code issued",
		zap.String("moderatorId", moderatorID),
		zap.Time("expiresAt", pc.ExpiresAt),
	)
	return pc, nil
}

func (s *DefaultPairingService) CompletePairing(ctx context.Context, code string, input CompletePairingInput) (*PairResult, error) {
	logger := utils.GetLogger()
	now := time.Now()

	pc, err := s.Codes.GetByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up pairing code: %w", err)
	}
	if pc == nil {
		return nil, ErrCodeInvalid
	}
	if pc.Consumed() {
		return nil, ErrCodeUsed
	}
	if pc.Expired(now) {
		return nil, ErrCodeInvalid
	}

	active, err := s.Devices.GetActiveByModerator(pc.ModeratorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active device: %w", err)
	}

	token, err := utils.GenerateBearerToken(bearerTokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate bearer token: %w", err)
	}
	tokenHash := utils.HashToken(token)
	tokenExpiry := now.Add(deviceTokenLifetime)

	// Same physical install re-pairing: rotate the credential in place.
	if active != nil && active.Fingerprint == input.Fingerprint {
		if err := s.Codes.Consume(code, active.ID, now); err != nil {
			return nil, mapConsumeErr(err)
		}
		if err := s.Devices.RotateToken(active.ID, tokenHash, tokenExpiry); err != nil {
			return nil, fmt.Errorf("failed to rotate device credential: %w", err)
		}
		active.TokenHash = tokenHash
		active.TokenExpiresAt = tokenExpiry
		logger.Info("device re-paired",
			zap.String("moderatorId", pc.ModeratorID),
			zap.String("deviceId", active.ID),
		)
		return &PairResult{Device: active, Token: token}, nil
	}

	if active != nil {
		return nil, ErrDeviceConflict
	}

	device := &models.Device{
		ID:               uuid.NewString(),
		ModeratorID:      pc.ModeratorID,
		Label:            input.Label,
		Fingerprint:      input.Fingerprint,
		TokenHash:        tokenHash,
		TokenExpiresAt:   tokenExpiry,
		ExtensionVersion: input.ExtensionVersion,
		Browser:          input.Browser,
		IP:               input.IP,
		PushToken:        input.PushToken,
		LastSeenAt:       now,
	}

	// Create first: a failed insert must leave the single-use code
	// redeemable, or staff have to restart pairing for a transient error.
	if err := s.Devices.Create(device); err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	if err := s.Codes.Consume(code, device.ID, now); err != nil {
		if delErr := s.Devices.DeleteCascade(device.ID); delErr != nil {
			logger.Error("Failed to remove device after losing code redemption",
				zap.String("deviceId", device.ID), zap.Error(delErr))
		}
		return nil, mapConsumeErr(err)
	}

	logger.Info("device paired",
		zap.String("moderatorId", pc.ModeratorID),
		zap.String("deviceId", device.ID),
		zap.String("browser", device.Browser),
	)
	return &PairResult{Device: device, Token: token}, nil
}

func (s *DefaultPairingService) RevokeDevice(ctx context.Context, moderatorID, deviceID, reason string) error {
	if err := s.ownedDevice(moderatorID, deviceID); err != nil {
		return err
	}
	if err := s.Devices.Revoke(deviceID, reason, time.Now()); err != nil {
		if err == deviceRepo.ErrNotFound {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("failed to revoke device %s: %w", deviceID, err)
	}
	utils.GetLogger().Info("device revoked", zap.String("deviceId", deviceID), zap.String("reason", reason))
	return nil
}

func (s *DefaultPairingService) DeleteDevice(ctx context.Context, moderatorID, deviceID string) error {
	if err := s.ownedDevice(moderatorID, deviceID); err != nil {
		return err
	}
	if err := s.Devices.DeleteCascade(deviceID); err != nil {
		if err == deviceRepo.ErrNotFound {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("failed to delete device %s: %w", deviceID, err)
	}
	utils.GetLogger().Info("device purged", zap.String("deviceId", deviceID))
	return nil
}

// ownedDevice verifies the device belongs to the moderator. Unknown and
// foreign devices are indistinguishable to the caller.
func (s *DefaultPairingService) ownedDevice(moderatorID, deviceID string) error {
	device, err := s.Devices.GetByID(deviceID)
	if err != nil {
		if err == deviceRepo.ErrNotFound {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("failed to load device %s: %w", deviceID, err)
	}
	if device == nil || device.ModeratorID != moderatorID {
		return ErrDeviceNotFound
	}
	return nil
}

func (s *DefaultPairingService) ListDevices(ctx context.Context, moderatorID string) ([]models.Device, error) {
	return s.Devices.ListByModerator(moderatorID)
}

func mapConsumeErr(err error) error {
	switch err {
	case pairingRepo.ErrConsumed:
		return ErrCodeUsed
	case pairingRepo.ErrNotFound:
		return ErrCodeInvalid
	default:
		return fmt.Errorf("failed to consume pairing code: %w", err)
	}
}

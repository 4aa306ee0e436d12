package lease

import (
	"context"
	"fmt"
	"time"

	"medichat/config"
	deviceRepo "medichat/database/repository/device"
	leaseRepo "medichat/database/repository/lease"
	messageRepo "medichat/database/repository/message"
	modsessionRepo "medichat/database/repository/modsession"
	"medichat/models"
	"medichat/services/notification"
	"medichat/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const leaseTokenLength = 48

// DefaultLeaseService implements LeaseService on Mongo-backed repositories.
type DefaultLeaseService struct {
	Leases   leaseRepo.LeaseRepository
	Devices  deviceRepo.DeviceRepository
	Sessions modsessionRepo.ModeratorSessionRepository
	Messages messageRepo.MessageRepository
	Notifier notification.NotificationService

	locks *moderatorLocks
}

func NewDefaultLeaseService(
	leases leaseRepo.LeaseRepository,
	devices deviceRepo.DeviceRepository,
	sessions modsessionRepo.ModeratorSessionRepository,
	messages messageRepo.MessageRepository,
	notifier notification.NotificationService,
) *DefaultLeaseService {
	return &DefaultLeaseService{
		Leases:   leases,
		Devices:  devices,
		Sessions: sessions,
		Messages: messages,
		Notifier: notifier,
		locks:    newModeratorLocks(),
	}
}

func (s *DefaultLeaseService) Acquire(ctx context.Context, moderatorID, deviceID string, force bool) (*LeaseGrant, error) {
	device, err := s.Devices.GetByID(deviceID)
	if err != nil {
		if err == deviceRepo.ErrNotFound {
			return nil, ErrDeviceInvalid
		}
		return nil, fmt.Errorf("failed to load device: %w", err)
	}
	if device == nil || device.ModeratorID != moderatorID || !device.Active() {
		return nil, ErrDeviceInvalid
	}

	unlock := s.locks.lock(moderatorID)
	defer unlock()

	now := time.Now()
	existing, err := s.Leases.GetUnrevokedByModerator(moderatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing lease: %w", err)
	}

	if existing != nil {
		switch {
		case !existing.Live(now) && !existing.InGrace(now, config.AppConfig.HeartbeatGrace):
			// Stale carcass on acquisition path. Reclaim it and fall
			// through to a fresh grant.
			if err := s.Leases.Revoke(existing.ID, models.LeaseRevokeExpired, now); err != nil && err != leaseRepo.ErrConflict {
				return nil, fmt.Errorf("failed to reclaim expired lease: %w", err)
			}
		case existing.DeviceID == deviceID:
			// Renewal by the current holder keeps the lease id stable so
			// in-flight commands stay attributable.
			return s.renew(existing, now)
		case !force:
			return nil, ErrDeviceBusy
		default:
			if err := s.Leases.Revoke(existing.ID, models.LeaseRevokeTakeover, now); err != nil && err != leaseRepo.ErrConflict {
				return nil, fmt.Errorf("failed to revoke lease for takeover: %w", err)
			}
			utils.GetLogger().Info("Session lease taken over",
				zap.String("moderatorId", moderatorID),
				zap.String("oldDeviceId", existing.DeviceID),
				zap.String("newDeviceId", deviceID))
		}
	}

	token, err := utils.GenerateBearerToken(leaseTokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate lease token: %w", err)
	}
	newLease := &models.SessionLease{
		ID:              uuid.New().String(),
		ModeratorID:     moderatorID,
		DeviceID:        deviceID,
		TokenHash:       utils.HashToken(token),
		AcquiredAt:      now,
		ExpiresAt:       now.Add(config.AppConfig.LeaseTTL),
		LastHeartbeatAt: now,
		Status:          models.ExtensionConnected,
	}
	if err := s.Leases.Create(newLease); err != nil {
		return nil, fmt.Errorf("failed to create lease: %w", err)
	}

	s.mirror(ctx, moderatorID, models.ExtensionConnected)
	utils.GetLogger().Info("Session lease acquired",
		zap.String("moderatorId", moderatorID),
		zap.String("deviceId", deviceID),
		zap.String("leaseId", newLease.ID))

	return &LeaseGrant{Lease: newLease, Token: token}, nil
}

func (s *DefaultLeaseService) renew(existing *models.SessionLease, now time.Time) (*LeaseGrant, error) {
	token, err := utils.GenerateBearerToken(leaseTokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate lease token: %w", err)
	}
	expiresAt := now.Add(config.AppConfig.LeaseTTL)
	if err := s.Leases.Renew(existing.ID, utils.HashToken(token), expiresAt, now); err != nil {
		if err == leaseRepo.ErrConflict {
			return nil, ErrLeaseRevoked
		}
		return nil, fmt.Errorf("failed to renew lease: %w", err)
	}
	existing.TokenHash = utils.HashToken(token)
	existing.ExpiresAt = expiresAt
	existing.LastHeartbeatAt = now
	return &LeaseGrant{Lease: existing, Token: token}, nil
}

func (s *DefaultLeaseService) Release(ctx context.Context, leaseID, token string) error {
	le, err := s.holderLease(leaseID, token)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(le.ModeratorID)
	defer unlock()

	if err := s.Leases.Revoke(leaseID, models.LeaseRevokeReleased, time.Now()); err != nil {
		if err == leaseRepo.ErrConflict {
			return nil
		}
		return fmt.Errorf("failed to revoke lease: %w", err)
	}
	s.mirror(ctx, le.ModeratorID, models.ExtensionDisconnected)
	utils.GetLogger().Info("Session lease released",
		zap.String("moderatorId", le.ModeratorID),
		zap.String("leaseId", leaseID))
	return nil
}

func (s *DefaultLeaseService) ForceRelease(ctx context.Context, moderatorID string) error {
	unlock := s.locks.lock(moderatorID)
	defer unlock()

	existing, err := s.Leases.GetUnrevokedByModerator(moderatorID)
	if err != nil {
		return fmt.Errorf("failed to load lease: %w", err)
	}
	if existing == nil {
		return nil
	}
	if err := s.Leases.Revoke(existing.ID, models.LeaseRevokeTakeover, time.Now()); err != nil && err != leaseRepo.ErrConflict {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}
	s.mirror(ctx, moderatorID, models.ExtensionDisconnected)
	utils.GetLogger().Info("Session lease force released",
		zap.String("moderatorId", moderatorID),
		zap.String("leaseId", existing.ID))
	return nil
}

func (s *DefaultLeaseService) ExpireStale(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-config.AppConfig.HeartbeatGrace)
	stale, err := s.Leases.ListExpired(cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired leases: %w", err)
	}

	revoked := 0
	for i := range stale {
		le := &stale[i]
		unlock := s.locks.lock(le.ModeratorID)
		err := s.Leases.Revoke(le.ID, models.LeaseRevokeExpired, time.Now())
		unlock()
		if err != nil {
			if err == leaseRepo.ErrConflict {
				continue
			}
			utils.GetLogger().Error("Failed to revoke stale lease",
				zap.String("leaseId", le.ID), zap.Error(err))
			continue
		}
		revoked++
		s.mirror(ctx, le.ModeratorID, models.ExtensionDisconnected)
	}
	return revoked, nil
}

func (s *DefaultLeaseService) ActiveLease(ctx context.Context, moderatorID string) (*models.SessionLease, error) {
	le, err := s.Leases.GetUnrevokedByModerator(moderatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lease: %w", err)
	}
	if le == nil || !le.Live(time.Now()) {
		return nil, nil
	}
	return le, nil
}

// holderLease loads a lease and verifies the caller presents its token.
func (s *DefaultLeaseService) holderLease(leaseID, token string) (*models.SessionLease, error) {
	le, err := s.Leases.GetByID(leaseID)
	if err != nil {
		if err == leaseRepo.ErrNotFound {
			return nil, ErrLeaseNotFound
		}
		return nil, fmt.Errorf("failed to load lease: %w", err)
	}
	if le == nil {
		return nil, ErrLeaseNotFound
	}
	if le.TokenHash != utils.HashToken(token) {
		return nil, ErrBadLeaseToken
	}
	if le.RevokedAt != nil {
		return nil, ErrLeaseRevoked
	}
	return le, nil
}

package deviceRepo

import (
	"errors"
	"time"

	"medichat/models"
)

// ErrNotFound is returned when no device matches the query.
var ErrNotFound = errors.New("device not found")

// DeviceRepository defines data access for paired extension installs.
type DeviceRepository interface {
	Create(device *models.Device) error
	GetByID(id string) (*models.Device, error)
	GetByTokenHash(tokenHash string) (*models.Device, error)
	// GetActiveByModerator returns the single non-revoked device for the
	// moderator, or nil if none exists.
	GetActiveByModerator(moderatorID string) (*models.Device, error)
	ListByModerator(moderatorID string) ([]models.Device, error)
	// RotateToken swaps the bearer credential hash in place (re-pairing of the
	// same physical install).
	RotateToken(id, tokenHash string, expiresAt time.Time) error
	TouchLastSeen(id string, at time.Time) error
	// Revoke is the soft, audit-preserving state change.
	Revoke(id, reason string, at time.Time) error
	// DeleteCascade hard-deletes the device together with its leases and
	// commands; the whole cascade commits or rolls back as one transaction.
	DeleteCascade(id string) error
}

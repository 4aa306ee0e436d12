package pairingRepo

import (
	"errors"
	"time"

	"medichat/models"
)

var (
	// ErrNotFound is returned when no code matches.
	ErrNotFound = errors.New("pairing code not found")
	// ErrConsumed is returned when the consume CAS loses (already redeemed).
	ErrConsumed = errors.New("pairing code already consumed")
)

// PairingRepository stores short-lived pairing codes.
type PairingRepository interface {
	Create(code *models.PairingCode) error
	// GetByCode returns the code row, or nil if no code matches.
	GetByCode(code string) (*models.PairingCode, error)
	// ExpireUnconsumed invalidates all unused codes for the moderator by
	// forcing their expiry to now. Consumed codes stay untouched for audit.
	ExpireUnconsumed(moderatorID string, now time.Time) error
	// Consume marks the code used exactly once; a second caller gets
	// ErrConsumed.
	Consume(code, deviceID string, now time.Time) error
}

package leaseRepo

import (
	"errors"
	"time"

	"medichat/models"
)

var (
	// ErrNotFound is returned when no lease matches.
	ErrNotFound = errors.New("lease not found")
	// ErrConflict is returned when a guarded update loses its CAS (the lease
	// was revoked or renewed concurrently).
	ErrConflict = errors.New("lease state changed concurrently")
)

// LeaseRepository stores session leases. All guarded updates re-check
// revocation state in the filter so a racing revoke can never be overwritten.
type LeaseRepository interface {
	Create(lease *models.SessionLease) error
	GetByID(id string) (*models.SessionLease, error)
	// GetUnrevokedByModerator returns the moderator's lease that has not been
	// revoked yet, expired or not, or nil if none exists.
	GetUnrevokedByModerator(moderatorID string) (*models.SessionLease, error)
	// Renew installs a fresh token hash and expiry on a live lease.
	Renew(id, tokenHash string, expiresAt, now time.Time) error
	// RecordHeartbeat extends expiry and records the latest remote status.
	RecordHeartbeat(id, status, url, lastError string, expiresAt, now time.Time) error
	// Revoke marks the lease dead with a reason; idempotent callers should
	// treat ErrConflict as already-revoked.
	Revoke(id, reason string, at time.Time) error
	// ListExpired returns unrevoked leases whose expiry (plus grace) lapsed.
	ListExpired(cutoff time.Time) ([]models.SessionLease, error)
}

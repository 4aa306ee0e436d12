package lease

import (
	"context"

	"medichat/models"
)

// LeaseGrant is returned on acquisition; Token is the raw heartbeat
// credential, surfaced exactly once.
type LeaseGrant struct {
	Lease *models.SessionLease `json:"lease"`
	Token string               `json:"token"`
}

// HeartbeatInput is what the extension reports on every heartbeat.
type HeartbeatInput struct {
	Status    string `json:"status" binding:"required"`
	URL       string `json:"url"`
	LastError string `json:"lastError"`
}

// LeaseService grants and polices the per-moderator exclusive session lease,
// and owns the moderator-visible session mirror (tier-1 pause included).
type LeaseService interface {
	// Acquire grants or renews the moderator's lease for the device. With
	// force set, an active lease held by another device is revoked first.
	Acquire(ctx context.Context, moderatorID, deviceID string, force bool) (*LeaseGrant, error)
	// Heartbeat renews the lease and mirrors the reported extension status.
	Heartbeat(ctx context.Context, leaseID, token string, input HeartbeatInput) (*models.SessionLease, error)
	// Release revokes the lease at the device's request.
	Release(ctx context.Context, leaseID, token string) error
	// ForceRelease revokes whatever lease the moderator holds (staff action).
	ForceRelease(ctx context.Context, moderatorID string) error
	// ExpireStale revokes leases whose expiry plus grace lapsed; returns how
	// many were revoked.
	ExpireStale(ctx context.Context) (int, error)
	// ActiveLease returns the moderator's live lease, or nil.
	ActiveLease(ctx context.Context, moderatorID string) (*models.SessionLease, error)

	// Session returns the moderator-visible session record.
	Session(ctx context.Context, moderatorID string) (*models.ModeratorSession, error)
	// PauseSending sets the tier-1 pause (manual, staff-initiated).
	PauseSending(ctx context.Context, moderatorID, pausedBy string) error
	// ResumeSending clears a manual tier-1 pause.
	ResumeSending(ctx context.Context, moderatorID string) error
}

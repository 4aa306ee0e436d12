// File: medichat/models/lease.go
package models

import "time"

// Extension status values reported by the paired device on heartbeat.
const (
	ExtensionConnected    = "connected"
	ExtensionNeedsAuth    = "needs_authentication"
	ExtensionNoNetwork    = "no_network"
	ExtensionDisconnected = "disconnected"
)

// Lease revocation reasons.
const (
	LeaseRevokeReleased = "released"
	LeaseRevokeTakeover = "takeover"
	LeaseRevokeExpired  = "expired"
	LeaseRevokeCascade  = "device_deleted"
)

// SessionLease is the time-boxed exclusive right for one device to execute
// commands on behalf of one moderator. At most one non-revoked, non-expired
// lease exists per moderator at any instant.
type SessionLease struct {
	ID              string     `bson:"id" json:"id"`
	ModeratorID     string     `bson:"moderatorId" json:"moderatorId"`
	DeviceID        string     `bson:"deviceId" json:"deviceId"`
	TokenHash       string     `bson:"tokenHash" json:"-"`
	AcquiredAt      time.Time  `bson:"acquiredAt" json:"acquiredAt"`
	ExpiresAt       time.Time  `bson:"expiresAt" json:"expiresAt"`
	LastHeartbeatAt time.Time  `bson:"lastHeartbeatAt" json:"lastHeartbeatAt"`
	Status          string     `bson:"status" json:"status"`
	LastURL         string     `bson:"lastUrl,omitempty" json:"lastUrl,omitempty"`
	LastError       string     `bson:"lastError,omitempty" json:"lastError,omitempty"`
	RevokedAt       *time.Time `bson:"revokedAt,omitempty" json:"revokedAt,omitempty"`
	RevokeReason    string     `bson:"revokeReason,omitempty" json:"revokeReason,omitempty"`
}

// Live reports whether the lease is neither revoked nor expired at now.
func (l *SessionLease) Live(now time.Time) bool {
	return l.RevokedAt == nil && now.Before(l.ExpiresAt)
}

// InGrace reports whether the lease is expired but still within the heartbeat
// grace window, during which a late heartbeat may revive it.
func (l *SessionLease) InGrace(now time.Time, grace time.Duration) bool {
	return l.RevokedAt == nil && !now.Before(l.ExpiresAt) && now.Before(l.ExpiresAt.Add(grace))
}

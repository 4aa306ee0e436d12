// File: medichat/models/device.go
package models

import "time"

// Device identifies one physical extension installation paired to a moderator.
// Revoked devices are kept as immutable audit history; at most one active
// (non-revoked) device may exist per moderator.
type Device struct {
	ID               string     `bson:"id" json:"id"`
	ModeratorID      string     `bson:"moderatorId" json:"moderatorId"`
	Label            string     `bson:"label" json:"label"`
	Fingerprint      string     `bson:"fingerprint" json:"fingerprint"`
	TokenHash        string     `bson:"tokenHash" json:"-"`
	TokenExpiresAt   time.Time  `bson:"tokenExpiresAt" json:"tokenExpiresAt"`
	ExtensionVersion string     `bson:"extensionVersion" json:"extensionVersion"`
	Browser          string     `bson:"browser" json:"browser"`
	IP               string     `bson:"ip" json:"ip"`
	PushToken        string     `bson:"pushToken" json:"-"`
	LastSeenAt       time.Time  `bson:"lastSeenAt" json:"lastSeenAt"`
	RevokedAt        *time.Time `bson:"revokedAt,omitempty" json:"revokedAt,omitempty"`
	RevokeReason     string     `bson:"revokeReason,omitempty" json:"revokeReason,omitempty"`
	CreatedAt        time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// Active reports whether the device is still authorized to pair and lease.
func (d *Device) Active() bool {
	return d.RevokedAt == nil
}

// File: medichat/models/pairing_code.go
package models

import "time"

// PairingCode is a short-lived, single-use numeric code binding a moderator's
// pairing intent to one extension install. Issuing a new code invalidates any
// prior unused codes for the same moderator.
type PairingCode struct {
	Code        string     `bson:"code" json:"code"`
	ModeratorID string     `bson:"moderatorId" json:"moderatorId"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	ExpiresAt   time.Time  `bson:"expiresAt" json:"expiresAt"`
	ConsumedBy  string     `bson:"consumedBy,omitempty" json:"consumedBy,omitempty"`
	ConsumedAt  *time.Time `bson:"consumedAt,omitempty" json:"consumedAt,omitempty"`
}

// Consumed reports whether the code has already been redeemed.
func (p *PairingCode) Consumed() bool {
	return p.ConsumedAt != nil
}

// Expired reports whether the code lapsed without being redeemed.
func (p *PairingCode) Expired(now time.Time) bool {
	return !p.Consumed() && now.After(p.ExpiresAt)
}

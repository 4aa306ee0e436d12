// File: medichat/models/moderator.go
package models

import "time"

// Moderator is a clinic staff account (the tenant). All devices, leases,
// commands and pauses are scoped to one moderator.
type Moderator struct {
	ID           string    `bson:"id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name" json:"name"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	TokenHash    string    `bson:"tokenHash" json:"-"`
	PushToken    string    `bson:"pushToken" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

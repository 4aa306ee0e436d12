// File: medichat/models/moderator_session.go
package models

import "time"

// ModeratorSession is the moderator-visible mirror of the extension state plus
// the tier-1 (global) pause flag. The pause gate is consulted before any
// command is created for the moderator.
type ModeratorSession struct {
	ModeratorID     string     `bson:"moderatorId" json:"moderatorId"`
	Paused          bool       `bson:"paused" json:"paused"`
	PauseReason     string     `bson:"pauseReason,omitempty" json:"pauseReason,omitempty"`
	PausedBy        string     `bson:"pausedBy,omitempty" json:"pausedBy,omitempty"`
	PausedAt        *time.Time `bson:"pausedAt,omitempty" json:"pausedAt,omitempty"`
	Resumable       bool       `bson:"resumable" json:"resumable"`
	ExtensionStatus string     `bson:"extensionStatus" json:"extensionStatus"`
	UpdatedAt       time.Time  `bson:"updatedAt" json:"updatedAt"`
}

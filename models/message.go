// File: medichat/models/message.go
package models

import "time"

// Message statuses. The message entity is owned by the clinic domain; this
// core only reads and writes the delivery-related fields below.
const (
	MessageQueued  = "queued"
	MessageSending = "sending"
	MessageSent    = "sent"
	MessageFailed  = "failed"
)

// Pause reasons, most specific first. Connectivity-caused pauses are cleared
// automatically when the extension reconnects; manual and number-check pauses
// are not.
const (
	PauseReasonManual       = "manual"
	PauseReasonNumberCheck  = "number_check"
	PauseReasonNeedsAuth    = "needs_authentication"
	PauseReasonNoNetwork    = "no_network"
	PauseReasonDisconnected = "extension_disconnected"
)

// Message carries the fields of the domain message this core touches.
type Message struct {
	ID                string     `bson:"id" json:"id"`
	ModeratorID       string     `bson:"moderatorId" json:"moderatorId"`
	Phone             string     `bson:"phone" json:"phone"`
	Body              string     `bson:"body" json:"body"`
	Status            string     `bson:"status" json:"status"`
	IsPaused          bool       `bson:"isPaused" json:"isPaused"`
	PauseReason       string     `bson:"pauseReason,omitempty" json:"pauseReason,omitempty"`
	PausedAt          *time.Time `bson:"pausedAt,omitempty" json:"pausedAt,omitempty"`
	InFlightCommandID string     `bson:"inFlightCommandId,omitempty" json:"inFlightCommandId,omitempty"`
	Attempts          int        `bson:"attempts" json:"attempts"`
	LastError         string     `bson:"lastError,omitempty" json:"lastError,omitempty"`
	SentAt            *time.Time `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	HasAccount        *bool      `bson:"hasAccount,omitempty" json:"hasAccount,omitempty"`
	UpdatedAt         time.Time  `bson:"updatedAt" json:"updatedAt"`
}

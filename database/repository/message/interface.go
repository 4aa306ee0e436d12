package messageRepo

import (
	"errors"
	"time"

	"medichat/models"
)

// ErrNotFound is returned when no message matches.
var ErrNotFound = errors.New("message not found")

// MessageRepository covers the delivery-related fields of the externally
// owned message entity. Reads always go to the store so the dispatch wait
// loop observes completion writes promptly.
type MessageRepository interface {
	GetByID(id string) (*models.Message, error)
	// MarkSending moves the message into sending and records the in-flight
	// command back-reference, incrementing the attempt counter.
	MarkSending(id, commandID string, at time.Time) error
	// MarkSentGroundTruth unconditionally marks the message sent: the remote
	// network is authoritative for delivery, regardless of local drift.
	MarkSentGroundTruth(id string, at time.Time) error
	// MarkFailed terminally fails a sending message. Manual retry only.
	MarkFailed(id, reason string, at time.Time) error
	// Requeue clears the in-flight back-reference and returns the message to
	// queued so a later attempt can pick it up.
	Requeue(id string, at time.Time) error
	// PauseByReason pauses every unpaused, undelivered message of the
	// moderator with the given reason.
	PauseByReason(moderatorID, reason string, at time.Time) (int64, error)
	// UnpauseByReason clears pauses only where the pause reason matches one of
	// the given reasons; unrelated pauses are never touched.
	UnpauseByReason(moderatorID string, reasons []string, at time.Time) (int64, error)
	// ListSendingWithCommand returns messages stuck in sending that carry an
	// in-flight command back-reference.
	ListSendingWithCommand() ([]models.Message, error)
	// FanOutHasAccount writes a number-check verdict to every message and
	// patient record sharing the normalized phone number, inside one
	// transaction: all updates commit or none do.
	FanOutHasAccount(phone string, hasAccount bool, at time.Time) (int64, error)
}

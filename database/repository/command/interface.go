package commandRepo

import (
	"errors"
	"time"

	"medichat/models"
)

var (
	// ErrNotFound is returned when no command matches.
	ErrNotFound = errors.New("command not found")
	// ErrInvalidTransition is returned when a guarded state transition loses
	// its CAS: the command was not in an allowed source state.
	ErrInvalidTransition = errors.New("invalid command state transition")
)

// CommandRepository persists the per-moderator work queue. Every transition is
// a compare-and-set on the current status so two writers can never move the
// same command into two different states.
type CommandRepository interface {
	Create(cmd *models.Command) error
	GetByID(id string) (*models.Command, error)
	// ListPending returns Pending and Sent commands that have not expired,
	// priority ascending then createdAt ascending.
	ListPending(moderatorID string, limit int64, now time.Time) ([]models.Command, error)
	MarkSent(id string, at time.Time) error
	Acknowledge(id string, at time.Time) error
	Complete(id, resultStatus, result string, at time.Time) error
	Fail(id, reason string, at time.Time) error
	Expire(id, result string, at time.Time) error

	// GetActiveByMessage returns the newest non-terminal command targeting the
	// message, or nil.
	GetActiveByMessage(messageID string) (*models.Command, error)
	// ListActiveByMessage returns all non-terminal commands targeting the
	// message, newest first.
	ListActiveByMessage(messageID string) ([]models.Command, error)
	// GetRecentSuccessByMessage returns a command that completed successfully
	// for the message at or after since, or nil.
	GetRecentSuccessByMessage(messageID string, since time.Time) (*models.Command, error)
	// ListAckTimedOut returns Acked commands whose ack predates cutoff.
	ListAckTimedOut(cutoff time.Time) ([]models.Command, error)
	// ListExpiredNonTerminal returns non-terminal commands past their expiry.
	ListExpiredNonTerminal(now time.Time) ([]models.Command, error)
	// CountActiveByType counts non-terminal commands of a type for a moderator.
	CountActiveByType(moderatorID, cmdType string) (int64, error)
	// ListMessageIDsWithActive returns the distinct message ids that currently
	// have at least one non-terminal command attached.
	ListMessageIDsWithActive() ([]string, error)
}

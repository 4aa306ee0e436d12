// File: medichat/models/command.go
package models

import "time"

// Command lifecycle states. Pending -> Sent -> Acked -> Completed|Failed, with
// any non-terminal state expiring to Expired on timeout. Terminal commands are
// never mutated again.
const (
	CommandPending   = "pending"
	CommandSent      = "sent"
	CommandAcked     = "acked"
	CommandCompleted = "completed"
	CommandFailed    = "failed"
	CommandExpired   = "expired"
)

// Command types executed by the extension.
const (
	CommandTypeSendMessage = "send_message"
	CommandTypeCheckNumber = "check_number"
)

// Result statuses reported by the extension (or synthesized on expiry).
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultTimeout = "timeout"
)

// DefaultCommandPriority is used when callers do not care about ordering.
// Lower values are dispatched first.
const DefaultCommandPriority = 100

// Command is one unit of work addressed to whichever device holds the
// moderator's lease.
type Command struct {
	ID           string     `bson:"id" json:"id"`
	ModeratorID  string     `bson:"moderatorId" json:"moderatorId"`
	Type         string     `bson:"type" json:"type"`
	Payload      string     `bson:"payload" json:"payload"`
	MessageID    string     `bson:"messageId,omitempty" json:"messageId,omitempty"`
	Priority     int        `bson:"priority" json:"priority"`
	Status       string     `bson:"status" json:"status"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"`
	ExpiresAt    time.Time  `bson:"expiresAt" json:"expiresAt"`
	SentAt       *time.Time `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	AckedAt      *time.Time `bson:"ackedAt,omitempty" json:"ackedAt,omitempty"`
	CompletedAt  *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	ResultStatus string     `bson:"resultStatus,omitempty" json:"resultStatus,omitempty"`
	Result       string     `bson:"result,omitempty" json:"result,omitempty"`
}

// Terminal reports whether the command has reached a final state.
func (c *Command) Terminal() bool {
	switch c.Status {
	case CommandCompleted, CommandFailed, CommandExpired:
		return true
	}
	return false
}

// ActiveCommandStatuses are the states in which a command still occupies its
// linked message.
var ActiveCommandStatuses = []string{CommandPending, CommandSent, CommandAcked}

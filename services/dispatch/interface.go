package dispatch

import (
	"context"
	"time"

	"medichat/models"
)

// Send outcome codes returned to staff callers. Only CodeSent and CodeFailed
// are final; every other code means the message is still queued or in flight.
const (
	CodeSent           = "sent"
	CodeWaiting        = "waiting"
	CodePaused         = "paused"
	CodePendingAuth    = "pending_authentication"
	CodePendingNetwork = "pending_network"
	CodeFailed         = "failed"
)

// SendResult describes the outcome of a send attempt.
type SendResult struct {
	Code      string `json:"code"`
	MessageID string `json:"messageId"`
	CommandID string `json:"commandId,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// ExecuteInput describes a command to be placed on the moderator's queue.
type ExecuteInput struct {
	Type      string
	Payload   string
	MessageID string
	Priority  int
	// Timeout bounds the command's own lifetime; zero uses the configured
	// command timeout.
	Timeout time.Duration
}

// DispatchService creates commands against the moderator's active lease and
// runs the staff-facing send orchestration on top of that.
type DispatchService interface {
	// Execute verifies the moderator has a live lease, enqueues the command,
	// and nudges the leased device. It does not wait for execution.
	Execute(ctx context.Context, moderatorID string, input ExecuteInput) (*models.Command, error)
	// Await blocks until the command reaches a terminal state or the wait
	// window lapses. Cancelling the context abandons the wait, never the
	// command.
	Await(ctx context.Context, commandID string) (*models.Command, error)
	// SendMessage runs the full send pipeline for one queued message: pause
	// gate, duplicate suppression, lease check, command dispatch, and result
	// mapping.
	SendMessage(ctx context.Context, moderatorID, messageID string) (*SendResult, error)
}

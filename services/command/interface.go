package command

import (
	"context"

	"medichat/models"
)

// CompletionInput is the extension's execution report for a command.
type CompletionInput struct {
	ResultStatus string `json:"resultStatus" binding:"required"`
	Result       string `json:"result"`
}

// CommandService is the extension-facing side of the per-moderator work
// queue: polling, acknowledgement, and completion with its ground-truth
// effects on the linked message.
type CommandService interface {
	// Poll returns the moderator's executable commands in dispatch order and
	// marks freshly delivered ones as sent. Commands already sent but not yet
	// acknowledged are redelivered.
	Poll(ctx context.Context, moderatorID string, limit int64) ([]models.Command, error)
	// Acknowledge records that the extension has started executing.
	Acknowledge(ctx context.Context, moderatorID, commandID string) error
	// Complete records the execution result. A successful send_message result
	// marks the linked message sent regardless of its local state; the remote
	// network already delivered it.
	Complete(ctx context.Context, moderatorID, commandID string, input CompletionInput) (*models.Command, error)
	// Fail records a terminal execution failure reported by the extension.
	Fail(ctx context.Context, moderatorID, commandID, reason string) error
	// Get returns one command owned by the moderator.
	Get(ctx context.Context, moderatorID, commandID string) (*models.Command, error)
}

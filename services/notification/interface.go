package notification

import (
	"context"

	"medichat/models"
)

// StatusUpdate is the payload broadcast to a moderator's UI subscribers when
// the extension session changes.
type StatusUpdate struct {
	Status      string `json:"status"`
	Paused      bool   `json:"paused"`
	PauseReason string `json:"pauseReason,omitempty"`
	Resumable   bool   `json:"resumable"`
}

// NotificationService delivers best-effort pushes. Failures are logged and
// degrade to the extension's poll loop; they never fail the caller's
// operation.
type NotificationService interface {
	// PushCommand tells the leased device to execute a command now rather
	// than on its next poll.
	PushCommand(ctx context.Context, moderatorID string, cmd *models.Command) error
	// PushStatus broadcasts a session/extension status change to the
	// moderator's UI-facing subscribers.
	PushStatus(ctx context.Context, moderatorID string, update StatusUpdate) error
}

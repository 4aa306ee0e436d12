package modsessionRepo

import (
	"time"

	"medichat/models"
)

// ModeratorSessionRepository stores the per-moderator mirror of extension
// state and the tier-1 pause flag. All writes are upserts keyed by moderator
// id; a moderator that never paused still has an implicit unpaused session.
type ModeratorSessionRepository interface {
	Get(moderatorID string) (*models.ModeratorSession, error)
	// SetPause sets the tier-1 pause if the moderator is not already paused.
	// Returns whether the pause was applied; an existing pause with a more
	// specific reason is never overwritten.
	SetPause(moderatorID, reason, pausedBy string, resumable bool, at time.Time) (bool, error)
	// ClearPause lifts the pause only if the current reason is one of the
	// given reasons; an empty list clears unconditionally. Returns whether a
	// pause was actually cleared.
	ClearPause(moderatorID string, reasons []string, at time.Time) (bool, error)
	// ListPausedByReason returns every session currently paused with the
	// given reason.
	ListPausedByReason(reason string) ([]models.ModeratorSession, error)
	// MirrorStatus records the last-known extension status.
	MirrorStatus(moderatorID, status string, at time.Time) error
}

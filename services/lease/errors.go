package lease

import "errors"

var (
	// ErrDeviceBusy means another device holds a live lease and force was not set.
	ErrDeviceBusy = errors.New("another device holds an active session lease")
	// ErrDeviceInvalid means the device is unknown, revoked, or not the moderator's.
	ErrDeviceInvalid = errors.New("device is not valid for this moderator")
	// ErrLeaseNotFound means no lease exists under the given id.
	ErrLeaseNotFound = errors.New("lease not found")
	// ErrLeaseRevoked means the lease was revoked and cannot be renewed.
	ErrLeaseRevoked = errors.New("lease has been revoked")
	// ErrLeaseExpired means the lease lapsed past its grace window.
	ErrLeaseExpired = errors.New("lease has expired")
	// ErrBadLeaseToken means the presented lease token does not match.
	ErrBadLeaseToken = errors.New("lease token mismatch")
	// ErrNotPaused means a resume was requested but no manual pause is set.
	ErrNotPaused = errors.New("sending is not paused")
)

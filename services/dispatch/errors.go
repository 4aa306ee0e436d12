package dispatch

import "errors"

var (
	// ErrMessageNotFound covers unknown message ids and messages owned by a
	// different moderator.
	ErrMessageNotFound = errors.New("message not found")
	// ErrNoDevice means the moderator has no paired device at all.
	ErrNoDevice = errors.New("no device paired")
	// ErrNoLease means a device is paired but holds no live session lease.
	ErrNoLease = errors.New("no active session lease")
	// ErrPendingAuth means the extension is connected but logged out of the
	// remote network.
	ErrPendingAuth = errors.New("extension requires authentication")
	// ErrPendingNetwork means the extension cannot reach the remote network.
	ErrPendingNetwork = errors.New("extension has no network connectivity")
	// ErrWaitTimeout means the wait window lapsed with the command still in
	// flight. The command itself keeps running until its own expiry.
	ErrWaitTimeout = errors.New("timed out waiting for command completion")
	// ErrWaitAborted means the caller's context was cancelled while waiting.
	ErrWaitAborted = errors.New("wait abandoned by caller")
)

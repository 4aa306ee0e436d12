package pairing

import "errors"

var (
	// ErrDevicePaired signals a pairing start while an active device exists.
	ErrDevicePaired = errors.New("an active device is already paired for this moderator")
	// ErrCodeInvalid covers unknown and expired codes alike so callers cannot
	// probe for valid codes.
	ErrCodeInvalid = errors.New("pairing code is invalid or expired")
	// ErrCodeUsed distinguishes an already-redeemed code from an unknown one.
	ErrCodeUsed = errors.New("pairing code was already used")
	// ErrDeviceConflict signals a completion attempt while a different device
	// is active for the moderator.
	ErrDeviceConflict = errors.New("a different device is already paired for this moderator")
	// ErrDeviceNotFound signals revoke/delete of an unknown device.
	ErrDeviceNotFound = errors.New("device not found")
)

package pairing

import (
	"context"

	"medichat/models"
)

// CompletePairingInput carries the extension's install metadata presented
// alongside the pairing code.
type CompletePairingInput struct {
	Fingerprint      string `json:"fingerprint" binding:"required"`
	Label            string `json:"label"`
	ExtensionVersion string `json:"extensionVersion"`
	Browser          string `json:"browser"`
	IP               string `json:"-"`
	PushToken        string `json:"pushToken"`
}

// PairResult is returned exactly once on successful pairing; Token is the raw
// bearer credential and is never persisted.
type PairResult struct {
	Device *models.Device `json:"device"`
	Token  string         `json:"token"`
}

// PairingService manages the binding between moderators and extension installs.
type PairingService interface {
	// StartPairing issues a fresh numeric code for the moderator, invalidating
	// any prior unused codes. Fails if an active device is already paired.
	StartPairing(ctx context.Context, moderatorID string) (*models.PairingCode, error)
	// CompletePairing redeems a code, creating or re-crediting the device.
	CompletePairing(ctx context.Context, code string, input CompletePairingInput) (*PairResult, error)
	// RevokeDevice soft-revokes the moderator's device, keeping it as audit
	// history.
	RevokeDevice(ctx context.Context, moderatorID, deviceID, reason string) error
	// DeleteDevice hard-deletes the moderator's device and cascades to its
	// leases and commands; all-or-nothing.
	DeleteDevice(ctx context.Context, moderatorID, deviceID string) error
	ListDevices(ctx context.Context, moderatorID string) ([]models.Device, error)
}

package numbercheck

import "context"

// CheckResult is the verdict for one phone number.
type CheckResult struct {
	Phone      string `json:"phone"`
	HasAccount bool   `json:"hasAccount"`
	// Cached is true when the verdict came from the registry without
	// touching the extension.
	Cached bool `json:"cached"`
}

// NumberCheckService verifies whether a phone number has an account on the
// remote network, interrupting normal sending while the check runs.
type NumberCheckService interface {
	// Check resolves the verdict for the phone, consulting the cache first
	// and dispatching a check_number command on a miss. The moderator's
	// sending is paused for the duration of any live check.
	Check(ctx context.Context, moderatorID, requestedBy, phone string) (*CheckResult, error)
	// Cached returns the cache verdict without dispatching, or nil on miss.
	Cached(ctx context.Context, phone string) (*CheckResult, error)
}

package phoneRepo

import (
	"context"
	"time"

	"medichat/models"
)

// PhoneRegistry caches number-check verdicts. Entries carry their own TTL so
// positive and negative results can age differently.
type PhoneRegistry interface {
	// Get returns the cached entry for a normalized phone, or nil on miss.
	Get(ctx context.Context, phone string) (*models.PhoneEntry, error)
	// Put stores or refreshes an entry with the given TTL, incrementing the
	// validation counter of any existing entry.
	Put(ctx context.Context, entry *models.PhoneEntry, ttl time.Duration) error
}

package phoneRepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"medichat/models"

	"github.com/go-redis/redis/v8"
)

// PhoneKeyPrefix namespaces registry entries in the phone cache DB.
const PhoneKeyPrefix = "phone:"

// RedisPhoneRegistry implements PhoneRegistry on Redis.
type RedisPhoneRegistry struct {
	client *redis.Client
}

// NewRedisPhoneRegistry creates a PhoneRegistry using the given Redis client.
func NewRedisPhoneRegistry(client *redis.Client) PhoneRegistry {
	return &RedisPhoneRegistry{client: client}
}

func (r *RedisPhoneRegistry) Get(ctx context.Context, phone string) (*models.PhoneEntry, error) {
	data, err := r.client.Get(ctx, PhoneKeyPrefix+phone).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch phone entry %s: %w", phone, err)
	}
	var entry models.PhoneEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal phone entry %s: %w", phone, err)
	}
	return &entry, nil
}

func (r *RedisPhoneRegistry) Put(ctx context.Context, entry *models.PhoneEntry, ttl time.Duration) error {
	existing, err := r.Get(ctx, entry.Phone)
	if err == nil && existing != nil {
		entry.CheckCount = existing.CheckCount + 1
	} else if entry.CheckCount == 0 {
		entry.CheckCount = 1
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal phone entry %s: %w", entry.Phone, err)
	}
	if err := r.client.Set(ctx, PhoneKeyPrefix+entry.Phone, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store phone entry %s: %w", entry.Phone, err)
	}
	return nil
}

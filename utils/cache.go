// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"medichat/config"

	"github.com/go-redis/redis/v8"
)

var (
	// CacheClient is the generic cache client, also used for status pub/sub.
	CacheClient *redis.Client
	// PhoneCacheClient is the dedicated client for the phone-registry cache.
	PhoneCacheClient *redis.Client
)

// InitCache initializes the generic Redis cache client.
func InitCache() {
	CacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := CacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Cache): %v", err)
	}
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		InitCache()
	}
	return CacheClient
}

// InitPhoneCache initializes the Redis client for the phone-registry cache.
func InitPhoneCache() {
	PhoneCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisPhoneDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := PhoneCacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Phone Cache): %v", err)
	}
}

// GetPhoneCacheClient returns the Redis client for the phone-registry cache.
func GetPhoneCacheClient() *redis.Client {
	if PhoneCacheClient == nil {
		InitPhoneCache()
	}
	return PhoneCacheClient
}

// InitRedis initializes all Redis clients in one shot.
func InitRedis() {
	InitCache()
	InitPhoneCache()
}

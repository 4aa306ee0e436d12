package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisPhoneDB  int    `mapstructure:"REDIS_PHONE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Firebase push channel.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`

	// Extension protocol tuning. All durations so deployments can trade
	// responsiveness for load without a rebuild.
	PairingCodeTTL      time.Duration `mapstructure:"PAIRING_CODE_TTL"`
	LeaseTTL            time.Duration `mapstructure:"LEASE_TTL"`
	HeartbeatWindow     time.Duration `mapstructure:"HEARTBEAT_WINDOW"`
	HeartbeatGrace      time.Duration `mapstructure:"HEARTBEAT_GRACE"`
	CommandAckTimeout   time.Duration `mapstructure:"COMMAND_ACK_TIMEOUT"`
	CommandTimeout      time.Duration `mapstructure:"COMMAND_TIMEOUT"`
	DispatchPollEvery   time.Duration `mapstructure:"DISPATCH_POLL_EVERY"`
	DispatchWaitTimeout time.Duration `mapstructure:"DISPATCH_WAIT_TIMEOUT"`
	SweepEvery          time.Duration `mapstructure:"SWEEP_EVERY"`
	RecentSuccessWindow time.Duration `mapstructure:"RECENT_SUCCESS_WINDOW"`
	PhoneCachePosTTL    time.Duration `mapstructure:"PHONE_CACHE_POS_TTL"`
	PhoneCacheNegTTL    time.Duration `mapstructure:"PHONE_CACHE_NEG_TTL"`
	MessageMaxAttempts  int           `mapstructure:"MESSAGE_MAX_ATTEMPTS"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_PHONE_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "medichat")
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "serviceAccountKey.json")

	viper.SetDefault("PAIRING_CODE_TTL", 5*time.Minute)
	viper.SetDefault("LEASE_TTL", 2*time.Minute)
	viper.SetDefault("HEARTBEAT_WINDOW", 2*time.Minute)
	viper.SetDefault("HEARTBEAT_GRACE", 30*time.Second)
	viper.SetDefault("COMMAND_ACK_TIMEOUT", 45*time.Second)
	viper.SetDefault("COMMAND_TIMEOUT", 3*time.Minute)
	viper.SetDefault("DISPATCH_POLL_EVERY", 500*time.Millisecond)
	viper.SetDefault("DISPATCH_WAIT_TIMEOUT", 2*time.Minute)
	viper.SetDefault("SWEEP_EVERY", 30*time.Second)
	viper.SetDefault("RECENT_SUCCESS_WINDOW", 30*time.Second)
	viper.SetDefault("PHONE_CACHE_POS_TTL", 30*24*time.Hour)
	viper.SetDefault("PHONE_CACHE_NEG_TTL", 7*24*time.Hour)
	viper.SetDefault("MESSAGE_MAX_ATTEMPTS", 3)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the Redis address for the force-logout broadcaster; empty disables Redis fan-out.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "asset-console-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "asset-console-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// CredentialTokenTTL is the credential token lifetime (e.g. "720h" for 30 days).
	CredentialTokenTTL string `mapstructure:"CREDENTIAL_TOKEN_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// LockoutThreshold is the number of failed logins in one cycle that locks the account; default 5.
	LockoutThreshold int `mapstructure:"LOCKOUT_THRESHOLD"`
	// LockoutWindow is how long a locked account stays locked (e.g. "15m").
	LockoutWindow string `mapstructure:"LOCKOUT_WINDOW"`
	// SessionTimeoutDays is the default session lifetime in days when the settings row has no value.
	SessionTimeoutDays int `mapstructure:"SESSION_TIMEOUT_DAYS"`
	// MaxActiveSessions is the default per-user active session cap when the settings row has no value.
	MaxActiveSessions int `mapstructure:"MAX_ACTIVE_SESSIONS"`
	// CleanupIntervalHours is how often the session sweeper runs; default 24.
	CleanupIntervalHours int `mapstructure:"CLEANUP_INTERVAL_HOURS"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// Security events (optional). When Kafka brokers are set, the server emits security events to Kafka.
	// SecurityKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	SecurityKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// SecurityKafkaTopic is the Kafka topic for security events (default asset-console-security).
	SecurityKafkaTopic string `mapstructure:"SECURITY_KAFKA_TOPIC"`
	// OTLPEndpoint is the optional OTLP gRPC endpoint for exporting security events as log records.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`

	// Worker-only: Loki URL for the security-event worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the security-event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_ISSUER", "asset-console-auth")
	v.SetDefault("JWT_AUDIENCE", "asset-console-api")
	v.SetDefault("CREDENTIAL_TOKEN_TTL", "720h") // 30d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("LOCKOUT_THRESHOLD", 5)
	v.SetDefault("LOCKOUT_WINDOW", "15m")
	v.SetDefault("SESSION_TIMEOUT_DAYS", 30)
	v.SetDefault("MAX_ACTIVE_SESSIONS", 5)
	v.SetDefault("CLEANUP_INTERVAL_HOURS", 24)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("SECURITY_KAFKA_TOPIC", "asset-console-security")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "asset-console-security-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.LockoutThreshold <= 0 {
		return nil, errors.New("config: LOCKOUT_THRESHOLD must be positive")
	}
	if cfg.SessionTimeoutDays <= 0 {
		return nil, errors.New("config: SESSION_TIMEOUT_DAYS must be positive")
	}
	if cfg.MaxActiveSessions <= 0 {
		return nil, errors.New("config: MAX_ACTIVE_SESSIONS must be positive")
	}

	return &cfg, nil
}

// TokenTTL parses CredentialTokenTTL as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.CredentialTokenTTL)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// LockWindow parses LockoutWindow as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) LockWindow() time.Duration {
	d, err := time.ParseDuration(c.LockoutWindow)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// CleanupInterval returns the sweeper interval. Returns 24h when CleanupIntervalHours is not positive.
func (c *Config) CleanupInterval() time.Duration {
	if c.CleanupIntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.CleanupIntervalHours) * time.Hour
}

// SecurityKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event streaming is enabled (non-empty list) and to create the producer.
func (c *Config) SecurityKafkaBrokersList() []string {
	if c == nil || c.SecurityKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.SecurityKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

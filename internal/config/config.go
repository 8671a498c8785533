package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache" validate:"required"`
	Events    EventsConfig    `mapstructure:"events" validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig selects and configures the task store.
// URL is ignored by the memory driver.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" validate:"required,oneof=postgres sqlite memory"`
	URL          string `mapstructure:"url" validate:"required_unless=Driver memory"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	Issuer               string `mapstructure:"issuer" validate:"required"`
	Audience             string `mapstructure:"audience" validate:"required"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lt=44640"`
	BCryptCost           int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
}

// TokenLifetime returns the access token lifetime as a duration.
func (a AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(a.TokenLifetimeMinutes) * time.Minute
}

// CacheConfig configures the read-through cache in front of task listing.
type CacheConfig struct {
	Backend   string        `mapstructure:"backend" validate:"required,oneof=memory redis none"`
	RedisAddr string        `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	TTL       time.Duration `mapstructure:"ttl" validate:"gt=0"`
	Capacity  int           `mapstructure:"capacity" validate:"gt=0"`
}

// EventsConfig configures where TaskCreated notifications are published.
type EventsConfig struct {
	Broker    string `mapstructure:"broker" validate:"required,oneof=asynq memory"`
	RedisAddr string `mapstructure:"redis_addr" validate:"required_if=Broker asynq"`
	Queue     string `mapstructure:"queue" validate:"required"`
	QueueSize int    `mapstructure:"queue_size" validate:"gt=0"`
	Workers   int    `mapstructure:"workers" validate:"gt=0"`
}

// RateLimitConfig throttles the unauthenticated auth endpoints per client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int     `mapstructure:"burst" validate:"gt=0"`
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. TASKS_SERVER_PORT or TASKS_AUTH_JWT_SECRET.
const EnvPrefix = "TASKS"

// every key must be registered so AutomaticEnv can bind it during Unmarshal
var defaults = map[string]any{
	"server.port":                 8080,
	"server.log_level":            "info",
	"server.shutdown_timeout":     15 * time.Second,
	"database.driver":             "postgres",
	"database.url":                "",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     25,
	"database.auto_migrate":       false,
	"auth.jwt_secret":             "",
	"auth.issuer":                 "taskmanager-api",
	"auth.audience":               "taskmanager-clients",
	"auth.token_lifetime_minutes": 60,
	"auth.bcrypt_cost":            10,
	"cache.backend":               "memory",
	"cache.redis_addr":            "",
	"cache.ttl":                   5 * time.Minute,
	"cache.capacity":              10000,
	"events.broker":               "memory",
	"events.redis_addr":           "",
	"events.queue":                "task_events",
	"events.queue_size":           256,
	"events.workers":              2,

	"rate_limit.requests_per_second": 5.0,
	"rate_limit.burst":               10,
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

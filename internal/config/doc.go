// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config.yaml. Every setting can
// be overridden with a TASKS_-prefixed variable.
package config

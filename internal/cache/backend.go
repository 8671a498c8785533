package cache

import (
	"context"
	"time"
)

// Backend is a key/value store with string keys, byte values and absolute
// per-entry expiry.
type Backend interface {
	// Get returns the value for key and whether an unexpired entry exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key until ttl has elapsed.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Disabled is a Backend that never stores anything; every read is a miss.
type Disabled struct{}

// Get implements Backend.
func (Disabled) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set implements Backend.
func (Disabled) Set(context.Context, string, []byte, time.Duration) error { return nil }

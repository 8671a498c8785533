package cache

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

const (
	defaultShards             = 64
	defaultEvictionPercentage = 10
)

// entry pairs a value with the absolute time it stops being served.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// SturdycBackend is an in-process Backend built on a sturdyc client.
// sturdyc applies one TTL to the whole client, so each entry also records its
// own deadline, checked on every read against the injected clock.
type SturdycBackend struct {
	client *sturdyc.Client[entry]
	now    func() time.Time
}

// SturdycOption configures a SturdycBackend.
type SturdycOption func(*SturdycBackend)

// WithClock replaces the clock used for expiry checks.
func WithClock(now func() time.Time) SturdycOption {
	return func(b *SturdycBackend) { b.now = now }
}

// NewSturdycBackend creates an in-process backend holding at most capacity
// entries. maxTTL bounds how long sturdyc itself retains an entry and should
// be at least the longest TTL passed to Set.
func NewSturdycBackend(capacity int, maxTTL time.Duration, opts ...SturdycOption) *SturdycBackend {
	shards := defaultShards
	if capacity < shards*16 {
		shards = max(1, capacity/16)
	}
	b := &SturdycBackend{
		client: sturdyc.New[entry](capacity, shards, maxTTL, defaultEvictionPercentage),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Get implements Backend.
func (b *SturdycBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	e, ok := b.client.Get(key)
	if !ok || !b.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set implements Backend. The value is copied.
func (b *SturdycBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	b.client.Set(key, entry{value: stored, expiresAt: b.now().Add(ttl)})
	return nil
}

// Size returns the number of entries sturdyc currently holds, expired or not.
func (b *SturdycBackend) Size() int {
	return b.client.Size()
}

package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed command and event keys to prevent
// duplicate application. The command processor consults it before applying a
// command, so a replayed accrual command becomes a no-op instead of a second
// journal entry.
type IdempotencyStore interface {
	// MarkProcessed records a key with a TTL. It reports true when the
	// key was newly recorded and false when it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether a key is currently recorded.
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close releases the store's resources.
	Close() error
}

// IdempotencyConfig tunes deduplication behavior.
type IdempotencyConfig struct {
	// TTL bounds how long a processed key is remembered. Once it lapses
	// the same key can be applied again.
	TTL time.Duration

	// Enabled turns deduplication off entirely when false.
	Enabled bool
}

// DefaultIdempotencyConfig remembers keys for a day.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}

package limiter

import (
	"fmt"
)

// Config holds the item window parameters.
type Config struct {
	Limit  int // Keep at most this many items (0 = unlimited)
	Offset int // Skip the first N items (0 = no skip)
}

// Validate checks that both values are non-negative.
func (c Config) Validate() error {
	if c.Limit < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", c.Limit)
	}
	if c.Offset < 0 {
		return fmt.Errorf("offset must be non-negative, got %d", c.Offset)
	}
	return nil
}

// IsActive returns true if any limiting is configured.
func (c Config) IsActive() bool {
	return c.Limit > 0 || c.Offset > 0
}

// Min returns the config with the tighter of the two limits. A zero limit is
// treated as unlimited.
func (c Config) Min(other Config) Config {
	out := c
	if other.Limit > 0 && (out.Limit == 0 || other.Limit < out.Limit) {
		out.Limit = other.Limit
	}
	if other.Offset > out.Offset {
		out.Offset = other.Offset
	}
	return out
}

// Apply returns the window of items selected by cfg. The result shares the
// backing array of items.
func Apply[T any](cfg Config, items []T) []T {
	if !cfg.IsActive() {
		return items
	}
	length := len(items)

	start := cfg.Offset
	if start > length {
		start = length
	}
	end := length
	if cfg.Limit > 0 && start+cfg.Limit < length {
		end = start + cfg.Limit
	}
	return items[start:end:end]
}

package cache

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations
type Cache interface {
	// Get retrieves a value from the cache
	// Returns the value and a boolean indicating whether the key was found
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set adds a value to the cache with the specified expiration
	// If expiration is 0, the item never expires (but may be evicted)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)

	// Delete removes a key from the cache
	Delete(ctx context.Context, key string)

	// Flush removes all items from the cache
	Flush(ctx context.Context)
}

// PrefixBalance namespaces balance snapshot keys so a future key scheme
// change can bump the version segment
const PrefixBalance = "balance:v1:"

// BalanceKey builds the cache key for a user's balance snapshot
func BalanceKey(userID string) string {
	return PrefixBalance + userID
}

// Package cache provides the key/value store backing the bridge's caches:
// pagination checkpoints, account-identity mappings, delegated credentials
// and vault envelopes. One backend is selected at construction time — redis
// when configured, an in-process map otherwise. Business logic only sees
// the interface.
package cache

import "context"

type Cache interface {
	// Get returns the value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set overwrites unconditionally (last write wins).
	Set(ctx context.Context, key string, value []byte) error
	// Delete is a no-op for absent keys.
	Delete(ctx context.Context, key string) error
}

package store

import "context"

// Store is the key/value sink execution traces are written to. Keys live
// under a prefix, e.g. "/trace/" + execution ID.
type Store interface {
	// Get returns nil without error for a missing key.
	Get(ctx context.Context, prefix, key string) ([]byte, error)
	Set(ctx context.Context, prefix, key string, value []byte) error
	/**
	 * Remove a prefix and key
	 * remove an unexists prefix + key would NOT return error
	 */
	Remove(ctx context.Context, prefix, key string) error

	List(ctx context.Context, prefix string, iterator func(key string) bool) error
}

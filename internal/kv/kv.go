// Package kv defines the generic key-value and sorted-set store the capture
// system runs on, plus a SQLite-backed implementation. The contract is a
// subset of the classic Redis surface: string get/set/del and per-set
// sorted members scored by a caller-chosen number.
package kv

import "context"

// Store is the storage contract for captures and their status indexes.
type Store interface {
	// Get returns the value for key. The second return is false when the
	// key is absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key, value string) error

	// Del removes key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error

	// ZAdd adds member to the named sorted set with the given score,
	// updating the score if the member is already present.
	ZAdd(ctx context.Context, set, member string, score int64) error

	// ZRem removes member from the named sorted set. Removing an absent
	// member is not an error.
	ZRem(ctx context.Context, set, member string) error

	// ZRevRange returns members of the named set ordered by descending
	// score, from rank start through rank stop inclusive. A stop of -1
	// means "through the end". Out-of-range ranks yield an empty slice.
	ZRevRange(ctx context.Context, set string, start, stop int64) ([]string, error)

	// ZCard returns the number of members in the named set.
	ZCard(ctx context.Context, set string) (int64, error)

	// Close releases the store's resources.
	Close() error
}

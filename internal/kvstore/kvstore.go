package kvstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// KV is the raw key-value persistence medium. Every collection is stored as
// one JSON-encoded value under a fixed key and fully rewritten on mutation.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

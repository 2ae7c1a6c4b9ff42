// Package client holds the client-side half of spendlog: a typed API client,
// the client-local device identity and budget, and the form submission target.
//
// Everything client-local goes through KV so the backing storage can be
// swapped without touching callers.
package client

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KV.Get for keys that were never set.
var ErrKeyNotFound = errors.New("key not found")

// KV is client-local string storage. Set overwrites any prior value.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

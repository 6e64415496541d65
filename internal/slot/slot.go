// Package slot provides the durable key-value slots the cart is mirrored to. A slot
// holds one opaque payload per key and is always overwritten whole.
package slot

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when nothing has been saved under the key yet.
var ErrNotFound = errors.New("slot: key not found")

// Store is a durable key-value slot.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
}

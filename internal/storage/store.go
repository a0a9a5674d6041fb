// Package storage provides the durable key/value store that holds the
// offline queue and cache as serialized collections. Backends have no
// knowledge of record semantics; they only hold opaque bytes per
// collection name.
package storage

import "context"

// Collection names owned by this module.
const (
	CollectionOperations = "offline_operations"
	CollectionCache      = "offline_cache"
)

// Store persists serialized collections across process restarts.
type Store interface {
	// ReadCollection returns the serialized collection, or (nil, nil) when
	// the collection has never been written.
	ReadCollection(ctx context.Context, name string) ([]byte, error)

	// WriteCollection durably replaces the serialized collection.
	WriteCollection(ctx context.Context, name string, data []byte) error
}

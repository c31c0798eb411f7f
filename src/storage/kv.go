package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by KV.Get for missing keys
var ErrNotFound = errors.New("key not found")

// KV is a persistent key-value store
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// StorageError wraps a failed storage operation on a key
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Backend names a KV implementation
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendBadger Backend = "badger"
)

// OpenKV opens the backend at path
func OpenKV(backend Backend, path string) (KV, error) {
	switch backend {
	case BackendSQLite, "":
		return Open(path)
	case BackendBadger:
		return OpenBadger(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// Package kvstore provides the durable client-side storage the sandbox keeps
// its records in: a flat namespace of keys, each holding one opaque value that
// is always rewritten whole.
package kvstore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/unkn0wn-root/reqbox/internal/errdef"
)

// Store is a key/value backend. Get reports ok=false for a missing key.
type Store interface {
	Get(key string) (value []byte, ok bool, err error)
	Put(key string, value []byte) error
	Delete(key string) error
	Close() error
}

type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// Open builds the backend named by kind rooted at path. For the file backend
// path is a directory; for sqlite it is the database file.
func Open(kind Backend, path string) (Store, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(string(kind)))) {
	case "", BackendFile:
		return NewFileStore(path)
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errdef.New(errdef.CodeConfig, "unknown storage backend %q", kind)
	}
}

// Record is a typed JSON value stored under a fixed key.
type Record[T any] struct {
	store Store
	key   string
}

func NewRecord[T any](store Store, key string) *Record[T] {
	return &Record[T]{store: store, key: key}
}

func (r *Record[T]) Key() string { return r.key }

// Read decodes the record. ok is false when nothing has been written yet.
func (r *Record[T]) Read() (T, bool, error) {
	var zero T
	data, ok, err := r.store.Get(r.key)
	if err != nil {
		return zero, false, errdef.Wrap(errdef.CodePersistence, err, "read %s", r.key)
	}
	if !ok || len(strings.TrimSpace(string(data))) == 0 {
		return zero, false, nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return zero, false, errdef.Wrap(errdef.CodePersistence, err, "parse %s", r.key)
	}
	return value, true, nil
}

// Write replaces the record with value.
func (r *Record[T]) Write(value T) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errdef.Wrap(errdef.CodePersistence, err, "encode %s", r.key)
	}
	if err := r.store.Put(r.key, data); err != nil {
		return errdef.Wrap(errdef.CodePersistence, err, "write %s", r.key)
	}
	return nil
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is empty")
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '_':
		default:
			return fmt.Errorf("key %q contains invalid character %q", key, r)
		}
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("key %q must not contain '..'", key)
	}
	return nil
}

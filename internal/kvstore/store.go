// Package kvstore provides a small durable key/value store for client
// state, backed by LevelDB with JSON-encoded values.
package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// ErrBadValue reports a stored value that can no longer be decoded.
var ErrBadValue = errors.New("undecodable value")

// Store is a durable key/value store with JSON values. Every write is
// synced to disk before returning; the store holds small amounts of state
// that must survive a crash.
type Store struct {
	db *leveldb.DB
	wo *opt.WriteOptions
}

// Open opens or creates the store in dir, recovering it when the on-disk
// state is corrupted.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if ldberrors.IsCorrupted(err) {
		db, err = leveldb.RecoverFile(dir, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open state store %s: %w", dir, err)
	}
	return &Store{db: db, wo: &opt.WriteOptions{Sync: true}}, nil
}

// Get decodes the value stored under key into v. It reports whether the
// key was present. A present but undecodable value returns true and an
// error wrapping ErrBadValue.
func (s *Store) Get(key string, v any) (bool, error) {
	raw, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("%w under %s: %v", ErrBadValue, key, err)
	}
	return true, nil
}

// Put stores v under key.
func (s *Store) Put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.db.Put([]byte(key), raw, s.wo); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if err := s.db.Delete([]byte(key), s.wo); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

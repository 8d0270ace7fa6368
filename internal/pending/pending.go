// Package pending persists the one pending upload so an interrupted batch
// can be resumed after a restart.
package pending

import (
	"errors"
	"fmt"

	"github.com/lumivault/lumivault/internal/ingest"
	"github.com/lumivault/lumivault/internal/kvstore"
)

const storeKey = "pending-upload"

// ErrNoPending reports that no pending upload is recorded.
var ErrNoPending = errors.New("no pending upload")

// FileEntry records one file of a pending upload by name and source path.
type FileEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Pending describes an upload recorded before it started, so it can be
// replayed if the client dies mid-batch. For zip uploads the entries
// reference the archives rather than their members.
type Pending struct {
	Files          []FileEntry       `json:"files"`
	CollectionName string            `json:"collectionName,omitempty"`
	Type           ingest.UploadType `json:"type"`
}

// Tracker persists at most one pending upload.
type Tracker struct {
	store *kvstore.Store
}

// NewTracker returns a Tracker backed by store.
func NewTracker(store *kvstore.Store) *Tracker {
	return &Tracker{store: store}
}

// Set records p as the pending upload, replacing any previous record.
func (t *Tracker) Set(p Pending) error {
	if len(p.Files) == 0 {
		return errors.New("pending upload must reference at least one file")
	}
	if err := t.store.Put(storeKey, p); err != nil {
		return fmt.Errorf("failed to record pending upload: %w", err)
	}
	return nil
}

// Take returns the recorded pending upload and removes it, so a record is
// consumed at most once. An undecodable record is discarded and reported
// as ErrNoPending.
func (t *Tracker) Take() (*Pending, error) {
	var p Pending
	found, err := t.store.Get(storeKey, &p)
	if errors.Is(err, kvstore.ErrBadValue) {
		_ = t.store.Delete(storeKey)
		return nil, ErrNoPending
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending upload: %w", err)
	}
	if !found {
		return nil, ErrNoPending
	}
	if err := t.store.Delete(storeKey); err != nil {
		return nil, fmt.Errorf("failed to consume pending upload: %w", err)
	}
	return &p, nil
}

// Clear removes any pending record.
func (t *Tracker) Clear() error {
	if err := t.store.Delete(storeKey); err != nil {
		return fmt.Errorf("failed to clear pending upload: %w", err)
	}
	return nil
}

// Package uploader runs upload batches: files are read, encrypted to a
// disk spool and uploaded by a pool of workers, with progress published to
// a listener. At most one batch runs at a time.
package uploader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumivault/lumivault/internal/api"
	"github.com/lumivault/lumivault/internal/cryptox"
	"github.com/lumivault/lumivault/internal/ingest"
)

// DefaultWorkers is the number of files encrypted and uploaded in
// parallel when the configuration does not say otherwise.
const DefaultWorkers = 4

var (
	// ErrUploadInProgress reports an operation that needs the manager to
	// be idle while a batch is still running.
	ErrUploadInProgress = errors.New("an upload is already in progress")

	// ErrNotPrepared reports queueing files without a prepared batch.
	ErrNotPrepared = errors.New("no upload batch prepared")
)

// AbortError is returned when a failure stopped the whole batch rather
// than a single item.
type AbortError struct {
	Kind AbortKind
	Err  error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("upload aborted (%s): %v", e.Kind, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// Transport is the subset of the remote API the upload manager needs.
type Transport interface {
	UploadBlob(ctx context.Context, key string, size int64, r io.Reader) error
	CommitFile(ctx context.Context, commit api.FileCommit) (*api.File, error)
}

// Encryptor encrypts one file stream and returns its decryption header.
type Encryptor interface {
	Encrypt(dst io.Writer, src io.Reader) (*cryptox.Header, error)
}

// DuplicatePredicate decides whether an item with the given plaintext
// checksum was uploaded before. A predicate error is logged and the item
// is uploaded anyway.
type DuplicatePredicate func(ctx context.Context, item Item, checksum string) (bool, error)

// Config assembles a Manager.
type Config struct {
	Transport Transport
	Encryptor Encryptor

	// Workers is the pool size, DefaultWorkers when zero.
	Workers int

	// SpoolDir receives the encrypted temp files, os.TempDir when empty.
	SpoolDir string

	Listener    Listener
	IsDuplicate DuplicatePredicate
	Logger      *slog.Logger
}

// Manager runs upload batches. All methods are safe for concurrent use.
type Manager struct {
	transport Transport
	enc       Encryptor
	workers   int
	spoolDir  string
	listener  Listener
	isDup     DuplicatePredicate
	logger    *slog.Logger

	mu       sync.Mutex
	running  bool
	prepared bool
	batch    *batchState

	// emitMu serializes listener callbacks.
	emitMu sync.Mutex
}

// NewManager builds a Manager from cfg.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Transport == nil {
		return nil, errors.New("transport is required")
	}
	if cfg.Encryptor == nil {
		return nil, errors.New("encryptor is required")
	}
	m := &Manager{
		transport: cfg.Transport,
		enc:       cfg.Encryptor,
		workers:   cfg.Workers,
		spoolDir:  cfg.SpoolDir,
		listener:  cfg.Listener,
		isDup:     cfg.IsDuplicate,
		logger:    cfg.Logger,
	}
	if m.workers <= 0 {
		m.workers = DefaultWorkers
	}
	if m.listener == nil {
		m.listener = NopListener{}
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	return m, nil
}

// PrepareForNewUpload starts a fresh batch and returns its ID. It fails
// with ErrUploadInProgress while a batch is running. Preparing discards a
// finished batch, including its retryable failures.
func (m *Manager) PrepareForNewUpload() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return "", ErrUploadInProgress
	}
	id := uuid.NewString()
	m.batch = newBatchState(id)
	m.prepared = true
	return id, nil
}

// QueueFiles runs items on the prepared batch and blocks until the batch
// finishes, is cancelled or aborts. The returned summary covers this run
// only.
func (m *Manager) QueueFiles(ctx context.Context, items []Item) (Summary, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return Summary{}, ErrUploadInProgress
	}
	if !m.prepared || m.batch == nil {
		m.mu.Unlock()
		return Summary{}, ErrNotPrepared
	}
	b := m.batch
	m.prepared = false
	m.running = true
	m.mu.Unlock()

	b.mu.Lock()
	b.seedLocked(items)
	b.mu.Unlock()

	return m.run(ctx, b, items)
}

// RetryFailed re-queues every failed item of the last batch, keeping their
// local IDs, and blocks like QueueFiles. Succeeded and skipped items are
// not retried. With nothing to retry it returns an empty summary and emits
// no events.
func (m *Manager) RetryFailed(ctx context.Context) (Summary, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return Summary{}, ErrUploadInProgress
	}
	b := m.batch
	if b == nil {
		m.mu.Unlock()
		return Summary{}, ErrNotPrepared
	}

	b.mu.Lock()
	if len(b.failedItems) == 0 {
		b.mu.Unlock()
		m.mu.Unlock()
		return Summary{}, nil
	}
	items := make([]Item, 0, len(b.failedItems))
	for _, it := range b.failedItems {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].LocalID < items[j].LocalID })
	b.resetForRetryLocked(items)
	b.mu.Unlock()

	m.running = true
	m.mu.Unlock()

	return m.run(ctx, b, items)
}

// Cancel asks the running batch to stop. Items already in flight run to
// completion; queued items are never started. Cancel returns immediately
// and is safe to call at any time.
func (m *Manager) Cancel() {
	m.mu.Lock()
	b := m.batch
	m.mu.Unlock()
	if b == nil {
		return
	}

	b.mu.Lock()
	fresh := b.stage == BatchUploading && !b.cancelled
	if fresh {
		b.cancelled = true
		b.stage = BatchCancelling
	}
	snap := b.snapshotLocked()
	b.mu.Unlock()

	if fresh {
		b.requestCancel()
		m.emit(func(l Listener) { l.Progress(snap) })
	}
}

// Snapshot returns the current batch state, or an idle snapshot when no
// batch exists.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	b := m.batch
	m.mu.Unlock()
	if b == nil {
		return Snapshot{Stage: BatchIdle}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (m *Manager) run(ctx context.Context, b *batchState, items []Item) (Summary, error) {
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	b.mu.Lock()
	snap := b.snapshotLocked()
	b.mu.Unlock()
	m.emit(func(l Listener) { l.BatchStarted(snap) })

	queue := make(chan Item, len(items))
	for _, it := range items {
		queue <- it
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				// Prefer stopping over draining when both are ready.
				select {
				case <-b.cancelCh:
					return
				case <-ctx.Done():
					m.Cancel()
					return
				default:
				}
				select {
				case <-b.cancelCh:
					return
				case <-ctx.Done():
					m.Cancel()
					return
				case it, ok := <-queue:
					if !ok {
						return
					}
					m.processItem(ctx, b, it)
				}
			}
		}()
	}
	wg.Wait()

	return m.finish(b)
}

func (m *Manager) processItem(ctx context.Context, b *batchState, it Item) {
	m.setStage(b, it, StageReading)

	checksum, err := readAndChecksum(it.Ref)
	if err != nil {
		m.finishItem(b, it, StageFailed, fmt.Errorf("failed to read %s: %w", it.Ref.Name, err))
		return
	}

	if m.isDup != nil {
		dup, err := m.isDup(ctx, it, checksum)
		if err != nil {
			m.logger.Warn("duplicate check failed, uploading anyway",
				"name", it.Ref.Name, "error", err)
		} else if dup {
			m.finishItem(b, it, StageSkipped, nil)
			return
		}
	}

	m.setStage(b, it, StageEncrypting)
	spool, err := os.CreateTemp(m.spoolDir, "lumivault-*.enc")
	if err != nil {
		// A spool dir that cannot take files will fail every item the
		// same way.
		err = fmt.Errorf("failed to create spool file: %w", err)
		m.abort(b, AbortUnknown, err)
		m.finishItem(b, it, StageFailed, err)
		return
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	header, encSize, err := m.encryptItem(spool, it)
	if err != nil {
		m.finishItem(b, it, StageFailed, err)
		return
	}

	m.setStage(b, it, StageUploading)
	objectKey := uuid.NewString()
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		m.finishItem(b, it, StageFailed, fmt.Errorf("failed to rewind spool file: %w", err))
		return
	}
	if err := m.transport.UploadBlob(ctx, objectKey, encSize, spool); err != nil {
		m.handleRemoteError(b, it, err)
		return
	}

	commit := api.FileCommit{
		CollectionID:     it.Collection.ID,
		ObjectKey:        objectKey,
		Name:             it.Ref.Name,
		Size:             it.Ref.Size,
		EncryptedSize:    encSize,
		Checksum:         checksum,
		EncryptedKey:     header.EncryptedKey,
		DecryptionHeader: header.DecryptionHeader,
	}
	if _, err := m.transport.CommitFile(ctx, commit); err != nil {
		m.handleRemoteError(b, it, err)
		return
	}

	m.finishItem(b, it, StageDone, nil)
}

func (m *Manager) encryptItem(spool *os.File, it Item) (*cryptox.Header, int64, error) {
	src, err := it.Ref.Open()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", it.Ref.Name, err)
	}
	defer src.Close()

	header, err := m.enc.Encrypt(spool, src)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encrypt %s: %w", it.Ref.Name, err)
	}
	info, err := spool.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat spool file: %w", err)
	}
	return header, info.Size(), nil
}

// handleRemoteError maps a transport failure onto the item and, for
// account-level conditions, onto the whole batch.
func (m *Manager) handleRemoteError(b *batchState, it Item, err error) {
	switch {
	case errors.Is(err, api.ErrAlreadyUploaded):
		m.finishItem(b, it, StageSkipped, nil)
	case errors.Is(err, api.ErrSessionExpired):
		m.abort(b, AbortSessionExpired, err)
		m.finishItem(b, it, StageFailed, err)
	case errors.Is(err, api.ErrSubscriptionExpired):
		m.abort(b, AbortSubscriptionExpired, err)
		m.finishItem(b, it, StageFailed, err)
	case errors.Is(err, api.ErrStorageQuotaExceeded):
		m.abort(b, AbortStorageFull, err)
		m.finishItem(b, it, StageFailed, err)
	default:
		m.finishItem(b, it, StageFailed, err)
	}
}

// abort marks the batch failed as a whole and stops the workers. The
// first abort wins; later ones only add their item failure.
func (m *Manager) abort(b *batchState, kind AbortKind, err error) {
	b.mu.Lock()
	if !b.aborted {
		b.aborted = true
		b.abortKind = kind
		b.abortErr = err
	}
	b.mu.Unlock()
	b.requestCancel()
}

func (m *Manager) setStage(b *batchState, it Item, st Stage) {
	b.mu.Lock()
	b.stages[it.LocalID] = st
	snap := b.snapshotLocked()
	b.mu.Unlock()
	m.emit(func(l Listener) { l.Progress(snap) })
}

// finishItem records an item's terminal outcome. The finished counter and
// the outcome counters move under one lock, so every snapshot satisfies
// finished == succeeded+failed+skipped.
func (m *Manager) finishItem(b *batchState, it Item, outcome Stage, itemErr error) {
	b.mu.Lock()
	b.stages[it.LocalID] = outcome
	b.finished++
	b.finishedBytes += it.Ref.Size
	switch outcome {
	case StageDone:
		b.succeeded++
		b.uploadedBytes += it.Ref.Size
		delete(b.failedItems, it.LocalID)
	case StageFailed:
		b.failed++
		b.failedItems[it.LocalID] = it
	case StageSkipped:
		b.skipped++
		delete(b.failedItems, it.LocalID)
	}
	snap := b.snapshotLocked()
	b.mu.Unlock()

	if itemErr != nil {
		m.logger.Warn("upload item failed", "name", it.Ref.Name, "error", itemErr)
	}
	m.emit(func(l Listener) {
		l.ItemFinished(Result{LocalID: it.LocalID, Name: it.Ref.Name, Outcome: outcome, Err: itemErr})
		l.Progress(snap)
	})
}

func (m *Manager) finish(b *batchState) (Summary, error) {
	b.mu.Lock()
	sum := Summary{
		BatchID:   b.id,
		Total:     len(b.items),
		Succeeded: b.succeeded,
		Failed:    b.failed,
		Skipped:   b.skipped,
		Bytes:     b.uploadedBytes,
		Duration:  time.Since(b.started),
		Cancelled: b.cancelled,
	}
	aborted, kind, abortErr := b.aborted, b.abortKind, b.abortErr
	b.stage = BatchDone
	b.mu.Unlock()

	switch {
	case aborted:
		m.emit(func(l Listener) { l.BatchAborted(kind, abortErr) })
		return sum, &AbortError{Kind: kind, Err: abortErr}
	case sum.Cancelled:
		// A cancelled batch is discarded, it cannot be retried.
		m.clear(b)
		m.emit(func(l Listener) { l.BatchDone(sum) })
		return sum, nil
	default:
		m.emit(func(l Listener) { l.BatchDone(sum) })
		return sum, nil
	}
}

func (m *Manager) clear(b *batchState) {
	m.mu.Lock()
	if m.batch == b {
		m.batch = nil
		m.prepared = false
	}
	m.mu.Unlock()
}

// emit serializes listener callbacks so implementations never see two at
// once.
func (m *Manager) emit(fn func(Listener)) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	fn(m.listener)
}

func readAndChecksum(ref ingest.FileReference) (string, error) {
	src, err := ref.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	h := sha256.New()
	if _, err := io.Copy(h, src); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

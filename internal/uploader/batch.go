package uploader

import (
	"sync"
	"time"
)

// batchState holds everything mutable about the current batch. All fields
// are guarded by mu.
type batchState struct {
	mu sync.Mutex

	id    string
	stage BatchStage

	items  []Item
	stages map[int]Stage
	names  map[int]string

	finished  int
	succeeded int
	failed    int
	skipped   int

	totalBytes    int64
	finishedBytes int64
	uploadedBytes int64

	livePhotos bool

	// failedItems keeps the items that ended up StageFailed, so a retry
	// can re-queue exactly those.
	failedItems map[int]Item

	aborted   bool
	abortKind AbortKind
	abortErr  error

	cancelled  bool
	cancelCh   chan struct{}
	cancelOnce sync.Once

	started time.Time
}

func newBatchState(id string) *batchState {
	return &batchState{
		id:          id,
		stage:       BatchReady,
		stages:      make(map[int]Stage),
		names:       make(map[int]string),
		failedItems: make(map[int]Item),
		cancelCh:    make(chan struct{}),
	}
}

// requestCancel closes the cancel channel exactly once.
func (b *batchState) requestCancel() {
	b.cancelOnce.Do(func() { close(b.cancelCh) })
}

// seedLocked registers the items about to run. Callers must hold mu.
func (b *batchState) seedLocked(items []Item) {
	b.items = items
	for _, it := range items {
		b.stages[it.LocalID] = StagePending
		b.names[it.LocalID] = it.Ref.Name
		b.totalBytes += it.Ref.Size
	}
	b.livePhotos = containsLivePhotos(items)
	b.stage = BatchUploading
	b.started = time.Now()
}

// resetForRetryLocked rearms the batch to run items again, keeping the
// batch ID and the items' original local IDs. Callers must hold mu and
// must guarantee no worker is running.
func (b *batchState) resetForRetryLocked(items []Item) {
	b.stages = make(map[int]Stage, len(items))
	b.names = make(map[int]string, len(items))
	b.finished = 0
	b.succeeded = 0
	b.failed = 0
	b.skipped = 0
	b.totalBytes = 0
	b.finishedBytes = 0
	b.uploadedBytes = 0
	b.failedItems = make(map[int]Item)
	b.aborted = false
	b.abortKind = AbortUnknown
	b.abortErr = nil
	b.cancelled = false
	b.cancelCh = make(chan struct{})
	b.cancelOnce = sync.Once{}
	b.seedLocked(items)
}

// snapshotLocked builds a Snapshot of the current state. Callers must
// hold mu.
func (b *batchState) snapshotLocked() Snapshot {
	snap := Snapshot{
		BatchID:       b.id,
		Stage:         b.stage,
		Total:         len(b.items),
		Finished:      b.finished,
		Succeeded:     b.succeeded,
		Failed:        b.failed,
		Skipped:       b.skipped,
		TotalBytes:    b.totalBytes,
		FinishedBytes: b.finishedBytes,
		HasLivePhotos: b.livePhotos,
		ItemStages:    make(map[int]Stage, len(b.stages)),
		ItemNames:     make(map[int]string, len(b.names)),
	}
	if snap.Total > 0 {
		snap.Percent = float64(b.finished) / float64(snap.Total) * 100
	}
	for id, st := range b.stages {
		snap.ItemStages[id] = st
	}
	for id, name := range b.names {
		snap.ItemNames[id] = name
	}
	for _, it := range b.items {
		st := b.stages[it.LocalID]
		if st == StagePending || st.Terminal() {
			continue
		}
		snap.InProgress = append(snap.InProgress, ItemProgress{
			LocalID: it.LocalID,
			Name:    it.Ref.Name,
			Stage:   st,
		})
	}
	return snap
}

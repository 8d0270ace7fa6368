package uploader

import "time"

// ItemProgress identifies one in-flight item for display purposes.
type ItemProgress struct {
	LocalID int
	Name    string
	Stage   Stage
}

// Snapshot is a point-in-time copy of the batch state. A snapshot never
// changes after it is taken; listeners may keep it without copying.
type Snapshot struct {
	BatchID string
	Stage   BatchStage

	Total     int
	Finished  int
	Succeeded int
	Failed    int
	Skipped   int

	// Percent is finished over total in [0,100], 0 for an empty batch.
	Percent float64

	TotalBytes    int64
	FinishedBytes int64

	// InProgress lists the items currently being worked on, in batch
	// order.
	InProgress []ItemProgress

	ItemStages map[int]Stage
	ItemNames  map[int]string

	HasLivePhotos bool
}

// Result reports the terminal outcome of one item. Outcome is one of
// StageDone, StageFailed or StageSkipped; Err is set only for failures.
type Result struct {
	LocalID int
	Name    string
	Outcome Stage
	Err     error
}

// Summary reports a finished batch run.
type Summary struct {
	BatchID   string
	Total     int
	Succeeded int
	Failed    int
	Skipped   int

	// Bytes counts the plaintext bytes of successfully uploaded files.
	Bytes int64

	Duration  time.Duration
	Cancelled bool
}

// Listener receives upload lifecycle events. Callbacks arrive from the
// manager's goroutines but never concurrently with each other.
type Listener interface {
	BatchStarted(snap Snapshot)
	Progress(snap Snapshot)
	ItemFinished(res Result)
	BatchDone(sum Summary)
	BatchAborted(kind AbortKind, err error)
}

// NopListener ignores every event. Embed it to implement only the
// callbacks of interest.
type NopListener struct{}

func (NopListener) BatchStarted(Snapshot)         {}
func (NopListener) Progress(Snapshot)             {}
func (NopListener) ItemFinished(Result)           {}
func (NopListener) BatchDone(Summary)             {}
func (NopListener) BatchAborted(AbortKind, error) {}

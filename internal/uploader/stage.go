package uploader

// Stage is the lifecycle position of a single item within a batch.
type Stage int

const (
	StagePending Stage = iota
	StageReading
	StageEncrypting
	StageUploading
	StageDone
	StageFailed
	StageSkipped
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageReading:
		return "reading"
	case StageEncrypting:
		return "encrypting"
	case StageUploading:
		return "uploading"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	case StageSkipped:
		return "skipped"
	}
	return "unknown"
}

// Terminal reports whether the item has finished, one way or another.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed || s == StageSkipped
}

// BatchStage is the lifecycle position of the batch as a whole.
type BatchStage int

const (
	BatchIdle BatchStage = iota
	BatchReady
	BatchUploading
	BatchCancelling
	BatchDone
)

func (s BatchStage) String() string {
	switch s {
	case BatchIdle:
		return "idle"
	case BatchReady:
		return "ready"
	case BatchUploading:
		return "uploading"
	case BatchCancelling:
		return "cancelling"
	case BatchDone:
		return "done"
	}
	return "unknown"
}

// AbortKind classifies why a whole batch was stopped. Aborts differ from
// per-item failures: once a batch aborts, no further items are attempted.
type AbortKind int

const (
	AbortUnknown AbortKind = iota
	AbortSessionExpired
	AbortSubscriptionExpired
	AbortStorageFull
)

func (k AbortKind) String() string {
	switch k {
	case AbortSessionExpired:
		return "session expired"
	case AbortSubscriptionExpired:
		return "subscription expired"
	case AbortStorageFull:
		return "storage full"
	}
	return "unknown"
}

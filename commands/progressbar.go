package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/lumivault/lumivault/internal/uploader"
)

func NewProgressBar(size int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetDescription(description+":"),
		progressbar.OptionSetWidth(20), // Fit in an 80-column terminal.
		progressbar.OptionShowBytes(true),
		progressbar.OptionUseIECUnits(true),
		progressbar.OptionShowCount(), // Show number of bytes moved.
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowTotalBytes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)
}

// progressListener renders batch progress on the terminal. The upload
// manager serializes callbacks, so no locking is needed here.
type progressListener struct {
	uploader.NopListener

	bar       *progressbar.ProgressBar
	lastBytes int64
}

func (p *progressListener) BatchStarted(snap uploader.Snapshot) {
	p.bar = NewProgressBar(snap.TotalBytes, fmt.Sprintf("Uploading %d files", snap.Total))
	p.lastBytes = 0
}

func (p *progressListener) Progress(snap uploader.Snapshot) {
	if p.bar == nil {
		return
	}
	if delta := snap.FinishedBytes - p.lastBytes; delta > 0 {
		_ = p.bar.Add64(delta)
		p.lastBytes = snap.FinishedBytes
	}
	if len(snap.InProgress) > 0 {
		p.bar.Describe(fmt.Sprintf("Uploading %s", snap.InProgress[0].Name))
	}
}

func (p *progressListener) ItemFinished(res uploader.Result) {
	switch res.Outcome {
	case uploader.StageFailed:
		logger.Error("Failed to upload file",
			slog.String("file", res.Name),
			slog.String("error", res.Err.Error()))
	case uploader.StageSkipped:
		logger.Debug("Skipped already uploaded file",
			slog.String("file", res.Name))
	}
}

func (p *progressListener) BatchDone(sum uploader.Summary) {
	if p.bar != nil {
		if sum.Cancelled {
			_ = p.bar.Exit()
		} else {
			_ = p.bar.Finish()
		}
	}
	if sum.Cancelled {
		fmt.Printf("\nUpload cancelled: %d of %d files uploaded (%s)\n",
			sum.Succeeded, sum.Total, humanize.IBytes(uint64(sum.Bytes)))
		return
	}
	fmt.Printf("\nUploaded %d of %d files (%s) in %s\n",
		sum.Succeeded, sum.Total, humanize.IBytes(uint64(sum.Bytes)), sum.Duration.Round(time.Second))
	if sum.Skipped > 0 {
		fmt.Printf("Skipped %d already uploaded files\n", sum.Skipped)
	}
}

func (p *progressListener) BatchAborted(kind uploader.AbortKind, err error) {
	if p.bar != nil {
		_ = p.bar.Exit()
	}
	fmt.Fprintf(os.Stderr, "\nUpload aborted: %s (%v)\n", kind, err)
}

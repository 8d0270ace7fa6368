package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lumivault/lumivault/internal/collections"
	"github.com/lumivault/lumivault/internal/ingest"
	"github.com/lumivault/lumivault/internal/pending"
	"github.com/lumivault/lumivault/internal/uploader"
	"github.com/lumivault/lumivault/lumivaultconfig"
)

// Resume replays the recorded pending upload, if any. The record is
// consumed up front, so a crashing resume cannot loop on the same batch;
// already uploaded files are skipped server-side.
func Resume(ctx context.Context, cfg *lumivaultconfig.LumivaultConfig, client VaultClient, tracker *pending.Tracker) error {
	p, err := tracker.Take()
	if errors.Is(err, pending.ErrNoPending) {
		fmt.Println("No pending upload.")
		return nil
	}
	if err != nil {
		return err
	}

	refs := refsFromPending(p)
	if len(refs) == 0 {
		logger.Info("Pending upload references no existing files, nothing to do")
		return nil
	}
	logger.Info("Resuming pending upload",
		slog.Int("files", len(refs)),
		slog.String("type", string(p.Type)))

	var groups []ingest.Group
	if p.CollectionName != "" {
		groups = ingest.GroupSingle(p.CollectionName, refs)
	} else {
		groups = ingest.GroupPerFolder(refs)
	}

	resolver := collections.NewResolver(client)
	resolved, err := resolver.ResolveAll(ctx, groups)
	if err != nil {
		return err
	}
	items := uploader.BuildItems(resolved)

	manager, err := newUploadManager(cfg, client)
	if err != nil {
		return err
	}
	if _, err := manager.PrepareForNewUpload(); err != nil {
		return err
	}
	sum, err := manager.QueueFiles(ctx, items)
	if err != nil {
		return err
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d files failed to upload", sum.Failed, sum.Total)
	}
	return nil
}

// refsFromPending rebuilds file references from a pending record. Files
// that disappeared since the record was written are skipped with a
// warning.
func refsFromPending(p *pending.Pending) []ingest.FileReference {
	var refs []ingest.FileReference

	if p.Type == ingest.UploadTypeZips {
		seen := make(map[string]bool)
		for _, f := range p.Files {
			if seen[f.Path] {
				continue
			}
			seen[f.Path] = true
			members, err := ingest.FilesFromZip(f.Path)
			if err != nil {
				logger.Warn("Skipping missing archive from pending upload",
					slog.String("archive", f.Path),
					slog.String("error", err.Error()))
				continue
			}
			refs = append(refs, members...)
		}
		return refs
	}

	for _, f := range p.Files {
		ref, err := ingest.FileFromResumedPath(f.Name, f.Path)
		if err != nil {
			logger.Warn("Skipping missing file from pending upload",
				slog.String("file", f.Path),
				slog.String("error", err.Error()))
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lumivault/lumivault/internal/collections"
	"github.com/lumivault/lumivault/internal/cryptox"
	"github.com/lumivault/lumivault/internal/ingest"
	"github.com/lumivault/lumivault/internal/pending"
	"github.com/lumivault/lumivault/internal/uploader"
	"github.com/lumivault/lumivault/lumivaultconfig"
)

// UploadOptions carries the upload command's flags.
type UploadOptions struct {
	// Paths are the files and folders picked on the command line.
	Paths []string
	// Zips are archives whose members are uploaded without extraction.
	// Archives cannot be mixed with plain paths in one upload.
	Zips []string
	// AlbumName forces every file into the named album.
	AlbumName string
	// SeparateAlbums groups files into one album per folder.
	SeparateAlbums bool
	// Retry re-queues failed files once before giving up.
	Retry bool
}

// Upload runs one upload batch from the picked sources. The batch is
// recorded as pending before it starts and cleared once every file made
// it, so an interrupted run can be replayed with Resume.
func Upload(ctx context.Context, cfg *lumivaultconfig.LumivaultConfig, client VaultClient, tracker *pending.Tracker, opts UploadOptions) error {
	refs, uploadType, err := collectFiles(opts)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		logger.Info("No files to upload")
		return nil
	}

	groups := chooseGroups(refs, opts)

	resolver := collections.NewResolver(client)
	resolved, err := resolver.ResolveAll(ctx, groups)
	if err != nil {
		return err
	}
	items := uploader.BuildItems(resolved)

	if err := recordPending(tracker, items, groups, uploadType); err != nil {
		return err
	}

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

	if sum.Failed > 0 && opts.Retry {
		logger.Info("Retrying failed uploads", slog.Int("count", sum.Failed))
		retrySum, err := manager.RetryFailed(ctx)
		if err != nil {
			return err
		}
		sum.Succeeded += retrySum.Succeeded
		sum.Skipped += retrySum.Skipped
		sum.Failed = retrySum.Failed
	}

	// The pending record survives only a batch that ended with failures:
	// success and explicit cancellation both clear it, so resume replays
	// exactly the interrupted or partially failed batches.
	if sum.Cancelled || sum.Failed == 0 {
		if err := tracker.Clear(); err != nil {
			logger.Warn("Failed to clear pending upload record",
				slog.String("error", err.Error()))
		}
	}

	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d files failed to upload", sum.Failed, sum.Total)
	}
	return nil
}

// collectFiles expands the picked paths into file references.
func collectFiles(opts UploadOptions) ([]ingest.FileReference, ingest.UploadType, error) {
	if len(opts.Zips) > 0 && len(opts.Paths) > 0 {
		return nil, "", errors.New("cannot mix zip archives with files or folders in one upload")
	}

	if len(opts.Zips) > 0 {
		var refs []ingest.FileReference
		for _, archive := range opts.Zips {
			members, err := ingest.FilesFromZip(archive)
			if err != nil {
				return nil, "", err
			}
			refs = append(refs, members...)
		}
		return refs, ingest.UploadTypeZips, nil
	}

	var refs []ingest.FileReference
	sawFolder := false
	for _, p := range opts.Paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, "", fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if info.IsDir() {
			sawFolder = true
			dirRefs, err := ingest.FilesFromDir(p)
			if err != nil {
				return nil, "", err
			}
			refs = append(refs, dirRefs...)
		} else {
			ref, err := ingest.FileFromPath(p)
			if err != nil {
				return nil, "", err
			}
			refs = append(refs, ref)
		}
	}
	uploadType := ingest.UploadTypeFiles
	if sawFolder {
		uploadType = ingest.UploadTypeFolders
	}
	return refs, uploadType, nil
}

// chooseGroups decides the album layout: an explicit album name wins, then
// the per-folder flag, then the suggestion derived from the picked paths.
func chooseGroups(refs []ingest.FileReference, opts UploadOptions) []ingest.Group {
	if opts.AlbumName != "" {
		return ingest.GroupSingle(opts.AlbumName, refs)
	}
	if opts.SeparateAlbums {
		return ingest.GroupPerFolder(refs)
	}
	suggestion := ingest.Suggest(refs)
	if suggestion.HasNestedFolders {
		return ingest.GroupPerFolder(refs)
	}
	return ingest.GroupSingle(suggestion.RootFolderName, refs)
}

// recordPending writes the batch to the pending tracker before any upload
// starts. Zip uploads record the archives, everything else records the
// files themselves; in-memory sources have no path and are not resumable.
func recordPending(tracker *pending.Tracker, items []uploader.Item, groups []ingest.Group, uploadType ingest.UploadType) error {
	p := pending.Pending{Type: uploadType}
	if len(groups) == 1 {
		p.CollectionName = groups[0].Name
	}

	if uploadType == ingest.UploadTypeZips {
		seen := make(map[string]bool)
		for _, it := range items {
			if it.Ref.Path == "" || seen[it.Ref.Path] {
				continue
			}
			seen[it.Ref.Path] = true
			p.Files = append(p.Files, pending.FileEntry{
				Name: filepath.Base(it.Ref.Path),
				Path: it.Ref.Path,
			})
		}
	} else {
		for _, it := range items {
			if it.Ref.Path == "" {
				continue
			}
			p.Files = append(p.Files, pending.FileEntry{
				Name: it.Ref.Name,
				Path: it.Ref.Path,
			})
		}
	}

	if len(p.Files) == 0 {
		return nil
	}
	return tracker.Set(p)
}

// newUploadManager wires the upload pipeline from the configuration.
func newUploadManager(cfg *lumivaultconfig.LumivaultConfig, client VaultClient) (*uploader.Manager, error) {
	masterKey, err := cfg.Vault.MasterKeyBytes()
	if err != nil {
		return nil, err
	}
	enc, err := cryptox.NewStreamEncryptor(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to init encryption: %w", err)
	}
	return uploader.NewManager(uploader.Config{
		Transport: client,
		Encryptor: enc,
		Workers:   cfg.Upload.Workers,
		SpoolDir:  cfg.Upload.SpoolDir,
		Listener:  &progressListener{},
		Logger:    logger,
	})
}

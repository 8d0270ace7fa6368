package ingest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SourceKind records where a file reference was produced from.
type SourceKind int

const (
	SourceNativePath SourceKind = iota
	SourceMemory
	SourceZipMember
	SourceResumed
)

func (k SourceKind) String() string {
	switch k {
	case SourceNativePath:
		return "path"
	case SourceMemory:
		return "memory"
	case SourceZipMember:
		return "zip"
	case SourceResumed:
		return "resumed"
	}
	return "unknown"
}

// UploadType classifies what kind of selection started an upload. It is
// persisted alongside pending uploads so a restart rebuilds the batch the
// same way it was picked.
type UploadType string

const (
	UploadTypeFiles   UploadType = "files"
	UploadTypeFolders UploadType = "folders"
	UploadTypeZips    UploadType = "zips"
)

// FileReference is an immutable handle on one file picked for upload.
// The opener can be invoked any number of times; every call returns a
// fresh stream over the full content.
type FileReference struct {
	Name    string // base name, e.g. "IMG_0042.heic"
	Size    int64  // plaintext size in bytes
	RelPath string // collection-mapping path with '/' separators
	Path    string // absolute path for disk-backed files, empty otherwise
	Kind    SourceKind

	open func() (io.ReadCloser, error)
}

// Open returns a fresh reader over the file content.
func (r FileReference) Open() (io.ReadCloser, error) {
	if r.open == nil {
		return nil, fmt.Errorf("file reference %q has no content source", r.Name)
	}
	return r.open()
}

// MemoryFile wraps an in-memory payload as a file reference. Used by tests
// and by callers that receive content over an API rather than from disk.
func MemoryFile(name string, data []byte) FileReference {
	return FileReference{
		Name:    path.Base(name),
		Size:    int64(len(data)),
		RelPath: strings.TrimPrefix(name, "/"),
		Kind:    SourceMemory,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FileFromPath builds a reference for one explicitly picked file. Picked
// files are never filtered, hidden or not.
func FileFromPath(p string) (FileReference, error) {
	info, err := os.Stat(p)
	if err != nil {
		return FileReference{}, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	if info.IsDir() {
		return FileReference{}, fmt.Errorf("%s is a directory, not a file", p)
	}
	return FileReference{
		Name:    filepath.Base(p),
		Size:    info.Size(),
		RelPath: filepath.Base(p),
		Path:    p,
		Kind:    SourceNativePath,
		open:    openPath(p),
	}, nil
}

// FilesFromPaths builds references for a list of picked files.
func FilesFromPaths(paths []string) ([]FileReference, error) {
	refs := make([]FileReference, 0, len(paths))
	for _, p := range paths {
		ref, err := FileFromPath(p)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// FilesFromDir walks a picked folder and returns a reference for every
// regular file in it. The collection-mapping path of each file starts
// with the folder's own name, so "Holiday" containing "a.jpg" yields
// "Holiday/a.jpg". Hidden entries (dot-prefixed) are skipped during the
// walk; only explicitly picked files bypass that filter.
func FilesFromDir(root string) ([]FileReference, error) {
	rootBase := filepath.Base(filepath.Clean(root))
	var refs []FileReference
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to get file info for %s: %w", p, err)
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %s: %w", p, err)
		}
		refs = append(refs, FileReference{
			Name:    d.Name(),
			Size:    info.Size(),
			RelPath: path.Join(rootBase, filepath.ToSlash(rel)),
			Path:    p,
			Kind:    SourceNativePath,
			open:    openPath(p),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return refs, nil
}

// FilesFromZip lists the members of a zip archive as streamable
// references, without extracting anything to disk. Directory entries,
// hidden members and macOS resource forks are skipped.
func FilesFromZip(archivePath string) ([]FileReference, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer zr.Close()

	var refs []FileReference
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rel := path.Clean(f.Name)
		if rel == "." || strings.HasPrefix(rel, "..") || strings.HasPrefix(rel, "/") {
			continue
		}
		if hasJunkSegment(rel) {
			continue
		}
		refs = append(refs, FileReference{
			Name:    path.Base(rel),
			Size:    int64(f.UncompressedSize64),
			RelPath: rel,
			Path:    archivePath,
			Kind:    SourceZipMember,
			open:    openZipMember(archivePath, f.Name),
		})
	}
	return refs, nil
}

// FileFromResumedPath re-creates a reference from a persisted pending
// upload entry. The parent folder name is kept in the collection-mapping
// path so per-folder grouping still works after a restart.
func FileFromResumedPath(name, p string) (FileReference, error) {
	info, err := os.Stat(p)
	if err != nil {
		return FileReference{}, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	if info.IsDir() {
		return FileReference{}, fmt.Errorf("%s is a directory, not a file", p)
	}
	if name == "" {
		name = filepath.Base(p)
	}
	relPath := name
	if parent := filepath.Base(filepath.Dir(p)); parent != "." && parent != string(filepath.Separator) {
		relPath = parent + "/" + name
	}
	return FileReference{
		Name:    name,
		Size:    info.Size(),
		RelPath: relPath,
		Path:    p,
		Kind:    SourceResumed,
		open:    openPath(p),
	}, nil
}

func openPath(p string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return os.Open(p)
	}
}

func openZipMember(archivePath, member string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		zr, err := zip.OpenReader(archivePath)
		if err != nil {
			return nil, fmt.Errorf("failed to reopen archive %s: %w", archivePath, err)
		}
		for _, f := range zr.File {
			if f.Name != member {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				zr.Close()
				return nil, fmt.Errorf("failed to open member %s: %w", member, err)
			}
			return &zipMemberReader{rc: rc, archive: zr}, nil
		}
		zr.Close()
		return nil, fmt.Errorf("member %q no longer present in %s", member, archivePath)
	}
}

// zipMemberReader keeps the archive handle open for as long as the member
// stream is being read.
type zipMemberReader struct {
	rc      io.ReadCloser
	archive *zip.ReadCloser
}

func (z *zipMemberReader) Read(p []byte) (int, error) {
	return z.rc.Read(p)
}

func (z *zipMemberReader) Close() error {
	rcErr := z.rc.Close()
	if err := z.archive.Close(); err != nil {
		return err
	}
	return rcErr
}

func hasJunkSegment(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") || seg == "__MACOSX" {
			return true
		}
	}
	return false
}

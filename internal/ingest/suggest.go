package ingest

import "strings"

// Suggestion is what the import analysis proposes to the caller: whether
// the picked files span nested folders (so one collection per folder is a
// sensible default) and, when they all live under a single root folder,
// that folder's name as the collection name to offer.
type Suggestion struct {
	HasNestedFolders bool
	RootFolderName   string
}

// Suggest inspects only the collection-mapping paths of the picked files.
// Files without a path separator count as loose files at the import root;
// an import mixing loose files with foldered ones has no root folder name.
func Suggest(refs []FileReference) Suggestion {
	if len(refs) == 0 {
		return Suggestion{}
	}

	dirs := make(map[string]struct{})
	roots := make(map[string]struct{})
	rooted := true
	for _, r := range refs {
		i := strings.LastIndex(r.RelPath, "/")
		if i < 0 {
			dirs[""] = struct{}{}
			rooted = false
			continue
		}
		dirs[r.RelPath[:i]] = struct{}{}
		if j := strings.Index(r.RelPath, "/"); j >= 0 {
			roots[r.RelPath[:j]] = struct{}{}
		}
	}

	s := Suggestion{HasNestedFolders: len(dirs) > 1}
	if rooted && len(roots) == 1 {
		for root := range roots {
			s.RootFolderName = root
		}
	}
	return s
}

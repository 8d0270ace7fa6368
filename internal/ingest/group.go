package ingest

import "strings"

// DefaultAlbumName is used when an upload has no derivable collection
// name, which happens on a user's very first upload of loose files.
const DefaultAlbumName = "My First Album"

// Group is an ordered run of files destined for one collection.
type Group struct {
	Name string
	Refs []FileReference
}

// GroupSingle places every file in one group. An empty or blank name
// falls back to DefaultAlbumName.
func GroupSingle(name string, refs []FileReference) []Group {
	if len(refs) == 0 {
		return nil
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultAlbumName
	}
	return []Group{{Name: name, Refs: refs}}
}

// GroupPerFolder partitions files by the folder they directly live in.
// Groups come out in first-encounter order and keep the input order of
// their files, so concatenating all groups yields every input file
// exactly once. Loose files with no folder share the default group.
func GroupPerFolder(refs []FileReference) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, r := range refs {
		name := parentFolderName(r.RelPath)
		if name == "" {
			name = DefaultAlbumName
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Name: name})
		}
		groups[i].Refs = append(groups[i].Refs, r)
	}
	return groups
}

// parentFolderName returns the name of the folder a file directly lives
// in, or "" for a loose file.
func parentFolderName(relPath string) string {
	i := strings.LastIndex(relPath, "/")
	if i < 0 {
		return ""
	}
	dir := relPath[:i]
	if j := strings.LastIndex(dir, "/"); j >= 0 {
		dir = dir[j+1:]
	}
	return dir
}

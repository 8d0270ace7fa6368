package uploader

import (
	"path"
	"strings"

	"github.com/lumivault/lumivault/internal/api"
	"github.com/lumivault/lumivault/internal/collections"
	"github.com/lumivault/lumivault/internal/ingest"
)

// Item is one file queued for upload into a resolved collection. LocalID
// identifies the item within its batch and correlates progress events; it
// is assigned when the batch is built and survives retries.
type Item struct {
	LocalID    int
	Ref        ingest.FileReference
	Collection api.Collection
}

// BuildItems flattens resolved groups into batch order, assigning local
// IDs sequentially.
func BuildItems(groups []collections.ResolvedGroup) []Item {
	var items []Item
	id := 0
	for _, g := range groups {
		for _, ref := range g.Refs {
			items = append(items, Item{LocalID: id, Ref: ref, Collection: g.Collection})
			id++
		}
	}
	return items
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".heic": true, ".heif": true, ".webp": true, ".dng": true, ".tiff": true,
}

var videoExts = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
	".webm": true, ".m4v": true,
}

// containsLivePhotos reports whether any collection receives both an image
// and a video sharing a base name, the layout live photo exports use.
func containsLivePhotos(items []Item) bool {
	const (
		sawImage = 1
		sawVideo = 2
	)
	seen := make(map[string]int)
	for _, it := range items {
		ext := strings.ToLower(path.Ext(it.Ref.Name))
		var flag int
		switch {
		case imageExts[ext]:
			flag = sawImage
		case videoExts[ext]:
			flag = sawVideo
		default:
			continue
		}
		base := strings.ToLower(strings.TrimSuffix(it.Ref.Name, path.Ext(it.Ref.Name)))
		key := it.Collection.ID + "/" + base
		seen[key] |= flag
		if seen[key] == sawImage|sawVideo {
			return true
		}
	}
	return false
}

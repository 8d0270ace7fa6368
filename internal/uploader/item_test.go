package uploader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumivault/lumivault/internal/api"
	"github.com/lumivault/lumivault/internal/collections"
	"github.com/lumivault/lumivault/internal/ingest"
)

func TestBuildItems(t *testing.T) {
	groups := []collections.ResolvedGroup{
		{
			Collection: api.Collection{ID: "c1", Name: "One"},
			Refs: []ingest.FileReference{
				ingest.MemoryFile("a.jpg", []byte("a")),
				ingest.MemoryFile("b.jpg", []byte("bb")),
			},
		},
		{
			Collection: api.Collection{ID: "c2", Name: "Two"},
			Refs: []ingest.FileReference{
				ingest.MemoryFile("c.jpg", []byte("ccc")),
			},
		},
	}

	items := BuildItems(groups)
	require.Len(t, items, 3)
	for i, it := range items {
		assert.Equal(t, i, it.LocalID, "local IDs are assigned in batch order")
	}
	assert.Equal(t, "c1", items[0].Collection.ID)
	assert.Equal(t, "c1", items[1].Collection.ID)
	assert.Equal(t, "c2", items[2].Collection.ID)
	assert.Equal(t, "c.jpg", items[2].Ref.Name)
}

func TestContainsLivePhotos(t *testing.T) {
	col1 := api.Collection{ID: "c1"}
	col2 := api.Collection{ID: "c2"}

	ref := func(name string) ingest.FileReference {
		return ingest.MemoryFile(name, []byte("x"))
	}

	t.Run("image and video sharing a base name", func(t *testing.T) {
		items := BuildItems([]collections.ResolvedGroup{
			{Collection: col1, Refs: []ingest.FileReference{ref("IMG_0042.HEIC"), ref("img_0042.mov")}},
		})
		assert.True(t, containsLivePhotos(items))
	})

	t.Run("pair split across collections", func(t *testing.T) {
		items := BuildItems([]collections.ResolvedGroup{
			{Collection: col1, Refs: []ingest.FileReference{ref("IMG_0042.heic")}},
			{Collection: col2, Refs: []ingest.FileReference{ref("IMG_0042.mov")}},
		})
		assert.False(t, containsLivePhotos(items))
	})

	t.Run("images only", func(t *testing.T) {
		items := BuildItems([]collections.ResolvedGroup{
			{Collection: col1, Refs: []ingest.FileReference{ref("a.jpg"), ref("a.png")}},
		})
		assert.False(t, containsLivePhotos(items))
	})

	t.Run("unrelated extensions", func(t *testing.T) {
		items := BuildItems([]collections.ResolvedGroup{
			{Collection: col1, Refs: []ingest.FileReference{ref("notes.txt"), ref("notes.mov")}},
		})
		assert.False(t, containsLivePhotos(items))
	})
}

func TestStageTerminal(t *testing.T) {
	for _, st := range []Stage{StageDone, StageFailed, StageSkipped} {
		assert.True(t, st.Terminal(), st.String())
	}
	for _, st := range []Stage{StagePending, StageReading, StageEncrypting, StageUploading} {
		assert.False(t, st.Terminal(), st.String())
	}
}

package collections

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumivault/lumivault/internal/api"
	"github.com/lumivault/lumivault/internal/ingest"
)

func TestResolver_ExistingCollection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockService(ctrl)
	svc.EXPECT().ListCollections(gomock.Any()).Return([]api.Collection{
		{ID: "c1", Name: "Holiday", Owned: true},
		{ID: "c2", Name: "Pets", Owned: true},
	}, nil).Times(1)

	r := NewResolver(svc)
	col, err := r.Resolve(context.Background(), "Pets")
	require.NoError(t, err)
	assert.Equal(t, "c2", col.ID, "should match the existing collection by name")
}

func TestResolver_CreatesMissingCollection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockService(ctrl)
	svc.EXPECT().ListCollections(gomock.Any()).Return(nil, nil).Times(1)
	svc.EXPECT().CreateCollection(gomock.Any(), "Trip").Return(&api.Collection{ID: "c9", Name: "Trip", Owned: true}, nil).Times(1)

	r := NewResolver(svc)
	col, err := r.Resolve(context.Background(), "Trip")
	require.NoError(t, err)
	assert.Equal(t, "c9", col.ID)

	// Second resolution of the same name must hit the cache, not the API.
	again, err := r.Resolve(context.Background(), "Trip")
	require.NoError(t, err)
	assert.Equal(t, "c9", again.ID)
}

func TestResolver_ListsRemoteOnlyOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockService(ctrl)
	svc.EXPECT().ListCollections(gomock.Any()).Return([]api.Collection{
		{ID: "c1", Name: "One", Owned: true},
		{ID: "c2", Name: "Two", Owned: true},
	}, nil).Times(1)

	r := NewResolver(svc)
	for _, name := range []string{"One", "Two", "One"} {
		_, err := r.Resolve(context.Background(), name)
		require.NoError(t, err)
	}
}

func TestResolver_DuplicateNamesFirstListedWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockService(ctrl)
	svc.EXPECT().ListCollections(gomock.Any()).Return([]api.Collection{
		{ID: "c1", Name: "Holiday", Owned: true},
		{ID: "c2", Name: "Holiday", Owned: true},
	}, nil).Times(1)

	r := NewResolver(svc)
	col, err := r.Resolve(context.Background(), "Holiday")
	require.NoError(t, err)
	assert.Equal(t, "c1", col.ID)
}

func TestResolver_IgnoresUnownedCollections(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockService(ctrl)
	svc.EXPECT().ListCollections(gomock.Any()).Return([]api.Collection{
		{ID: "c1", Name: "Shared", Owned: false},
	}, nil).Times(1)
	svc.EXPECT().CreateCollection(gomock.Any(), "Shared").Return(&api.Collection{ID: "c5", Name: "Shared", Owned: true}, nil).Times(1)

	r := NewResolver(svc)
	col, err := r.Resolve(context.Background(), "Shared")
	require.NoError(t, err)
	assert.Equal(t, "c5", col.ID, "a collection shared by someone else must not be reused")
}

func TestResolver_ListError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockService(ctrl)
	svc.EXPECT().ListCollections(gomock.Any()).Return(nil, errors.New("network down")).Times(1)

	r := NewResolver(svc)
	_, err := r.Resolve(context.Background(), "Any")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list collections")
}

func TestResolver_CreateError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockService(ctrl)
	svc.EXPECT().ListCollections(gomock.Any()).Return(nil, nil).Times(1)
	svc.EXPECT().CreateCollection(gomock.Any(), "Trip").Return(nil, errors.New("boom")).Times(1)

	r := NewResolver(svc)
	_, err := r.Resolve(context.Background(), "Trip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `failed to create collection "Trip"`)
}

func TestResolver_ResolveAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockService(ctrl)
	svc.EXPECT().ListCollections(gomock.Any()).Return([]api.Collection{
		{ID: "c1", Name: "2021", Owned: true},
	}, nil).Times(1)
	svc.EXPECT().CreateCollection(gomock.Any(), "2022").Return(&api.Collection{ID: "c2", Name: "2022", Owned: true}, nil).Times(1)

	groups := []ingest.Group{
		{Name: "2021", Refs: []ingest.FileReference{{Name: "a.jpg"}}},
		{Name: "2022", Refs: []ingest.FileReference{{Name: "b.jpg"}, {Name: "c.jpg"}}},
	}

	r := NewResolver(svc)
	resolved, err := r.ResolveAll(context.Background(), groups)
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, "c1", resolved[0].Collection.ID)
	assert.Len(t, resolved[0].Refs, 1)
	assert.Equal(t, "c2", resolved[1].Collection.ID)
	assert.Len(t, resolved[1].Refs, 2)
}

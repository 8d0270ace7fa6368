package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ListCollections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/collections", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		io.WriteString(w, `{"collections":[{"id":"c1","name":"Holiday","owned":true},{"id":"c2","name":"Shared","owned":false}]}`)
	}))
	defer srv.Close()

	c := NewClient(context.Background(), srv.URL, "token-123")
	cols, err := c.ListCollections(context.Background())
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, Collection{ID: "c1", Name: "Holiday", Owned: true}, cols[0])
	assert.False(t, cols[1].Owned)
}

func TestClient_CreateCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/collections", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"Trip"}`, string(body))
		io.WriteString(w, `{"collection":{"id":"c9","name":"Trip","owned":true}}`)
	}))
	defer srv.Close()

	c := NewClient(context.Background(), srv.URL, "tok")
	col, err := c.CreateCollection(context.Background(), "Trip")
	require.NoError(t, err)
	assert.Equal(t, &Collection{ID: "c9", Name: "Trip", Owned: true}, col)
}

func TestClient_UploadBlob(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/blobs/key-1", r.URL.Path)
		assert.Equal(t, int64(9), r.ContentLength)
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(context.Background(), srv.URL, "tok")
	err := c.UploadBlob(context.Background(), "key-1", 9, strings.NewReader("encrypted"))
	require.NoError(t, err)
	assert.Equal(t, "encrypted", gotBody)
}

func TestClient_CommitFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/files", r.URL.Path)
		var commit FileCommit
		require.NoError(t, json.NewDecoder(r.Body).Decode(&commit))
		assert.Equal(t, "c1", commit.CollectionID)
		assert.Equal(t, "a.jpg", commit.Name)
		io.WriteString(w, `{"file":{"id":"f1","collectionId":"c1","objectKey":"k1","name":"a.jpg"}}`)
	}))
	defer srv.Close()

	c := NewClient(context.Background(), srv.URL, "tok")
	file, err := c.CommitFile(context.Background(), FileCommit{
		CollectionID: "c1",
		ObjectKey:    "k1",
		Name:         "a.jpg",
		Size:         3,
	})
	require.NoError(t, err)
	assert.Equal(t, "f1", file.ID)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized means expired session", http.StatusUnauthorized, ErrSessionExpired},
		{"payment required means expired subscription", http.StatusPaymentRequired, ErrSubscriptionExpired},
		{"conflict means duplicate", http.StatusConflict, ErrAlreadyUploaded},
		{"upgrade required means storage full", http.StatusUpgradeRequired, ErrStorageQuotaExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c := NewClient(context.Background(), srv.URL, "tok")

			_, err := c.ListCollections(context.Background())
			assert.True(t, errors.Is(err, tt.want), "ListCollections: got %v", err)

			err = c.UploadBlob(context.Background(), "k", 1, strings.NewReader("x"))
			assert.True(t, errors.Is(err, tt.want), "UploadBlob: got %v", err)

			_, err = c.CommitFile(context.Background(), FileCommit{Name: "a"})
			assert.True(t, errors.Is(err, tt.want), "CommitFile: got %v", err)
		})
	}
}

func TestClient_PlainErrorIsNotTaxonomy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(context.Background(), srv.URL, "tok")
	_, err := c.ListCollections(context.Background())
	require.Error(t, err)
	for _, sentinel := range []error{ErrAlreadyUploaded, ErrSessionExpired, ErrSubscriptionExpired, ErrStorageQuotaExceeded} {
		assert.False(t, errors.Is(err, sentinel))
	}
	assert.Contains(t, err.Error(), "status 500")
}

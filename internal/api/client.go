package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.lumivault.io"

var (
	// Errors the upload pipeline reacts to. Anything else coming out of
	// the client is a plain transient failure.
	ErrAlreadyUploaded      = errors.New("file already uploaded")
	ErrSessionExpired       = errors.New("session expired")
	ErrSubscriptionExpired  = errors.New("subscription expired")
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
)

// Collection is a remote collection as the service returns it.
type Collection struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owned bool   `json:"owned"`
}

// File is the remote entry created when an uploaded blob is committed.
type File struct {
	ID           string `json:"id"`
	CollectionID string `json:"collectionId"`
	ObjectKey    string `json:"objectKey"`
	Name         string `json:"name"`
}

// FileCommit is the metadata the service stores for an uploaded blob. The
// service never sees plaintext: the key is sealed with the vault master
// key and the checksum is of the content before encryption.
type FileCommit struct {
	CollectionID     string `json:"collectionId"`
	ObjectKey        string `json:"objectKey"`
	Name             string `json:"name"`
	Size             int64  `json:"size"`
	EncryptedSize    int64  `json:"encryptedSize"`
	Checksum         string `json:"checksum"`
	EncryptedKey     string `json:"encryptedKey"`
	DecryptionHeader string `json:"decryptionHeader"`
}

// Client talks to the vault API. Every method waits on the shared rate
// limiter before touching the network.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient builds an authorized API client. The token rides along as a
// bearer token on every request.
func NewClient(ctx context.Context, baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{
		httpClient: oauth2.NewClient(ctx, src),
		baseURL:    strings.TrimRight(baseURL, "/"),
		// The service asks clients to stay under 5 requests per second,
		// with bursts of up to 10.
		limiter: rate.NewLimiter(rate.Every(time.Second/5), 10),
	}
}

// ListCollections returns every collection visible to the account,
// including shared ones; callers filter on Owned as needed.
func (c *Client) ListCollections(ctx context.Context) ([]Collection, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/collections", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	var result struct {
		Collections []Collection `json:"collections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode collections: %w", err)
	}
	return result.Collections, nil
}

// CreateCollection creates a collection with the given name and returns
// it.
func (c *Client) CreateCollection(ctx context.Context, name string) (*Collection, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	reqBytes, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/collections", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %q: %w", name, err)
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return nil, fmt.Errorf("failed to create collection %q: %w", name, err)
	}

	var result struct {
		Collection Collection `json:"collection"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode collection: %w", err)
	}
	return &result.Collection, nil
}

// UploadBlob streams an encrypted blob to the store under objectKey. The
// size must match what r will yield; the store rejects mismatches.
func (c *Client) UploadBlob(ctx context.Context, objectKey string, size int64, r io.Reader) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/v1/blobs/"+objectKey, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = size

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload blob %s: %w", objectKey, err)
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return fmt.Errorf("failed to upload blob %s: %w", objectKey, err)
	}
	return nil
}

// CommitFile records an uploaded blob as a file in its collection.
func (c *Client) CommitFile(ctx context.Context, commit FileCommit) (*File, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	reqBytes, err := json.Marshal(commit)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal commit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/files", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to commit file %s: %w", commit.Name, err)
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return nil, fmt.Errorf("failed to commit file %s: %w", commit.Name, err)
	}

	var result struct {
		File File `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode file: %w", err)
	}
	return &result.File, nil
}

// checkResponse maps service status codes onto the error taxonomy the
// upload pipeline understands. 426 is what the service answers when the
// account is out of storage.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	msg := strings.TrimSpace(string(body))

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w (status %d): %s", ErrSessionExpired, resp.StatusCode, msg)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w (status %d): %s", ErrSubscriptionExpired, resp.StatusCode, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w (status %d): %s", ErrAlreadyUploaded, resp.StatusCode, msg)
	case http.StatusUpgradeRequired:
		return fmt.Errorf("%w (status %d): %s", ErrStorageQuotaExceeded, resp.StatusCode, msg)
	}
	return fmt.Errorf("request failed, status %d: %s", resp.StatusCode, msg)
}

//go:generate go run github.com/golang/mock/mockgen -source=${GOFILE} -destination=zz_generated_vault_client_mock_test.go -package=commands VaultClient

package commands

import (
	"context"
	"io"

	"github.com/lumivault/lumivault/internal/api"
)

// VaultClient defines the interface for remote vault operations needed by
// the lumivault commands.
type VaultClient interface {
	ListCollections(ctx context.Context) ([]api.Collection, error)
	CreateCollection(ctx context.Context, name string) (*api.Collection, error)
	UploadBlob(ctx context.Context, key string, size int64, r io.Reader) error
	CommitFile(ctx context.Context, commit api.FileCommit) (*api.File, error)
}

var _ VaultClient = (*api.Client)(nil)

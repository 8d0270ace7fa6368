//go:generate go run github.com/golang/mock/mockgen -source=${GOFILE} -destination=zz_generated_service_mock_test.go -package=collections Service

package collections

import (
	"context"
	"fmt"

	"github.com/lumivault/lumivault/internal/api"
	"github.com/lumivault/lumivault/internal/ingest"
)

// Service defines the collection operations the resolver needs from the
// remote API.
type Service interface {
	ListCollections(ctx context.Context) ([]api.Collection, error)
	CreateCollection(ctx context.Context, name string) (*api.Collection, error)
}

// ResolvedGroup pairs a remote collection with the files destined for it.
type ResolvedGroup struct {
	Collection api.Collection
	Refs       []ingest.FileReference
}

// Resolver maps album names to remote collections, creating the ones that
// do not exist yet. It lists the remote collections at most once and is
// meant to live for a single upload batch. Not safe for concurrent use.
type Resolver struct {
	svc    Service
	byName map[string]api.Collection
	listed bool
}

// NewResolver returns a Resolver backed by svc.
func NewResolver(svc Service) *Resolver {
	return &Resolver{svc: svc, byName: make(map[string]api.Collection)}
}

// Resolve returns the owned collection named name, creating it remotely
// when none exists. When several owned collections share the name, the
// first one listed wins.
func (r *Resolver) Resolve(ctx context.Context, name string) (*api.Collection, error) {
	if err := r.ensureListed(ctx); err != nil {
		return nil, err
	}
	if col, ok := r.byName[name]; ok {
		return &col, nil
	}
	col, err := r.svc.CreateCollection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %q: %w", name, err)
	}
	r.byName[name] = *col
	return col, nil
}

// ResolveAll resolves every group up front, before any file is uploaded.
func (r *Resolver) ResolveAll(ctx context.Context, groups []ingest.Group) ([]ResolvedGroup, error) {
	resolved := make([]ResolvedGroup, 0, len(groups))
	for _, g := range groups {
		col, err := r.Resolve(ctx, g.Name)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, ResolvedGroup{Collection: *col, Refs: g.Refs})
	}
	return resolved, nil
}

func (r *Resolver) ensureListed(ctx context.Context) error {
	if r.listed {
		return nil
	}
	cols, err := r.svc.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, col := range cols {
		if !col.Owned {
			continue
		}
		if _, ok := r.byName[col.Name]; ok {
			continue
		}
		r.byName[col.Name] = col
	}
	r.listed = true
	return nil
}

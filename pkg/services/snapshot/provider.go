package snapshot

import (
	"context"
	"fmt"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	duckdbsnapshot "github.com/clinic-tools/advisory-engine/pkg/store/duckdb/snapshot"
)

// Provider supplies the aggregated view the analyzers run against. Snapshots
// are built fresh per call; nothing is cached between generation runs.
type Provider interface {
	GetSnapshot(ctx context.Context, clinicID string) (*domain.AnalysisSnapshot, error)
}

type storeProvider struct {
	store duckdbsnapshot.Store
}

func NewProvider(store duckdbsnapshot.Store) (Provider, error) {
	if store == nil {
		return nil, fmt.Errorf("snapshot store is nil")
	}
	return &storeProvider{store: store}, nil
}

func (p *storeProvider) GetSnapshot(ctx context.Context, clinicID string) (*domain.AnalysisSnapshot, error) {
	snap, err := p.store.BuildSnapshot(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("build snapshot for %s: %w", clinicID, err)
	}
	return snap, nil
}

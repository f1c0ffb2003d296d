package store

import (
	"context"
	"errors"

	"donationroute/internal/model"
)

// Store is the persistence interface used by the API server and the catalog subscriber.
type Store interface {
	// Catalog
	UpsertStops(ctx context.Context, tenantID string, stops []model.Stop) (created, updated int, err error)
	ListStops(ctx context.Context, tenantID string, status model.StopStatus) ([]model.Stop, error)

	// Metrics
	SavePlanMetrics(ctx context.Context, tenantID, planDate string, m model.PlanMetrics) error
	ListPlanMetrics(ctx context.Context, tenantID, planDate, strategy string) ([]model.PlanMetrics, error)

	// Optimizer config per tenant
	GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error)
	SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error
}

// Pinger is implemented by stores backed by a remote database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrNilCollection is returned by Mongo when it was built without a collection.
var ErrNilCollection = errors.New("mongo collection is nil")

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donationroute/internal/model"
)

func TestMongo_NilCollections(t *testing.T) {
	m := &Mongo{}
	ctx := context.Background()
	_, _, err := m.UpsertStops(ctx, "t1", []model.Stop{{ID: "a"}})
	assert.ErrorIs(t, err, ErrNilCollection)
	_, err = m.ListStops(ctx, "t1", "")
	assert.ErrorIs(t, err, ErrNilCollection)
	assert.ErrorIs(t, m.SavePlanMetrics(ctx, "t1", "d", model.PlanMetrics{}), ErrNilCollection)
	_, err = m.GetOptimizerConfig(ctx, "t1")
	assert.ErrorIs(t, err, ErrNilCollection)
	assert.Error(t, m.Ping(ctx))
}

func TestConnectMongo_BadURI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m, err := ConnectMongo(ctx, "mongodb://bad:uri", "routes")
	assert.Error(t, err)
	assert.Nil(t, m)
}

// Integration test (requires running MongoDB)
func TestMongo_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	m, err := ConnectMongo(ctx, uri, "donationroute_test")
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	defer func() { _ = m.Close(context.Background()) }()
	tenant := "t_it_" + time.Now().Format("150405.000")

	created, updated, err := m.UpsertStops(ctx, tenant, []model.Stop{
		{ID: "a", Status: model.StatusActive, Location: &model.GeoPoint{Lat: 1, Lng: 2}, Quantity: 3},
		{ID: "b", Status: model.StatusCompleted},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Zero(t, updated)
	_, updated, err = m.UpsertStops(ctx, tenant, []model.Stop{{ID: "a", Status: model.StatusActive, Quantity: 5}})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	active, err := m.ListStops(ctx, tenant, model.StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 5.0, active[0].Quantity)

	require.NoError(t, m.SavePlanMetrics(ctx, tenant, "2025-03-01", model.PlanMetrics{Strategy: "genetic", Stops: 5}))
	items, err := m.ListPlanMetrics(ctx, tenant, "2025-03-01", "")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, m.SaveOptimizerConfig(ctx, tenant, map[string]any{"vehicle": "bike"}))
	cfg, err := m.GetOptimizerConfig(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, "bike", cfg["vehicle"])
}

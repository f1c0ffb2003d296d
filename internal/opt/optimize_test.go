package opt

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donationroute/internal/model"
)

func TestOptimizeEmpty(t *testing.T) {
	res, err := Optimize(context.Background(), model.GeoPoint{Lat: 1, Lng: 1}, nil, model.RouteOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Stops)
	assert.Empty(t, res.Waypoints)
	assert.Zero(t, res.DistanceKm)
	assert.Zero(t, res.DurationSec)
	assert.Zero(t, res.Cost)
	assert.Zero(t, res.FuelLiters)
	assert.Zero(t, res.CarbonKg)
}

func TestOptimizeAllInvalid(t *testing.T) {
	stops := []model.Stop{{ID: "a"}, {ID: "b", Location: pt(95, 0)}}
	res, err := Optimize(context.Background(), model.GeoPoint{}, stops, model.RouteOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Stops)
	assert.Zero(t, res.DistanceKm)
	assert.Equal(t, []string{"a", "b"}, res.Skipped)
}

func TestOptimizeSingleStop(t *testing.T) {
	stops := []model.Stop{{ID: "only", Location: pt(0, 0), Status: model.StatusActive}}
	res, err := Optimize(context.Background(), model.GeoPoint{Lat: 0, Lng: 1}, stops, model.RouteOptions{})
	require.NoError(t, err)
	assert.Equal(t, StrategyExhaustive, res.Strategy)
	require.Len(t, res.Stops, 1)
	assert.InDelta(t, 111.19, res.DistanceKm, 0.01)
	assert.InDelta(t, res.DistanceKm*60, res.DurationSec, 1e-9)
	assert.InDelta(t, res.DistanceKm*0.5, res.Cost, 1e-9)
}

func TestOptimizeTwoStopTriangle(t *testing.T) {
	start := model.GeoPoint{Lat: 0, Lng: 0}
	stops := []model.Stop{
		{ID: "b", Location: pt(1, 1)},
		{ID: "a", Location: pt(0, 1)},
	}
	res, err := Optimize(context.Background(), start, stops, model.RouteOptions{})
	require.NoError(t, err)
	ab := RouteLength(start, []model.Stop{stops[1], stops[0]})
	ba := RouteLength(start, stops)
	assert.InDelta(t, math.Min(ab, ba), res.DistanceKm, 1e-9)
	assert.Equal(t, []string{"a", "b"}, ids(res.Stops))
}

func TestOptimizeBikeIsFree(t *testing.T) {
	center := model.GeoPoint{Lat: 52.37, Lng: 4.89}
	stops := scatter(5, center, 5, 21)
	res, err := Optimize(context.Background(), center, stops, model.RouteOptions{Vehicle: model.VehicleBike, Seed: 99})
	require.NoError(t, err)
	assert.Equal(t, StrategyGenetic, res.Strategy)
	assertPermutation(t, stops, res.Stops)
	assert.Greater(t, res.DistanceKm, 0.0)
	assert.InDelta(t, res.DistanceKm*0.10, res.Cost, 1e-9)
	assert.Zero(t, res.FuelLiters)
	assert.Zero(t, res.CarbonKg)
}

func TestOptimizeMaxStopsTruncatesPrefix(t *testing.T) {
	center := model.GeoPoint{Lat: 41.9, Lng: 12.5}
	stops := scatter(15, center, 6, 4)
	res, err := Optimize(context.Background(), center, stops, model.RouteOptions{MaxStops: 10})
	require.NoError(t, err)
	assert.Len(t, res.Stops, 10)
	assert.Equal(t, StrategyGenetic, res.Strategy)
	assertPermutation(t, stops[:10], res.Stops)

	res, err = Optimize(context.Background(), center, stops, model.RouteOptions{})
	require.NoError(t, err)
	assert.Equal(t, StrategyNearestNeighbor, res.Strategy)
	assertPermutation(t, stops, res.Stops)
}

func TestOptimizeSkipsMissingCoordinate(t *testing.T) {
	center := model.GeoPoint{Lat: 19.43, Lng: -99.13}
	stops := scatter(4, center, 3, 8)
	withBad := append([]model.Stop{{ID: "noloc", Quantity: 3, Status: model.StatusActive}}, stops...)
	res, err := Optimize(context.Background(), center, withBad, model.RouteOptions{Seed: 1})
	require.NoError(t, err)
	assert.Len(t, res.Stops, 4)
	assert.Equal(t, []string{"noloc"}, res.Skipped)
	assertPermutation(t, stops, res.Stops)
}

func TestOptimizeTourProperties(t *testing.T) {
	center := model.GeoPoint{Lat: 1.35, Lng: 103.82}
	for _, n := range []int{1, 2, 3, 4, 7, 10, 11, 30, 80} {
		stops := scatter(n, center, 15, int64(n))
		res, err := Optimize(context.Background(), center, stops, model.RouteOptions{Vehicle: model.VehicleTruck, Seed: 5})
		require.NoError(t, err)
		assertPermutation(t, stops, res.Stops)
		require.Len(t, res.Waypoints, len(res.Stops))
		for i, s := range res.Stops {
			assert.Equal(t, *s.Location, res.Waypoints[i])
		}
		assert.GreaterOrEqual(t, res.DistanceKm, 0.0)
		assert.GreaterOrEqual(t, res.Cost, 0.0)
		assert.GreaterOrEqual(t, res.FuelLiters, 0.0)
		assert.GreaterOrEqual(t, res.CarbonKg, 0.0)
		assert.InDelta(t, RouteLength(center, res.Stops), res.DistanceKm, 1e-9)
	}
}

func TestOptimizeSeedIsDeterministic(t *testing.T) {
	center := model.GeoPoint{Lat: 59.33, Lng: 18.06}
	stops := scatter(8, center, 4, 13)
	o := model.RouteOptions{Seed: 1234}
	a, err := Optimize(context.Background(), center, stops, o)
	require.NoError(t, err)
	b, err := Optimize(context.Background(), center, stops, o)
	require.NoError(t, err)
	assert.Equal(t, ids(a.Stops), ids(b.Stops))
}

func TestOptimizeDoesNotMutateInput(t *testing.T) {
	center := model.GeoPoint{Lat: 0, Lng: 0}
	stops := scatter(12, center, 4, 6)
	before := ids(stops)
	_, err := Optimize(context.Background(), center, stops, model.RouteOptions{MaxStops: 11})
	require.NoError(t, err)
	assert.Equal(t, before, ids(stops))
}

func TestOptimizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	center := model.GeoPoint{Lat: 0, Lng: 0}
	_, err := Optimize(ctx, center, scatter(20, center, 4, 1), model.RouteOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMetricsStoreFallback(t *testing.T) {
	RecordMetrics("t1", "2025-03-01", StrategyGenetic, model.PlanMetrics{Strategy: StrategyGenetic, Stops: 6, DistanceKm: 12.5})
	RecordMetrics("t1", "2025-03-02", StrategyExhaustive, model.PlanMetrics{Strategy: StrategyExhaustive})
	got := GetMetrics("t1", "2025-03-01")
	require.Len(t, got, 1)
	assert.Equal(t, 6, got[StrategyGenetic].Stops)
	assert.Empty(t, GetMetrics("t2", "2025-03-01"))
}

package opt

import (
	"context"
	"math/rand"

	"donationroute/internal/model"
)

// Strategy names reported in TourResult.Strategy and metrics labels.
const (
	StrategyExhaustive      = "exhaustive"
	StrategyGenetic         = "genetic"
	StrategyNearestNeighbor = "nearest_neighbor_2opt"
)

// Size thresholds for strategy dispatch.
const (
	ExhaustiveMaxStops = 3
	GeneticMaxStops    = 10
)

// TourStrategy computes a visiting order over stops starting from start.
// Implementations never drop or duplicate stops, and they stop early when ctx is done.
type TourStrategy interface {
	Name() string
	Construct(ctx context.Context, start model.GeoPoint, stops []model.Stop) ([]model.Stop, float64)
}

// SelectStrategy picks the strategy for a problem of n stops.
func SelectStrategy(n int, rng *rand.Rand, params model.GeneticParams) TourStrategy {
	switch {
	case n <= ExhaustiveMaxStops:
		return Exhaustive{}
	case n <= GeneticMaxStops:
		return &Genetic{Rand: rng, Params: params}
	default:
		return NearestNeighbor2Opt{}
	}
}

package opt

import (
	"context"

	"donationroute/internal/model"
)

// Exhaustive enumerates every permutation. Only sensible for a handful of stops.
type Exhaustive struct{}

func (Exhaustive) Name() string { return StrategyExhaustive }

func (Exhaustive) Construct(ctx context.Context, start model.GeoPoint, stops []model.Stop) ([]model.Stop, float64) {
	n := len(stops)
	if n == 0 {
		return []model.Stop{}, 0
	}
	ps := newPointSet(start, stops)
	perm := make([]int, n)
	used := make([]bool, n)
	var best []int
	bestDist := 0.0

	var walk func(depth int)
	walk = func(depth int) {
		if depth == n {
			d := ps.orderLength(perm)
			// strict: first permutation found wins ties
			if best == nil || d < bestDist {
				best = append(best[:0], perm...)
				bestDist = d
			}
			return
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			perm[depth] = i
			walk(depth + 1)
			used[i] = false
		}
	}
	walk(0)
	return apply(start, stops, best)
}

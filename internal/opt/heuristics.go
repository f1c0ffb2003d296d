package opt

import (
	"context"

	"donationroute/internal/model"
)

// improveEpsilon is the minimum gain in km for a 2-opt move to count as shorter.
const improveEpsilon = 1e-9

// NearestNeighbor2Opt builds a greedy tour and refines it with first-improvement 2-opt.
type NearestNeighbor2Opt struct{}

func (NearestNeighbor2Opt) Name() string { return StrategyNearestNeighbor }

func (NearestNeighbor2Opt) Construct(ctx context.Context, start model.GeoPoint, stops []model.Stop) ([]model.Stop, float64) {
	if len(stops) == 0 {
		return []model.Stop{}, 0
	}
	ps := newPointSet(start, stops)
	path := nearestNeighborPath(ps)
	path = improvePath2Opt(ctx, ps, path, 2*len(stops))
	order := make([]int, len(path)-1)
	for i, p := range path[1:] {
		order[i] = p - 1
	}
	return apply(start, stops, order)
}

// nearestNeighborPath returns point indices beginning with the start (0).
// Ties go to the lower index.
func nearestNeighborPath(ps *pointSet) []int {
	n := len(ps.pts)
	visited := make([]bool, n)
	path := make([]int, 0, n)
	path = append(path, 0)
	visited[0] = true
	cur := 0
	for len(path) < n {
		next := -1
		bestD := 0.0
		for j := 1; j < n; j++ {
			if visited[j] {
				continue
			}
			if d := ps.d(cur, j); next == -1 || d < bestD {
				next, bestD = j, d
			}
		}
		visited[next] = true
		path = append(path, next)
		cur = next
	}
	return path
}

// improvePath2Opt reverses path[i..k] whenever that shortens the open path, accepting
// the first improving move found. Position 0 (the start) never moves. At most maxPasses
// full passes are made.
func improvePath2Opt(ctx context.Context, ps *pointSet, path []int, maxPasses int) []int {
	if maxPasses <= 0 {
		maxPasses = 1
	}
	best := append([]int(nil), path...)
	n := len(best)
	for it := 0; it < maxPasses; it++ {
		if ctx.Err() != nil {
			break
		}
		improved := false
		for i := 1; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				if reversalGain(ps, best, i, k) > improveEpsilon {
					twoOptSwap(best, i, k)
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

// reversalGain is how much shorter the path gets when path[i..k] is reversed.
func reversalGain(ps *pointSet, path []int, i, k int) float64 {
	a, b := path[i-1], path[i]
	c := path[k]
	before := ps.d(a, b)
	after := ps.d(a, c)
	if k+1 < len(path) {
		d := path[k+1]
		before += ps.d(c, d)
		after += ps.d(b, d)
	}
	return before - after
}

func twoOptSwap(ord []int, i, k int) {
	for i < k {
		ord[i], ord[k] = ord[k], ord[i]
		i++
		k--
	}
}

func pathLength(ps *pointSet, path []int) float64 {
	total := 0.0
	for i := 0; i < len(path)-1; i++ {
		total += ps.d(path[i], path[i+1])
	}
	return total
}

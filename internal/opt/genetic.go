package opt

import (
	"context"
	"math"
	"math/rand"
	"slices"
	"time"

	"donationroute/internal/model"
)

// Genetic defaults.
const (
	DefaultPopulationCap  = 50
	DefaultGenerations    = 100
	DefaultMutationRate   = 0.1
	DefaultEliteFraction  = 0.2
	DefaultTournamentSize = 3
)

// Genetic evolves permutations with tournament selection, ordered crossover,
// swap mutation and elitism. Rand must not be shared across goroutines.
type Genetic struct {
	Rand   *rand.Rand
	Params model.GeneticParams
}

func (g *Genetic) Name() string { return StrategyGenetic }

type individual struct {
	order  []int
	length float64
}

func fitness(length float64) float64 { return 1 / (1 + length) }

func (g *Genetic) params() model.GeneticParams {
	p := g.Params
	if p.PopulationCap <= 0 {
		p.PopulationCap = DefaultPopulationCap
	}
	if p.Generations <= 0 {
		p.Generations = DefaultGenerations
	}
	if p.MutationRate <= 0 {
		p.MutationRate = DefaultMutationRate
	}
	if p.EliteFraction <= 0 {
		p.EliteFraction = DefaultEliteFraction
	}
	if p.TournamentSize <= 0 {
		p.TournamentSize = DefaultTournamentSize
	}
	return p
}

func (g *Genetic) Construct(ctx context.Context, start model.GeoPoint, stops []model.Stop) ([]model.Stop, float64) {
	n := len(stops)
	if n == 0 {
		return []model.Stop{}, 0
	}
	rng := g.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	p := g.params()
	ps := newPointSet(start, stops)

	size := min(p.PopulationCap, n*4)
	elites := min(size, int(math.Ceil(float64(size)*p.EliteFraction)))

	pop := make([]individual, size)
	for i := range pop {
		order := make([]int, n)
		for j := range order {
			order[j] = j
		}
		rng.Shuffle(n, func(a, b int) { order[a], order[b] = order[b], order[a] })
		pop[i] = individual{order: order, length: ps.orderLength(order)}
	}
	sortPopulation(pop)

	bestLen := pop[0].length
	stall := 0
	for gen := 0; gen < p.Generations; gen++ {
		if ctx.Err() != nil {
			break
		}
		next := make([]individual, 0, size)
		for i := 0; i < elites; i++ {
			next = append(next, individual{order: slices.Clone(pop[i].order), length: pop[i].length})
		}
		for len(next) < size {
			p1 := tournament(rng, pop, p.TournamentSize)
			p2 := tournament(rng, pop, p.TournamentSize)
			child := orderedCrossover(rng, p1.order, p2.order)
			if rng.Float64() < p.MutationRate {
				swapMutate(rng, child)
			}
			next = append(next, individual{order: child, length: ps.orderLength(child)})
		}
		pop = next
		sortPopulation(pop)

		if pop[0].length < bestLen {
			bestLen = pop[0].length
			stall = 0
		} else {
			stall++
		}
		if p.StallGenerations > 0 && stall >= p.StallGenerations {
			break
		}
	}
	return apply(start, stops, pop[0].order)
}

// sortPopulation orders by descending fitness, keeping earlier individuals first on ties.
func sortPopulation(pop []individual) {
	slices.SortStableFunc(pop, func(a, b individual) int {
		fa, fb := fitness(a.length), fitness(b.length)
		switch {
		case fa > fb:
			return -1
		case fa < fb:
			return 1
		}
		return 0
	})
}

func tournament(rng *rand.Rand, pop []individual, k int) individual {
	best := pop[rng.Intn(len(pop))]
	for i := 1; i < k; i++ {
		c := pop[rng.Intn(len(pop))]
		if fitness(c.length) > fitness(best.length) {
			best = c
		}
	}
	return best
}

// orderedCrossover copies a random slice of p1 in place and fills the rest in p2's order.
func orderedCrossover(rng *rand.Rand, p1, p2 []int) []int {
	n := len(p1)
	lo, hi := rng.Intn(n), rng.Intn(n)
	if lo > hi {
		lo, hi = hi, lo
	}
	child := make([]int, n)
	placed := make([]bool, n)
	for i := lo; i <= hi; i++ {
		child[i] = p1[i]
		placed[p1[i]] = true
	}
	pos := 0
	for _, v := range p2 {
		if placed[v] {
			continue
		}
		for pos >= lo && pos <= hi {
			pos++
		}
		child[pos] = v
		placed[v] = true
		pos++
	}
	return child
}

func swapMutate(rng *rand.Rand, order []int) {
	i, j := rng.Intn(len(order)), rng.Intn(len(order))
	order[i], order[j] = order[j], order[i]
}

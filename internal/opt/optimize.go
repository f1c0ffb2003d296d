package opt

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"donationroute/internal/model"
)

// Optimize orders the valid stops into a tour from start and derives its cost metrics.
// Stops without a usable location are skipped, never rejected. The returned error is
// non-nil only when ctx ends before the strategy finishes.
func Optimize(ctx context.Context, start model.GeoPoint, stops []model.Stop, o model.RouteOptions) (model.TourResult, error) {
	res := model.TourResult{Stops: []model.Stop{}, Waypoints: []model.GeoPoint{}}
	if len(stops) == 0 {
		return res, nil
	}

	valid := make([]model.Stop, 0, len(stops))
	for _, s := range stops {
		if ValidLocation(s.Location) {
			valid = append(valid, s)
		} else {
			res.Skipped = append(res.Skipped, s.ID)
		}
	}
	if len(valid) == 0 {
		return res, nil
	}
	if o.MaxStops > 0 && len(valid) > o.MaxStops {
		valid = valid[:o.MaxStops]
	}

	seed := o.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	strat := SelectStrategy(len(valid), rand.New(rand.NewSource(seed)), o.Genetic)
	ordered, km := strat.Construct(ctx, start, valid)
	if err := ctx.Err(); err != nil {
		return model.TourResult{}, fmt.Errorf("optimize %s: %w", strat.Name(), err)
	}

	est := EstimateCost(km, o.Vehicle)
	res.Stops = ordered
	res.Waypoints = make([]model.GeoPoint, len(ordered))
	for i, s := range ordered {
		res.Waypoints[i] = *s.Location
	}
	res.DistanceKm = km
	res.DurationSec = km * 60
	res.Cost = est.Cost
	res.FuelLiters = est.FuelLiters
	res.CarbonKg = est.CarbonKg
	res.Strategy = strat.Name()
	return res, nil
}

package api

import (
	"encoding/json"
	"fmt"

	"donationroute/internal/model"
	"donationroute/internal/opt"
)

func validateOptimizeRequest(req *model.OptimizeRequest) error {
	if req.Start == nil {
		return fmt.Errorf("start is required")
	}
	if !opt.ValidLocation(req.Start) {
		return fmt.Errorf("start must be lat in [-90,90], lng in [-180,180]")
	}
	if !req.UseCatalog && len(req.Stops) == 0 {
		return fmt.Errorf("stops required unless useCatalog is set")
	}
	if err := validateRouteOptions(&req.Options); err != nil {
		return err
	}
	return validateStops(req.Stops)
}

func validateRouteOptions(o *model.RouteOptions) error {
	switch o.Objective {
	case "", model.ObjectiveTime, model.ObjectiveDistance, model.ObjectiveFuel:
	default:
		return fmt.Errorf("invalid objective: %s (allowed: time,distance,fuel)", o.Objective)
	}
	if o.MaxStops < 0 {
		return fmt.Errorf("maxStops must be >= 0")
	}
	g := o.Genetic
	if g.PopulationCap < 0 || g.Generations < 0 || g.TournamentSize < 0 || g.StallGenerations < 0 {
		return fmt.Errorf("genetic parameters must be >= 0")
	}
	if g.MutationRate < 0 || g.MutationRate > 1 {
		return fmt.Errorf("genetic.mutationRate must be in [0,1]")
	}
	if g.EliteFraction < 0 || g.EliteFraction > 1 {
		return fmt.Errorf("genetic.eliteFraction must be in [0,1]")
	}
	return nil
}

// validateStops rejects malformed fields. Missing or out-of-range locations are
// left for the engine, which skips them.
func validateStops(stops []model.Stop) error {
	for i, s := range stops {
		if s.Quantity < 0 {
			return fmt.Errorf("stops[%d].quantity must be >= 0", i)
		}
		switch s.Status {
		case "", model.StatusActive, model.StatusReserved, model.StatusPending, model.StatusCompleted, model.StatusExpired, model.StatusCancelled:
		default:
			return fmt.Errorf("stops[%d].status: unknown %q", i, s.Status)
		}
	}
	return nil
}

func validateNearbyRequest(req *model.NearbyRequest) error {
	if req.Center == nil || !opt.ValidLocation(req.Center) {
		return fmt.Errorf("center is required and must be a valid coordinate")
	}
	o := req.Options
	if o.MaxDistanceKm < 0 || o.MinQuantity < 0 || o.MaxResults < 0 {
		return fmt.Errorf("maxDistanceKm, minQuantity and maxResults must be >= 0")
	}
	switch o.RankBy {
	case "", model.RankDistance, model.RankUrgency, model.RankQuantity, model.RankExpiry:
	default:
		return fmt.Errorf("invalid rankBy: %s (allowed: distance,urgency,quantity,expiry)", o.RankBy)
	}
	return nil
}

func validateOptimizerConfig(cfg map[string]any) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var o model.RouteOptions
	if err := json.Unmarshal(b, &o); err != nil {
		return fmt.Errorf("config does not match route options: %w", err)
	}
	return validateRouteOptions(&o)
}

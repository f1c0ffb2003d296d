package opt

import "donationroute/internal/model"

type coefficients struct {
	costPerKm   float64
	fuelPerKm   float64
	carbonPerKm float64
}

func coefficientsFor(v model.VehicleClass) coefficients {
	switch v {
	case model.VehicleTruck:
		return coefficients{costPerKm: 1.20, fuelPerKm: 0.25, carbonPerKm: 0.35}
	case model.VehicleBike:
		return coefficients{costPerKm: 0.10}
	case model.VehicleWalking:
		return coefficients{}
	default:
		return coefficients{costPerKm: 0.50, fuelPerKm: 0.08, carbonPerKm: 0.12}
	}
}

// EstimateCost derives cost, fuel and carbon for a distance travelled by the given class.
// Unknown classes use car coefficients. Values are not rounded.
func EstimateCost(distanceKm float64, v model.VehicleClass) model.CostEstimate {
	c := coefficientsFor(v)
	vehicle := v
	if vehicle == "" {
		vehicle = model.VehicleCar
	}
	return model.CostEstimate{
		DistanceKm: distanceKm,
		Vehicle:    vehicle,
		Cost:       distanceKm * c.costPerKm,
		FuelLiters: distanceKm * c.fuelPerKm,
		CarbonKg:   distanceKm * c.carbonPerKm,
	}
}

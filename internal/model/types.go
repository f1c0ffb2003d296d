package model

import "time"

// Core domain types shared by the engine, the store and the HTTP layer.

type GeoPoint struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

type StopStatus string

const (
	StatusActive    StopStatus = "active"
	StatusReserved  StopStatus = "reserved"
	StatusPending   StopStatus = "pending"
	StatusCompleted StopStatus = "completed"
	StatusExpired   StopStatus = "expired"
	StatusCancelled StopStatus = "cancelled"
)

// Stop is one pickup candidate. Location and ExpiresAt are the only optional fields.
type Stop struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	Location  *GeoPoint  `json:"location,omitempty"`
	Quantity  float64    `json:"quantity"`
	Category  string     `json:"category,omitempty"`
	Status    StopStatus `json:"status"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type VehicleClass string

const (
	VehicleCar     VehicleClass = "car"
	VehicleTruck   VehicleClass = "truck"
	VehicleBike    VehicleClass = "bike"
	VehicleWalking VehicleClass = "walking"
)

type Objective string

const (
	ObjectiveTime     Objective = "time"
	ObjectiveDistance Objective = "distance"
	ObjectiveFuel     Objective = "fuel"
)

// RouteOptions configures one optimization call.
// AvoidHighways and AvoidTolls are carried for directions rendering downstream; the engine has no road model and ignores them.
type RouteOptions struct {
	Objective     Objective     `json:"objective,omitempty"`
	Vehicle       VehicleClass  `json:"vehicle,omitempty"`
	MaxStops      int           `json:"maxStops,omitempty"`
	AvoidHighways bool          `json:"avoidHighways,omitempty"`
	AvoidTolls    bool          `json:"avoidTolls,omitempty"`
	Seed          int64         `json:"seed,omitempty"`
	Genetic       GeneticParams `json:"genetic,omitempty"`
}

// GeneticParams overrides the genetic strategy's defaults. Zero fields keep the default.
type GeneticParams struct {
	PopulationCap    int     `json:"populationCap,omitempty"`
	Generations      int     `json:"generations,omitempty"`
	MutationRate     float64 `json:"mutationRate,omitempty"`
	EliteFraction    float64 `json:"eliteFraction,omitempty"`
	TournamentSize   int     `json:"tournamentSize,omitempty"`
	StallGenerations int     `json:"stallGenerations,omitempty"`
}

type RankBy string

const (
	RankDistance RankBy = "distance"
	RankUrgency  RankBy = "urgency"
	RankQuantity RankBy = "quantity"
	RankExpiry   RankBy = "expiry"
)

type ProximityOptions struct {
	MaxDistanceKm  float64  `json:"maxDistanceKm,omitempty"`
	Categories     []string `json:"categories,omitempty"`
	MinQuantity    float64  `json:"minQuantity,omitempty"`
	IncludeExpired bool     `json:"includeExpired,omitempty"`
	RankBy         RankBy   `json:"rankBy,omitempty"`
	MaxResults     int      `json:"maxResults,omitempty"`
}

type CostEstimate struct {
	DistanceKm float64      `json:"distanceKm"`
	Vehicle    VehicleClass `json:"vehicle"`
	Cost       float64      `json:"cost"`
	FuelLiters float64      `json:"fuelLiters"`
	CarbonKg   float64      `json:"carbonKg"`
}

// TourResult is the outcome of one optimization call. Stops and Waypoints are parallel.
type TourResult struct {
	Stops       []Stop     `json:"stops"`
	Waypoints   []GeoPoint `json:"waypoints"`
	DistanceKm  float64    `json:"distanceKm"`
	DurationSec float64    `json:"durationSec"`
	Cost        float64    `json:"cost"`
	FuelLiters  float64    `json:"fuelLiters"`
	CarbonKg    float64    `json:"carbonKg"`
	Strategy    string     `json:"strategy,omitempty"`
	Skipped     []string   `json:"skipped,omitempty"`
}

// HTTP payloads

type OptimizeRequest struct {
	TenantID   string       `json:"tenantId,omitempty"`
	PlanDate   string       `json:"planDate,omitempty"`
	Start      *GeoPoint    `json:"start"`
	Stops      []Stop       `json:"stops,omitempty"`
	UseCatalog bool         `json:"useCatalog,omitempty"`
	Options    RouteOptions `json:"options"`
}

type NearbyRequest struct {
	Center  *GeoPoint        `json:"center"`
	Stops   []Stop           `json:"stops,omitempty"`
	Options ProximityOptions `json:"options"`
}

type CostEstimateRequest struct {
	DistanceKm float64      `json:"distanceKm"`
	Vehicle    VehicleClass `json:"vehicle,omitempty"`
}

// PlanMetrics summarises one optimization run for reporting.
type PlanMetrics struct {
	Strategy   string    `json:"strategy" bson:"strategy"`
	Stops      int       `json:"stops" bson:"stops"`
	DistanceKm float64   `json:"distanceKm" bson:"distance_km"`
	DurationMs float64   `json:"durationMs" bson:"duration_ms"`
	Cost       float64   `json:"cost" bson:"cost"`
	CreatedAt  time.Time `json:"createdAt" bson:"created_at"`
}

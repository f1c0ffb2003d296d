package opt

import (
	"math"

	"donationroute/internal/model"
)

// EarthRadiusKm is the mean Earth radius used by the Haversine kernel.
const EarthRadiusKm = 6371.0

// Distance returns the great-circle distance between a and b in kilometres.
// Ranges are not validated here.
func Distance(a, b model.GeoPoint) float64 {
	return haversineKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// RouteLength sums the leg distances from start through stops in order.
// Every stop must carry a location.
func RouteLength(start model.GeoPoint, stops []model.Stop) float64 {
	total := 0.0
	prev := start
	for _, s := range stops {
		total += Distance(prev, *s.Location)
		prev = *s.Location
	}
	return total
}

// ValidLocation reports whether p is present, finite and within latitude/longitude ranges.
func ValidLocation(p *model.GeoPoint) bool {
	if p == nil {
		return false
	}
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// matrixLimit bounds the point count for which pairwise distances are precomputed.
const matrixLimit = 2048

// pointSet indexes start at 0 and stop i at i+1.
type pointSet struct {
	pts []model.GeoPoint
	m   []float64
}

func newPointSet(start model.GeoPoint, stops []model.Stop) *pointSet {
	pts := make([]model.GeoPoint, 0, len(stops)+1)
	pts = append(pts, start)
	for _, s := range stops {
		pts = append(pts, *s.Location)
	}
	ps := &pointSet{pts: pts}
	n := len(pts)
	if n <= matrixLimit {
		ps.m = make([]float64, n*n)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				d := Distance(pts[i], pts[j])
				ps.m[i*n+j] = d
				ps.m[j*n+i] = d
			}
		}
	}
	return ps
}

func (p *pointSet) d(i, j int) float64 {
	if p.m != nil {
		return p.m[i*len(p.pts)+j]
	}
	return Distance(p.pts[i], p.pts[j])
}

// orderLength is the path length from start over stop indices (0-based) in order.
func (p *pointSet) orderLength(order []int) float64 {
	total := 0.0
	prev := 0
	for _, idx := range order {
		total += p.d(prev, idx+1)
		prev = idx + 1
	}
	return total
}

// apply materialises an index order into stops and recomputes its length with the kernel.
func apply(start model.GeoPoint, stops []model.Stop, order []int) ([]model.Stop, float64) {
	out := make([]model.Stop, len(order))
	for i, idx := range order {
		out[i] = stops[idx]
	}
	return out, RouteLength(start, out)
}

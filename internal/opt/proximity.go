package opt

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"donationroute/internal/model"
)

const (
	DefaultMaxDistanceKm = 10.0
	DefaultMaxResults    = 50
)

// UrgencyScore orders candidates by status and time left before expiry. Higher is more urgent.
func UrgencyScore(s model.Stop, now time.Time) int {
	score := 0
	switch s.Status {
	case model.StatusActive:
		score = 100
	case model.StatusReserved, model.StatusPending:
		score = 50
	}
	if s.ExpiresAt == nil {
		return score
	}
	hours := s.ExpiresAt.Sub(now).Hours()
	switch {
	case hours < 0:
		score -= 200
	case hours < 6:
		score += 200
	case hours < 24:
		score += 100
	case hours < 72:
		score += 50
	}
	return score
}

type candidate struct {
	stop    model.Stop
	dist    float64
	urgency int
}

// FilterAndRank keeps the stops matching o around center and orders them by o.RankBy.
// Ties keep input order.
func FilterAndRank(stops []model.Stop, center model.GeoPoint, o model.ProximityOptions, now time.Time) []model.Stop {
	maxDist := o.MaxDistanceKm
	if maxDist <= 0 {
		maxDist = DefaultMaxDistanceKm
	}
	limit := o.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	var cats map[string]struct{}
	if len(o.Categories) > 0 {
		cats = make(map[string]struct{}, len(o.Categories))
		for _, c := range o.Categories {
			cats[strings.ToLower(c)] = struct{}{}
		}
	}

	cands := make([]candidate, 0, len(stops))
	for _, s := range stops {
		if !ValidLocation(s.Location) {
			continue
		}
		d := Distance(center, *s.Location)
		if d > maxDist {
			continue
		}
		if cats != nil {
			if _, ok := cats[strings.ToLower(s.Category)]; !ok {
				continue
			}
		}
		if o.MinQuantity > 0 && s.Quantity < o.MinQuantity {
			continue
		}
		if !o.IncludeExpired && s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
			continue
		}
		cands = append(cands, candidate{stop: s, dist: d, urgency: UrgencyScore(s, now)})
	}

	slices.SortStableFunc(cands, rankFunc(o.RankBy))
	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]model.Stop, len(cands))
	for i, c := range cands {
		out[i] = c.stop
	}
	return out
}

func rankFunc(by model.RankBy) func(a, b candidate) int {
	switch by {
	case model.RankUrgency:
		return func(a, b candidate) int { return cmp.Compare(b.urgency, a.urgency) }
	case model.RankQuantity:
		return func(a, b candidate) int { return cmp.Compare(b.stop.Quantity, a.stop.Quantity) }
	case model.RankExpiry:
		return func(a, b candidate) int {
			ea, eb := a.stop.ExpiresAt, b.stop.ExpiresAt
			switch {
			case ea == nil && eb == nil:
				return 0
			case ea == nil:
				return 1
			case eb == nil:
				return -1
			}
			return ea.Compare(*eb)
		}
	default:
		return func(a, b candidate) int { return cmp.Compare(a.dist, b.dist) }
	}
}

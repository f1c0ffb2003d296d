package opt

import (
	"sync"

	"donationroute/internal/model"
)

// In-process record of the latest plan metrics, used when the store has none.

type key struct {
	Tenant   string
	PlanDate string
	Strategy string
}

var (
	mu    sync.Mutex
	store = map[key]model.PlanMetrics{}
)

func RecordMetrics(tenant, planDate, strategy string, m model.PlanMetrics) {
	mu.Lock()
	store[key{Tenant: tenant, PlanDate: planDate, Strategy: strategy}] = m
	mu.Unlock()
}

func GetMetrics(tenant, planDate string) map[string]model.PlanMetrics {
	mu.Lock()
	defer mu.Unlock()
	out := map[string]model.PlanMetrics{}
	for k, v := range store {
		if k.Tenant == tenant && k.PlanDate == planDate {
			out[k.Strategy] = v
		}
	}
	return out
}

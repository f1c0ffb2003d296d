package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"donationroute/internal/model"
)

// Memory is a simple in-memory store used when no database is configured.
type Memory struct {
	mu     sync.Mutex
	stops  map[string]map[string]model.Stop          // tenant -> id -> stop
	order  map[string][]string                       // tenant -> ids in first-seen order
	planMx map[string]map[string][]model.PlanMetrics // tenant -> planDate -> items
	optCfg map[string]map[string]any                 // tenant -> config
}

func NewMemory() *Memory {
	return &Memory{
		stops:  map[string]map[string]model.Stop{},
		order:  map[string][]string{},
		planMx: map[string]map[string][]model.PlanMetrics{},
		optCfg: map[string]map[string]any{},
	}
}

func (m *Memory) UpsertStops(ctx context.Context, tenantID string, stops []model.Stop) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stops[tenantID] == nil {
		m.stops[tenantID] = map[string]model.Stop{}
	}
	created, updated := 0, 0
	for _, s := range stops {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		if _, ok := m.stops[tenantID][s.ID]; ok {
			updated++
		} else {
			m.order[tenantID] = append(m.order[tenantID], s.ID)
			created++
		}
		m.stops[tenantID][s.ID] = s
	}
	return created, updated, nil
}

func (m *Memory) ListStops(ctx context.Context, tenantID string, status model.StopStatus) ([]model.Stop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Stop{}
	for _, id := range m.order[tenantID] {
		s := m.stops[tenantID][id]
		if status == "" || s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) SavePlanMetrics(ctx context.Context, tenantID, planDate string, pm model.PlanMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pm.CreatedAt.IsZero() {
		pm.CreatedAt = time.Now().UTC()
	}
	if m.planMx[tenantID] == nil {
		m.planMx[tenantID] = map[string][]model.PlanMetrics{}
	}
	items := m.planMx[tenantID][planDate]
	for i := range items {
		if items[i].Strategy == pm.Strategy {
			items[i] = pm
			return nil
		}
	}
	m.planMx[tenantID][planDate] = append(items, pm)
	return nil
}

func (m *Memory) ListPlanMetrics(ctx context.Context, tenantID, planDate, strategy string) ([]model.PlanMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.PlanMetrics{}
	for _, it := range m.planMx[tenantID][planDate] {
		if strategy == "" || it.Strategy == strategy {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *Memory) GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg, ok := m.optCfg[tenantID]; ok {
		return cfg, nil
	}
	return nil, nil
}

func (m *Memory) SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.optCfg[tenantID] = cfg
	return nil
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"donationroute/internal/cache"
	"donationroute/internal/metrics"
	"donationroute/internal/model"
	"donationroute/internal/opt"
	"donationroute/internal/store"
)

// OptimizeHandler handles POST /v1/optimize
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.CanPlan() {
		writeProblem(w, 403, "Forbidden", "dispatcher or admin required", r.URL.Path)
		return
	}
	var req model.OptimizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateOptimizeRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}
	ctx := r.Context()
	stops := req.Stops
	if req.UseCatalog {
		cat, err := s.Store.ListStops(ctx, p.Tenant, model.StatusActive)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List catalog failed", err.Error(), r.URL.Path)
			return
		}
		stops = append(append([]model.Stop(nil), stops...), cat...)
	}
	cfg, err := s.Store.GetOptimizerConfig(ctx, p.Tenant)
	if err != nil {
		log.WithError(err).WithField("tenant", p.Tenant).Warn("optimizer config unavailable")
	}
	o := mergeRouteOptions(req.Options, cfg)

	var key string
	if s.Cache != nil && cache.Cacheable(o) {
		key = cache.Key(p.Tenant, *req.Start, stops, o)
		if res, ok, err := s.Cache.Get(ctx, key); err == nil && ok {
			metrics.TourCacheLookups.WithLabelValues("hit").Inc()
			writeJSON(w, http.StatusOK, res)
			return
		} else if err != nil {
			log.WithError(err).Warn("tour cache read failed")
		}
		metrics.TourCacheLookups.WithLabelValues("miss").Inc()
	}

	began := time.Now()
	res, err := opt.Optimize(ctx, *req.Start, stops, o)
	elapsed := float64(time.Since(began).Microseconds()) / 1000
	if err != nil {
		metrics.OptimizeRuns.WithLabelValues("none", "cancelled").Inc()
		writeProblem(w, http.StatusServiceUnavailable, "Optimization cancelled", err.Error(), r.URL.Path)
		return
	}
	strategy := res.Strategy
	if strategy == "" {
		strategy = "none"
	}
	metrics.OptimizeRuns.WithLabelValues(strategy, "ok").Inc()
	metrics.OptimizeDuration.WithLabelValues(strategy).Observe(elapsed)
	metrics.OptimizeStops.WithLabelValues(strategy).Observe(float64(len(res.Stops)))

	planDate := req.PlanDate
	if planDate == "" {
		planDate = s.now().UTC().Format(time.DateOnly)
	}
	s.recordPlan(ctx, p.Tenant, planDate, model.PlanMetrics{
		Strategy:   strategy,
		Stops:      len(res.Stops),
		DistanceKm: res.DistanceKm,
		DurationMs: elapsed,
		Cost:       res.Cost,
		CreatedAt:  s.now().UTC(),
	})
	s.Broker.Publish(p.Tenant, SSEEvent{Type: "route.optimized", Data: map[string]any{
		"planDate":   planDate,
		"strategy":   strategy,
		"stops":      len(res.Stops),
		"distanceKm": res.DistanceKm,
		"cost":       res.Cost,
	}})
	if key != "" {
		if err := s.Cache.Set(ctx, key, res); err != nil {
			log.WithError(err).Warn("tour cache write failed")
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) recordPlan(ctx context.Context, tenant, planDate string, pm model.PlanMetrics) {
	opt.RecordMetrics(tenant, planDate, pm.Strategy, pm)
	if err := s.Store.SavePlanMetrics(ctx, tenant, planDate, pm); err != nil {
		log.WithError(err).WithFields(log.Fields{"tenant": tenant, "planDate": planDate}).Warn("save plan metrics failed")
	}
}

// mergeRouteOptions fills unset request options from the tenant's stored config.
func mergeRouteOptions(o model.RouteOptions, cfg map[string]any) model.RouteOptions {
	if len(cfg) == 0 {
		return o
	}
	var def model.RouteOptions
	if b, err := json.Marshal(cfg); err == nil {
		_ = json.Unmarshal(b, &def)
	}
	if o.Objective == "" {
		o.Objective = def.Objective
	}
	if o.Vehicle == "" {
		o.Vehicle = def.Vehicle
	}
	if o.MaxStops == 0 {
		o.MaxStops = def.MaxStops
	}
	g, d := &o.Genetic, def.Genetic
	if g.PopulationCap == 0 {
		g.PopulationCap = d.PopulationCap
	}
	if g.Generations == 0 {
		g.Generations = d.Generations
	}
	if g.MutationRate == 0 {
		g.MutationRate = d.MutationRate
	}
	if g.EliteFraction == 0 {
		g.EliteFraction = d.EliteFraction
	}
	if g.TournamentSize == 0 {
		g.TournamentSize = d.TournamentSize
	}
	if g.StallGenerations == 0 {
		g.StallGenerations = d.StallGenerations
	}
	return o
}

// NearbyHandler handles POST /v1/stops/nearby
func (s *Server) NearbyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	var req model.NearbyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateNearbyRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid nearby request", err.Error(), r.URL.Path)
		return
	}
	stops := req.Stops
	if stops == nil {
		cat, err := s.Store.ListStops(r.Context(), p.Tenant, "")
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List catalog failed", err.Error(), r.URL.Path)
			return
		}
		stops = cat
	}
	items := opt.FilterAndRank(stops, *req.Center, req.Options, s.now())
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// CostEstimateHandler handles POST /v1/cost-estimate
func (s *Server) CostEstimateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.CostEstimateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.DistanceKm < 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid cost request", "distanceKm must be >= 0", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, opt.EstimateCost(req.DistanceKm, req.Vehicle))
}

// StopsHandler handles GET/POST /v1/stops
func (s *Server) StopsHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	switch r.Method {
	case http.MethodGet:
		status := model.StopStatus(r.URL.Query().Get("status"))
		items, err := s.Store.ListStops(r.Context(), p.Tenant, status)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List stops failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		if !p.CanPlan() {
			writeProblem(w, 403, "Forbidden", "dispatcher or admin required", r.URL.Path)
			return
		}
		var body struct {
			Stops []model.Stop `json:"stops"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateStops(body.Stops); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid stops", err.Error(), r.URL.Path)
			return
		}
		created, updated, err := s.Store.UpsertStops(r.Context(), p.Tenant, body.Stops)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Upsert stops failed", err.Error(), r.URL.Path)
			return
		}
		s.PublishCatalogUpdated(p.Tenant, created, updated)
		writeJSON(w, http.StatusAccepted, map[string]int{"created": created, "updated": updated})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// PublishCatalogUpdated notifies tenant subscribers that catalog stops changed.
func (s *Server) PublishCatalogUpdated(tenant string, created, updated int) {
	s.Broker.Publish(tenant, SSEEvent{Type: "catalog.updated", Data: map[string]any{"created": created, "updated": updated}})
}

// OptimizerConfigHandler returns default optimizer configuration
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/optimizer/config" || r.Method != http.MethodGet {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	defaults := map[string]any{
		"objective": model.ObjectiveDistance,
		"vehicle":   model.VehicleCar,
		"maxStops":  0,
		"genetic": map[string]any{
			"populationCap":    opt.DefaultPopulationCap,
			"generations":      opt.DefaultGenerations,
			"mutationRate":     opt.DefaultMutationRate,
			"eliteFraction":    opt.DefaultEliteFraction,
			"tournamentSize":   opt.DefaultTournamentSize,
			"stallGenerations": 0,
		},
		"thresholds": map[string]int{"exhaustiveMaxStops": opt.ExhaustiveMaxStops, "geneticMaxStops": opt.GeneticMaxStops},
	}
	// overlay tenant config if present
	p := s.getPrincipal(r)
	cfg, _ := s.Store.GetOptimizerConfig(r.Context(), p.Tenant)
	for k, v := range cfg {
		defaults[k] = v
	}
	writeJSON(w, 200, map[string]any{"defaults": defaults})
}

// Admin get/set optimizer tenant config
func (s *Server) AdminOptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/optimizer/config" {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg, _ := s.Store.GetOptimizerConfig(r.Context(), p.Tenant)
		if cfg == nil {
			cfg = map[string]any{}
		}
		writeJSON(w, 200, map[string]any{"config": cfg})
	case http.MethodPut:
		var body struct {
			Config map[string]any `json:"config"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			writeProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if body.Config == nil {
			writeProblem(w, 400, "Missing config", "", r.URL.Path)
			return
		}
		if err := validateOptimizerConfig(body.Config); err != nil {
			writeProblem(w, 400, "Invalid config", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.SaveOptimizerConfig(r.Context(), p.Tenant, body.Config); err != nil {
			writeProblem(w, 500, "Save failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, 200, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// PlanMetricsHandler handles GET /v1/admin/plan-metrics
func (s *Server) PlanMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/plan-metrics" || r.Method != http.MethodGet {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	planDate := r.URL.Query().Get("planDate")
	if planDate == "" {
		writeProblem(w, 400, "Missing planDate", "", r.URL.Path)
		return
	}
	strategy := r.URL.Query().Get("strategy")
	// Prefer stored metrics; fallback to in-memory
	items, err := s.Store.ListPlanMetrics(r.Context(), p.Tenant, planDate, strategy)
	if err != nil || len(items) == 0 {
		items = []model.PlanMetrics{}
		for name, m := range opt.GetMetrics(p.Tenant, planDate) {
			if strategy != "" && name != strategy {
				continue
			}
			items = append(items, m)
		}
	}
	writeJSON(w, 200, map[string]any{"planDate": planDate, "items": items})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	// Check DB connectivity for remote stores
	if pg, ok := s.Store.(store.Pinger); ok {
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	if s.Cache != nil {
		if err := s.Cache.Ping(ctx); err != nil {
			writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}

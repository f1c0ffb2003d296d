package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"donationroute/internal/auth"
	"donationroute/internal/cache"
	"donationroute/internal/config"
	"donationroute/internal/metrics"
	"donationroute/internal/store"
)

type Server struct {
	Store   store.Store
	Auth    *auth.Verifier
	Broker  EventBroker
	Cache   *cache.TourCache
	Limiter *RateLimiter
	Now     func() time.Time
	closers []func()
}

// NewServer wires the store, broker and cache from cfg. Postgres is preferred over
// MongoDB; with neither configured the in-memory store is used.
func NewServer(cfg config.Config) (*Server, error) {
	s := &Server{
		Auth:    auth.NewVerifier(auth.Options{Mode: cfg.Auth.Mode, HMACSecret: cfg.Auth.HMACSecret, JWKSURL: cfg.Auth.JWKSURL, TenantClaim: cfg.Auth.TenantClaim, RoleClaim: cfg.Auth.RoleClaim}),
		Limiter: NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Now:     time.Now,
	}
	switch {
	case cfg.Database.PostgresURL != "":
		sp, err := store.NewPostgres(cfg.Database.PostgresURL)
		if err != nil {
			return nil, err
		}
		if cfg.Database.Migrate {
			if err := sp.MigrateDir(cfg.Database.Migrations); err != nil {
				log.WithError(err).Warn("migrations failed")
			}
		}
		s.Store = sp
		s.closers = append(s.closers, func() { _ = sp.Close() })
	case cfg.Database.MongoURI != "":
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		sm, err := store.ConnectMongo(ctx, cfg.Database.MongoURI, cfg.Database.MongoDB)
		if err != nil {
			return nil, err
		}
		s.Store = sm
		s.closers = append(s.closers, func() { _ = sm.Close(context.Background()) })
	default:
		s.Store = store.NewMemory()
	}

	s.Broker = NewBroker()
	if cfg.Redis.URL != "" {
		if rb, err := NewRedisBroker(cfg.Redis.URL); err == nil {
			s.Broker = rb
		} else {
			log.WithError(err).Warn("redis broker unavailable; using in-memory broker")
		}
		if tc, err := cache.NewTourCacheFromURL(cfg.Redis.URL, cfg.Redis.CacheTTL); err == nil {
			s.Cache = tc
		} else {
			log.WithError(err).Warn("tour cache disabled")
		}
	}
	return s, nil
}

// Close releases database handles.
func (s *Server) Close() {
	for _, c := range s.closers {
		c()
	}
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Routes returns the full handler tree with middleware applied.
func (s *Server) Routes() http.Handler {
	metrics.RegisterDefault()
	mux := http.NewServeMux()

	// Engine
	mux.HandleFunc("/v1/optimize", s.OptimizeHandler)
	mux.HandleFunc("/v1/stops/nearby", s.NearbyHandler)
	mux.HandleFunc("/v1/cost-estimate", s.CostEstimateHandler)

	// Catalog
	mux.HandleFunc("/v1/stops", s.StopsHandler)

	// Optimizer config
	mux.HandleFunc("/v1/optimizer/config", s.OptimizerConfigHandler)
	mux.HandleFunc("/v1/admin/optimizer/config", s.AdminOptimizerConfigHandler)
	mux.HandleFunc("/v1/admin/plan-metrics", s.PlanMetricsHandler)

	// Events
	mux.HandleFunc("/v1/events/ws", s.EventsWSHandler)

	// Health, metrics, debug
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/info", s.DebugJSON)

	return logMiddleware(s.Limiter.Middleware(mux))
}

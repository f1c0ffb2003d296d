package api

import (
	"net/http"
	"time"

	"donationroute/internal/buildinfo"
	"donationroute/internal/store"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	storeKind := "memory"
	switch s.Store.(type) {
	case *store.Postgres:
		storeKind = "postgres"
	case *store.Mongo:
		storeKind = "mongo"
	}
	_, redisBroker := s.Broker.(*RedisBroker)
	authMode := "dev"
	if s.Auth != nil {
		authMode = s.Auth.Mode
	}
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  s.now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"AUTH_MODE":     authMode,
			"STORE":         storeKind,
			"REDIS_BROKER":  redisBroker,
			"TOUR_CACHE":    s.Cache != nil,
			"RATE_LIMITING": s.Limiter != nil,
		},
	}
	writeJSON(w, http.StatusOK, info)
}

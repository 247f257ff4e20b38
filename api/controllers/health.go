package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/localkart/localkart-backend/api/responses"
	"github.com/localkart/localkart-backend/pkg/config"
	"github.com/localkart/localkart-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-LocalKart-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the backing stores so load balancers stop routing to an
// instance that lost its database or cache.
func HealthReady(cfg *config.Config, logg *logger.Logger, db pinger, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		w.Header().Set("X-LocalKart-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		check := func(name string, p pinger) {
			if p == nil {
				checks[name] = "skipped"
				return
			}
			if err := p.Ping(ctx); err != nil {
				checks[name] = "down"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "health.ready dependency down: "+name, err)
				}
				return
			}
			checks[name] = "up"
		}

		check("db", db)
		check("redis", cache)

		if !healthy {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, checks)
			return
		}
		responses.WriteSuccess(w, checks)
	}
}

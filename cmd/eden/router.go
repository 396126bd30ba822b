package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/eden-hr/casetracker/internal/blob"
	"github.com/eden-hr/casetracker/internal/casenumber"
	"github.com/eden-hr/casetracker/internal/caseupdate"
	"github.com/eden-hr/casetracker/internal/entitystore"
	"github.com/eden-hr/casetracker/internal/lookup"
	"github.com/eden-hr/casetracker/internal/record/domain"
	"github.com/eden-hr/casetracker/internal/relationship"
	"github.com/eden-hr/casetracker/internal/shared/auth"
	"github.com/eden-hr/casetracker/internal/shared/config"
	"github.com/eden-hr/casetracker/internal/shared/database"
	"github.com/eden-hr/casetracker/internal/shared/events"
	"github.com/eden-hr/casetracker/internal/shared/metrics"
	secmiddleware "github.com/eden-hr/casetracker/internal/shared/middleware"
)

// App holds all application dependencies
type App struct {
	Config  *config.Config
	DB      *database.DB
	Store   domain.Store
	Bus     events.EventBus
	Redis   *lookup.RedisCache
	Numbers *casenumber.Generator
	Blobs   *blob.Service
	Lookup  *lookup.Service
}

func newRouter(app *App) http.Handler {
	cfg := app.Config
	loc := cfg.Records.Location()

	records := entitystore.NewService(app.Store, app.Bus, app.Numbers, entitystore.Config{
		CaseNumberRetries: cfg.Records.CaseNumberRetries,
		Location:          loc,
	})
	links := relationship.NewService(app.Store, app.Bus)
	updates := caseupdate.NewService(app.Store, app.Bus, loc)
	limiter := secmiddleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(secmiddleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(metrics.Middleware)
	r.Use(secmiddleware.CORS(secmiddleware.DefaultCORSConfig(cfg.Server.AllowedOrigins)))

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Use(secmiddleware.MaxBody(cfg.Server.MaxBodyBytes))
		r.Use(auth.Middleware(cfg.Auth))

		r.Mount("/records", entitystore.NewHandler(records).Routes())
		r.Route("/incidents/{incidentID}", func(r chi.Router) {
			r.Mount("/updates", caseupdate.NewHandler(updates).Routes())
			r.Mount("/", relationship.NewHandler(links).Routes())
		})
		r.Mount("/files", blob.NewHandler(app.Blobs).Routes())
		r.Mount("/lookup", lookup.NewHandler(app.Lookup).Routes())
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server":   "ready",
			"database": check(r.Context(), app.Store.Health),
			"events":   check(r.Context(), func(context.Context) error { return app.Bus.Health() }),
			"redis":    "not configured",
		}
		if app.Redis != nil {
			checks["redis"] = check(r.Context(), app.Redis.Health)
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}

func check(ctx context.Context, fn func(context.Context) error) string {
	if err := fn(ctx); err != nil {
		return "not ready: " + err.Error()
	}
	return "ready"
}

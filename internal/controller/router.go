package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cassiomorais/offlinepay/internal/cache"
	"github.com/cassiomorais/offlinepay/internal/config"
	"github.com/cassiomorais/offlinepay/internal/connectivity"
	"github.com/cassiomorais/offlinepay/internal/observability"
	"github.com/cassiomorais/offlinepay/internal/processor"
	"github.com/cassiomorais/offlinepay/internal/queue"
	"github.com/cassiomorais/offlinepay/internal/storage"
)

type RouterDeps struct {
	Store      storage.Store
	Queue      *queue.Queue
	Cache      *cache.Cache
	Monitor    *connectivity.Monitor
	Processor  *processor.Processor
	Metrics    *observability.Metrics
	Retention  time.Duration
	Version    string
	CORSConfig config.CORSConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	healthH := NewHealthController(deps.Store, deps.Version)
	queueH := NewQueueController(deps.Queue, deps.Processor, deps.Retention)
	cacheH := NewCacheController(deps.Cache)
	networkH := NewNetworkController(deps.Monitor)

	r.Get("/health", healthH.Liveness)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Queue
		r.Post("/queue", queueH.Enqueue)
		r.Get("/queue", queueH.List)
		r.Get("/queue/pending/count", queueH.PendingCount)
		r.Post("/queue/drain", queueH.Drain)
		r.Post("/queue/sweep", queueH.Sweep)
		r.Get("/queue/{id}", queueH.Get)
		r.Delete("/queue/{id}", queueH.Remove)
		r.Post("/queue/{id}/retry", queueH.Retry)

		// Cache
		r.Post("/cache/sweep", cacheH.Sweep)
		r.Delete("/cache", cacheH.Clear)
		r.Get("/cache/{key}", cacheH.Get)
		r.Delete("/cache/{key}", cacheH.Remove)

		// Network
		r.Get("/network", networkH.Status)
	})

	return r
}

package httpx

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/townready/townready/internal/core"
	"github.com/townready/townready/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Dispatcher TaskDispatcher
	Verifier   PushVerifier
	Jobs       core.JobStore
	Blobs      core.BlobStore
	Links      *service.LinkService
	KPI        *service.KPIService
	DB         *sql.DB
	Cache      core.CacheRepository

	Logger *slog.Logger
}

// NewRouter creates and configures the worker's HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	pushHandlers := &PushHandlers{
		Dispatcher: services.Dispatcher,
		Verifier:   services.Verifier,
		Logger:     services.Logger,
	}
	jobHandlers := &JobHandlers{Jobs: services.Jobs, Links: services.Links}
	objectHandlers := &ObjectHandlers{Blobs: services.Blobs, Links: services.Links}
	kpiHandlers := &KPIHandlers{Svc: services.KPI}
	healthHandlers := &HealthHandlers{DB: services.DB, Cache: services.Cache}

	mux.HandleFunc("POST /tasks/push", pushHandlers.Push)
	mux.HandleFunc("GET /api/jobs/{id}", jobHandlers.GetJob)
	mux.HandleFunc("POST /api/jobs/{id}/assets/refresh", jobHandlers.RefreshAssets)
	mux.HandleFunc("GET /api/jobs/{id}/kpi", kpiHandlers.ListKPI)
	mux.HandleFunc("GET /objects/{path...}", objectHandlers.GetObject)
	mux.HandleFunc("POST /webhook/kpi", kpiHandlers.IngestKPI)
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.HandleFunc("GET /health/db", healthHandlers.DBHealth)
	mux.HandleFunc("GET /health/cache", healthHandlers.CacheHealth)

	return mux
}

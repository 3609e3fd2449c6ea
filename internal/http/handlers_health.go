package httpx

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/townready/townready/internal/core"
)

var (
	errNoDatabase = errors.New("database is not configured")
	errNoCache    = errors.New("cache is not configured")
)

const healthResponse = `{"status":"ok"}`

// healthHandler returns a simple 200 OK status for readiness/liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// HealthHandlers exposes dependency health checks.
type HealthHandlers struct {
	DB *sql.DB
	// Cache is nil when the worker runs without Redis.
	Cache core.CacheRepository
}

// DBHealth is GET /health/db.
func (h *HealthHandlers) DBHealth(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "unavailable",
			Err:     errNoDatabase,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "unavailable", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CacheHealth is GET /health/cache.
func (h *HealthHandlers) CacheHealth(w http.ResponseWriter, r *http.Request) {
	if h.Cache == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "unavailable",
			Err:     errNoCache,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.Cache.Health(ctx); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "unavailable", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

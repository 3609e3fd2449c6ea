package httpx

import (
	"net/http"

	"github.com/townready/townready/internal/core"
	apperrors "github.com/townready/townready/internal/errors"
	"github.com/townready/townready/internal/service"
)

// JobHandlers handles job read and asset refresh endpoints.
type JobHandlers struct {
	Jobs  core.JobStore
	Links *service.LinkService
}

// GetJob is GET /api/jobs/{id}.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteAppError(w, apperrors.ValidationField("id", "job id is required"))
		return
	}

	job, err := h.Jobs.GetByID(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// RefreshAssets is POST /api/jobs/{id}/assets/refresh. Every known asset
// link is re-signed with a fresh issue time; the refresh counter in the
// response lets callers see concurrent refreshes.
func (h *JobHandlers) RefreshAssets(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteAppError(w, apperrors.ValidationField("id", "job id is required"))
		return
	}

	job, err := h.Links.Refresh(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"assets":               job.Assets,
		"assets_refresh_count": job.AssetsRefreshCount,
	})
}

package httpx

import (
	"encoding/json"
	"io"
	"net/http"

	apperrors "github.com/townready/townready/internal/errors"
	"github.com/townready/townready/internal/service"
)

const maxKPIPayloadBytes = 1 << 20

// KPIHandlers handles post-drill metric webhooks.
type KPIHandlers struct {
	Svc *service.KPIService
}

type kpiWebhookRequest struct {
	JobID string `json:"job_id"`
}

// IngestKPI is POST /webhook/kpi. The payload shape is whatever the drill
// tooling sends; only job_id is required here, the metric fields are pulled
// out by configured expressions.
func (h *KPIHandlers) IngestKPI(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxKPIPayloadBytes))
	if err != nil {
		WriteAppError(w, apperrors.Wrap(err, apperrors.ErrCodeValidation, "read webhook body"))
		return
	}

	var req kpiWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return
	}

	event, err := h.Svc.Ingest(r.Context(), req.JobID, body)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, event)
}

// ListKPI is GET /api/jobs/{id}/kpi.
func (h *KPIHandlers) ListKPI(w http.ResponseWriter, r *http.Request) {
	events, err := h.Svc.ListByJob(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, events)
}

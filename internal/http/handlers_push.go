package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/townready/townready/internal/adapters/queue"
	"github.com/townready/townready/internal/domain/model"
	apperrors "github.com/townready/townready/internal/errors"
	"github.com/townready/townready/internal/service"
)

// TaskDispatcher processes one task delivery and reports its acknowledgment.
type TaskDispatcher interface {
	Handle(ctx context.Context, inv model.TaskInvocation) service.Disposition
}

// PushVerifier authorizes incoming push deliveries.
type PushVerifier interface {
	VerifyAuthorization(ctx context.Context, header string) error
}

// PushHandlers handles queue push deliveries.
type PushHandlers struct {
	Dispatcher TaskDispatcher
	Verifier   PushVerifier
	Logger     *slog.Logger
}

// Push is POST /tasks/push. The response status is the acknowledgment the
// queue acts on: 2xx acks the delivery, anything else redelivers.
func (h *PushHandlers) Push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Verifier != nil {
		if err := h.Verifier.VerifyAuthorization(ctx, r.Header.Get("Authorization")); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "unauthorized", Err: err})
			return
		}
	}

	var env queue.PushEnvelope
	if !DecodeJSON(w, r, &env) {
		return
	}
	inv, err := env.DecodeInvocation()
	if err != nil {
		// A 400 lets the queue dead-letter the malformed delivery instead
		// of redelivering it forever.
		WriteAppError(w, err)
		return
	}

	switch h.Dispatcher.Handle(ctx, inv) {
	case service.Nack:
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "nack",
			Err:     apperrors.Internal("delivery not acknowledged"),
		})
	default:
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ack"})
	}
}

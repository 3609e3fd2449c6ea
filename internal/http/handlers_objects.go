package httpx

import (
	"net/http"
	"strconv"

	"github.com/townready/townready/internal/core"
	apperrors "github.com/townready/townready/internal/errors"
	"github.com/townready/townready/internal/service"
)

// ObjectHandlers serves stored artifacts behind signed links.
type ObjectHandlers struct {
	Blobs core.BlobStore
	Links *service.LinkService
}

// GetObject is GET /objects/{path...}. The signature covers the object
// path, issue time, and mint nonce; expiry is computed against the link
// TTL here, so a refreshed link works immediately without touching stored
// objects.
func (h *ObjectHandlers) GetObject(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	issued, err := strconv.ParseInt(r.URL.Query().Get("issued"), 10, 64)
	if err != nil {
		WriteAppError(w, apperrors.ValidationField("issued", "issued must be a unix timestamp"))
		return
	}

	if err := h.Links.VerifyLink(path, issued, r.URL.Query().Get("n"), r.URL.Query().Get("sig")); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: err})
		return
	}

	obj, err := h.Blobs.Get(r.Context(), path)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(obj.Data); err != nil {
		// Client went away mid-stream.
		return
	}
}

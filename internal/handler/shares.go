package handler

import (
	"log/slog"
	"net/http"

	"github.com/PaaDream1999/inspect-drive/internal/domain/services"
	"github.com/PaaDream1999/inspect-drive/internal/httputil"
)

// ShareHandler handles share registry HTTP requests
type ShareHandler struct {
	shares services.ShareService
	logger *slog.Logger
}

// NewShareHandler creates a new share handler
func NewShareHandler(shares services.ShareService, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		shares: shares,
		logger: logger,
	}
}

// Create creates or updates a share
// POST /api/files/share
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateShareRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.shares.CreateOrUpdate(r.Context(), httputil.GetPrincipal(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, result)
}

// List returns the caller's shares, pinned first
// GET /api/files/share
func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.shares.List(r.Context(), httputil.GetPrincipal(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"shares": views})
}

// Get resolves one share handle
// GET /api/files/share/{id}
func (h *ShareHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "share ID is required")
		return
	}

	view, err := h.shares.Get(r.Context(), httputil.GetPrincipal(r), id)
	if err != nil {
		handleContentError(w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, view)
}

// Delete removes one share
// DELETE /api/files/share/{id}
func (h *ShareHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "share ID is required")
		return
	}

	if err := h.shares.Delete(r.Context(), httputil.GetPrincipal(r), id); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"message": "share removed"})
}

// SetPin toggles pinning on a share
// PATCH /api/files/share/pin/{id}
func (h *ShareHandler) SetPin(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "share ID is required")
		return
	}

	var req struct {
		IsPinned bool `json:"isPinned"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	share, err := h.shares.SetPinned(r.Context(), httputil.GetPrincipal(r), id, req.IsPinned)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, share)
}

// DownloadFolder serves a zip archive of a folder share
// GET /api/files/download-folder/{shareId}
func (h *ShareHandler) DownloadFolder(w http.ResponseWriter, r *http.Request) {
	shareID := r.PathValue("shareId")
	if shareID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "share ID is required")
		return
	}

	content, err := h.shares.DownloadFolderArchive(r.Context(), httputil.GetPrincipal(r), shareID)
	if err != nil {
		handleContentError(w, r, err)
		return
	}

	setDisposition(w, "attachment", content.FileName)
	w.Header().Set("Content-Type", content.ContentType)
	w.Write(content.Data)
}

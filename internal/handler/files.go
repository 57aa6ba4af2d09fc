package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/PaaDream1999/inspect-drive/internal/config"
	"github.com/PaaDream1999/inspect-drive/internal/domain/services"
	"github.com/PaaDream1999/inspect-drive/internal/httputil"
)

// FileHandler handles file and namespace HTTP requests
type FileHandler struct {
	files     services.FileService
	namespace services.NamespaceService
	logger    *slog.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(files services.FileService, namespace services.NamespaceService, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		files:     files,
		namespace: namespace,
		logger:    logger,
	}
}

// HealthCheck reports liveness
// GET /health
func (h *FileHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Upload stores uploaded files
// POST /api/files/upload
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, false)
}

// UploadSecret stores uploaded files through the cipher pipeline
// POST /api/files/upload-secret
func (h *FileHandler) UploadSecret(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, true)
}

func (h *FileHandler) upload(w http.ResponseWriter, r *http.Request, secret bool) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	folderPath := r.FormValue("folderPath")

	var inputs []services.UploadInput
	for _, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				httputil.RespondError(w, http.StatusBadRequest, "unreadable file part")
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				httputil.RespondError(w, http.StatusBadRequest, "unreadable file part")
				return
			}

			// Browsers put the relative path in the file name on folder uploads
			inputs = append(inputs, services.UploadInput{
				RelativePath: joinUploadPath(folderPath, fh.Filename),
				ContentType:  fh.Header.Get("Content-Type"),
				Data:         data,
			})
		}
	}

	created, err := h.files.Upload(r.Context(), httputil.GetPrincipal(r), inputs, secret)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, map[string]interface{}{"files": created})
}

func joinUploadPath(folderPath, name string) string {
	if folderPath == "" {
		return name
	}
	return folderPath + "/" + name
}

// List returns one folder level of the caller's drive
// GET /api/files/list?folderPath=
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.files.List(r.Context(), httputil.GetPrincipal(r), r.URL.Query().Get("folderPath"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"files": entries})
}

// Move relocates a file or folder
// POST /api/files/move
func (h *FileHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req services.MoveRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.namespace.Move(r.Context(), httputil.GetPrincipal(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// Delete removes one file
// DELETE /api/files/delete/{fileId}
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")
	if fileID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "file ID is required")
		return
	}

	if err := h.namespace.DeleteFile(r.Context(), httputil.GetPrincipal(r), fileID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"message": "file deleted"})
}

// DeleteFolder removes a folder subtree
// DELETE /api/files/delete-folder?folderPath=
func (h *FileHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	result, err := h.namespace.DeleteFolder(r.Context(), httputil.GetPrincipal(r), r.URL.Query().Get("folderPath"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "folder deleted",
		"deletedCounts": result,
	})
}

// Download serves file content
// GET /api/files/download/{fileId}?key=
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")
	if fileID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "file ID is required")
		return
	}

	content, err := h.files.Download(r.Context(), httputil.GetPrincipal(r), fileID, r.URL.Query().Get("key"))
	if err != nil {
		handleContentError(w, r, err)
		return
	}

	h.logger.Info("file downloaded", "file_id", fileID, "client_ip", clientIP(r))

	setDisposition(w, "attachment", content.FileName)
	w.Header().Set("Content-Type", content.ContentType)
	w.Write(content.Data)
}

// Preview serves file content for inline rendering
// GET /api/files/preview/{fileId}
func (h *FileHandler) Preview(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")
	if fileID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "file ID is required")
		return
	}

	content, err := h.files.Preview(r.Context(), httputil.GetPrincipal(r), fileID)
	if err != nil {
		handleContentError(w, r, err)
		return
	}

	setDisposition(w, "inline", content.FileName)
	w.Header().Set("Content-Type", content.ContentType)
	w.Write(content.Data)
}

// ConfirmDownload destroys a secret file after its one permitted download
// POST /api/files/confirm-download/{fileId}?key=
func (h *FileHandler) ConfirmDownload(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")
	if fileID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "file ID is required")
		return
	}

	if err := h.files.ConfirmSecretDownload(r.Context(), fileID, r.URL.Query().Get("key")); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("secret file destroyed after download", "file_id", fileID, "client_ip", clientIP(r))

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"message": "secret file destroyed"})
}

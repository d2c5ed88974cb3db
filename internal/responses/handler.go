package responses

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/preconsulta/intake-platform/internal/http/middleware"
	"github.com/preconsulta/intake-platform/internal/uploads"
	"github.com/preconsulta/intake-platform/pkg/logging"
)

// FileStorage is the slice of the upload storage the dashboard needs:
// per-request read URLs and best-effort object deletion on response delete.
type FileStorage interface {
	SignedDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// Handler provides the clinician dashboard endpoints for finalized
// responses.
type Handler struct {
	responses Repository
	files     uploads.Repository
	storage   FileStorage
	logger    *logging.Logger
}

// NewHandler creates a dashboard responses handler.
func NewHandler(responses Repository, files uploads.Repository, storage FileStorage, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{responses: responses, files: files, storage: storage, logger: logger}
}

// List returns the clinician's responses with optional name, review-status
// and date-range filters.
// GET /dashboard/responses?nome=&status=&from=&to=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	filter := Filter{
		Name:   r.URL.Query().Get("nome"),
		Status: r.URL.Query().Get("status"),
	}
	if from, err := parseDate(r.URL.Query().Get("from")); err != nil {
		writeError(w, http.StatusBadRequest, "parâmetro from inválido")
		return
	} else {
		filter.From = from
	}
	if to, err := parseDate(r.URL.Query().Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, "parâmetro to inválido")
		return
	} else {
		filter.To = to
	}

	list, err := h.responses.List(r.Context(), ownerID, filter)
	if err != nil {
		h.logger.Error("response listing failed", "error", err, "owner_id", ownerID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if list == nil {
		list = []Response{}
	}
	writeJSON(w, http.StatusOK, list)
}

type fileItem struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"nome_arquivo"`
	DocType       string    `json:"tipo_documento"`
	StoragePath   string    `json:"path_storage"`
	CreatedAt     time.Time `json:"criado_em"`
	MimeType      string    `json:"tipo_mime"`
	SignedURL     string    `json:"signedUrl,omitempty"`
	SignedURLFail string    `json:"error,omitempty"`
}

// ListFiles returns the response's files with freshly generated short-lived
// read URLs. URLs are never cached server-side since they expire.
// POST /dashboard/responses/{id}/files
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	responseID, ok := responseIDFromURL(w, r)
	if !ok {
		return
	}

	if _, err := h.responses.GetByID(r.Context(), ownerID, responseID); err != nil {
		if err == ErrResponseNotFound {
			writeError(w, http.StatusNotFound, "resposta não encontrada")
			return
		}
		h.logger.Error("response lookup failed", "error", err, "response_id", responseID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	list, err := h.files.ListByResponse(r.Context(), responseID)
	if err != nil {
		h.logger.Error("file listing failed", "error", err, "response_id", responseID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items := make([]fileItem, 0, len(list))
	for _, f := range list {
		item := fileItem{
			ID:          f.ID,
			Name:        f.OriginalName,
			DocType:     f.DocType,
			StoragePath: f.StoragePath,
			CreatedAt:   f.CreatedAt,
			MimeType:    f.MimeType,
		}
		url, err := h.storage.SignedDownloadURL(r.Context(), f.StoragePath)
		if err != nil {
			h.logger.Error("download URL issuance failed", "error", err, "file_id", f.ID)
			item.SignedURLFail = "não foi possível gerar o link do arquivo"
		} else {
			item.SignedURL = url
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

type reviewedRequest struct {
	Reviewed bool `json:"revisado"`
}

// MarkReviewed sets the reviewed flag.
// PATCH /dashboard/responses/{id}/reviewed
func (h *Handler) MarkReviewed(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	responseID, ok := responseIDFromURL(w, r)
	if !ok {
		return
	}

	var req reviewedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	found, err := h.responses.SetReviewed(r.Context(), ownerID, responseID, req.Reviewed)
	if err != nil {
		h.logger.Error("reviewed update failed", "error", err, "response_id", responseID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "resposta não encontrada")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"revisado": req.Reviewed})
}

// Delete hard-deletes a response and, best-effort, its files' metadata and
// storage objects.
// DELETE /dashboard/responses/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	responseID, ok := responseIDFromURL(w, r)
	if !ok {
		return
	}

	files, err := h.files.ListByResponse(r.Context(), responseID)
	if err != nil {
		h.logger.Error("file listing before delete failed", "error", err, "response_id", responseID)
		files = nil
	}

	found, err := h.responses.Delete(r.Context(), ownerID, responseID)
	if err != nil {
		h.logger.Error("response delete failed", "error", err, "response_id", responseID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "resposta não encontrada")
		return
	}

	// File cleanup after the row is gone. Failures leave unreferenced
	// objects for the sweeper, never a half-deleted response.
	for _, f := range files {
		if err := h.storage.DeleteObject(r.Context(), f.StoragePath); err != nil {
			h.logger.Warn("storage object delete failed", "error", err, "path", f.StoragePath)
		}
		if err := h.files.Delete(r.Context(), f.ID); err != nil {
			h.logger.Warn("file metadata delete failed", "error", err, "file_id", f.ID)
		}
	}

	h.logger.Info("response deleted", "response_id", responseID, "owner_id", ownerID, "files", len(files))
	writeJSON(w, http.StatusOK, map[string]string{"message": "resposta excluída"})
}

func ownerFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return uuid.Nil, false
	}
	ownerID, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid owner id")
		return uuid.Nil, false
	}
	return ownerID, true
}

func responseIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id inválido")
		return uuid.Nil, false
	}
	return id, true
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

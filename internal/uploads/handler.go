package uploads

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/preconsulta/intake-platform/internal/observability/metrics"
	"github.com/preconsulta/intake-platform/pkg/logging"
)

// URLSigner issues signed upload URLs; satisfied by *Storage.
type URLSigner interface {
	SignedUploadURL(ctx context.Context, key, mimeType string) (string, error)
}

// Handler implements the two-phase pending upload stager: URL issuance and
// metadata registration. The two phases are independent calls; a crash
// between them leaves an unreferenced storage object for the sweeper.
type Handler struct {
	signer  URLSigner
	files   Repository
	metrics *metrics.IntakeMetrics
	logger  *logging.Logger
}

// NewHandler creates an uploads HTTP handler.
func NewHandler(signer URLSigner, files Repository, m *metrics.IntakeMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{signer: signer, files: files, metrics: m, logger: logger}
}

type uploadURLRequest struct {
	FileName            string `json:"fileName"`
	SubmissionAttemptID string `json:"submissionAttemptId"`
	TipoDocumento       string `json:"tipoDocumento"`
	MimeType            string `json:"tipoMime,omitempty"`
}

type uploadURLResponse struct {
	SignedURL string `json:"signedUrl"`
	Path      string `json:"path"`
}

// IssueUploadURL returns a short-lived signed PUT URL for a pending upload.
// POST /form/upload-url
func (h *Handler) IssueUploadURL(w http.ResponseWriter, r *http.Request) {
	var req uploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	req.FileName = strings.TrimSpace(req.FileName)
	req.SubmissionAttemptID = strings.TrimSpace(req.SubmissionAttemptID)
	if req.FileName == "" || req.SubmissionAttemptID == "" {
		http.Error(w, `{"error": "fileName and submissionAttemptId are required"}`, http.StatusBadRequest)
		return
	}
	if !ValidDocType(req.TipoDocumento) {
		http.Error(w, `{"error": "tipoDocumento must be foto or exame"}`, http.StatusBadRequest)
		return
	}

	key := BuildStorageKey(req.SubmissionAttemptID, req.TipoDocumento, req.FileName)
	url, err := h.signer.SignedUploadURL(r.Context(), key, req.MimeType)
	if err != nil {
		h.logger.Error("signed upload URL issuance failed", "error", err, "attempt_id", req.SubmissionAttemptID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	h.metrics.ObserveUploadURLIssued()
	h.logger.Info("signed upload URL issued",
		"attempt_id", req.SubmissionAttemptID,
		"doc_type", req.TipoDocumento,
		"path", key,
	)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(uploadURLResponse{SignedURL: url, Path: key})
}

type registerFileRequest struct {
	SubmissionAttemptID string `json:"submission_attempt_id"`
	OriginalName        string `json:"nome_arquivo_original"`
	StoragePath         string `json:"path_storage"`
	MimeType            string `json:"tipo_mime"`
	DocType             string `json:"tipo_documento"`
	SizeBytes           int64  `json:"tamanho_arquivo_bytes"`
}

func (req *registerFileRequest) validate() string {
	switch {
	case strings.TrimSpace(req.SubmissionAttemptID) == "":
		return "submission_attempt_id is required"
	case strings.TrimSpace(req.OriginalName) == "":
		return "nome_arquivo_original is required"
	case strings.TrimSpace(req.StoragePath) == "":
		return "path_storage is required"
	case strings.TrimSpace(req.MimeType) == "":
		return "tipo_mime is required"
	case !ValidDocType(req.DocType):
		return "tipo_documento must be foto or exame"
	case req.SizeBytes <= 0:
		return "tamanho_arquivo_bytes must be positive"
	}
	return ""
}

// RegisterFile records a pending file's metadata after the client completed
// the raw upload to the signed URL.
// POST /form/register-file
func (h *Handler) RegisterFile(w http.ResponseWriter, r *http.Request) {
	var req registerFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	file := &PendingFile{
		SubmissionAttemptID: req.SubmissionAttemptID,
		OriginalName:        req.OriginalName,
		StoragePath:         req.StoragePath,
		MimeType:            req.MimeType,
		SizeBytes:           req.SizeBytes,
		DocType:             req.DocType,
	}
	if err := h.files.Insert(r.Context(), file); err != nil {
		h.logger.Error("pending file registration failed", "error", err, "attempt_id", req.SubmissionAttemptID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	h.metrics.ObserveFileRegistered()
	h.logger.Info("pending file registered",
		"file_id", file.ID,
		"attempt_id", file.SubmissionAttemptID,
		"doc_type", file.DocType,
		"size_bytes", file.SizeBytes,
	)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "arquivo registrado"})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

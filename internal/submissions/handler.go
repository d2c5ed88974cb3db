package submissions

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/preconsulta/intake-platform/internal/links"
	"github.com/preconsulta/intake-platform/pkg/logging"
)

// Handler exposes the finalization endpoint of the patient form.
type Handler struct {
	finalizer *Finalizer
	logger    *logging.Logger
}

// NewHandler creates the submission handler.
func NewHandler(finalizer *Finalizer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{finalizer: finalizer, logger: logger}
}

type submitRequest struct {
	LinkID              string `json:"linkId"`
	SubmissionAttemptID string `json:"submissionAttemptId"`
	PatientName         string `json:"nomePaciente"`
	ChiefComplaint      string `json:"queixaPrincipal"`
	Medications         string `json:"medicacoesEmUso"`
	Allergies           string `json:"alergiasConhecidas"`
}

func (r *submitRequest) validate() string {
	if strings.TrimSpace(r.LinkID) == "" {
		return "linkId é obrigatório"
	}
	if strings.TrimSpace(r.SubmissionAttemptID) == "" {
		return "submissionAttemptId é obrigatório"
	}
	if strings.TrimSpace(r.PatientName) == "" {
		return "nomePaciente é obrigatório"
	}
	if strings.TrimSpace(r.ChiefComplaint) == "" {
		return "queixaPrincipal é obrigatória"
	}
	return ""
}

type submitResponse struct {
	Message    string `json:"message"`
	RespostaID string `json:"respostaId"`
}

// Submit finalizes the patient's intake attempt.
// POST /form/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	resp, reason, err := h.finalizer.Finalize(r.Context(), Submission{
		LinkCode:            req.LinkID,
		SubmissionAttemptID: req.SubmissionAttemptID,
		PatientName:         strings.TrimSpace(req.PatientName),
		ChiefComplaint:      strings.TrimSpace(req.ChiefComplaint),
		Medications:         strings.TrimSpace(req.Medications),
		Allergies:           strings.TrimSpace(req.Allergies),
	})
	if reason != links.ReasonValid {
		status, msg := rejectionStatus(reason)
		if status == http.StatusInternalServerError {
			h.logger.Error("finalization failed", "error", err, "attempt_id", req.SubmissionAttemptID)
		}
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		Message:    "resposta enviada com sucesso",
		RespostaID: resp.ID.String(),
	})
}

func rejectionStatus(reason links.Reason) (int, string) {
	switch reason {
	case links.ReasonMissingCode:
		return http.StatusBadRequest, "linkId é obrigatório"
	case links.ReasonNotFound:
		return http.StatusNotFound, "link não encontrado"
	case links.ReasonInactive:
		return http.StatusForbidden, "link desativado"
	case links.ReasonAlreadyUsed:
		return http.StatusForbidden, "link já utilizado"
	case links.ReasonExpired:
		return http.StatusForbidden, "link expirado"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package links

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/preconsulta/intake-platform/internal/http/middleware"
	"github.com/preconsulta/intake-platform/internal/observability/metrics"
	"github.com/preconsulta/intake-platform/pkg/logging"
)

// Handler provides the public link verification endpoint and the clinician
// link management endpoints.
type Handler struct {
	links         Repository
	validator     *Validator
	publicBaseURL string
	linkTTL       time.Duration
	metrics       *metrics.IntakeMetrics
	logger        *logging.Logger
}

// NewHandler creates a links HTTP handler.
func NewHandler(links Repository, validator *Validator, publicBaseURL string, linkTTL time.Duration, m *metrics.IntakeMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		links:         links,
		validator:     validator,
		publicBaseURL: publicBaseURL,
		linkTTL:       linkTTL,
		metrics:       m,
		logger:        logger,
	}
}

type verifyLinkRequest struct {
	LinkID string `json:"linkId"`
}

type linkDetails struct {
	LinkID  string `json:"link_id"`
	OwnerID string `json:"owner_id"`
}

type verifyLinkResponse struct {
	Status      string       `json:"status"`
	Reason      string       `json:"reason,omitempty"`
	LinkDetails *linkDetails `json:"linkDetails,omitempty"`
}

// VerifyLink checks a form-link code without consuming it.
// POST /form/verify-link
func (h *Handler) VerifyLink(w http.ResponseWriter, r *http.Request) {
	var req verifyLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	link, reason, err := h.validator.Validate(r.Context(), req.LinkID)
	h.metrics.ObserveLinkValidation(string(reason))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, verifyLinkResponse{Status: "invalid", Reason: string(ReasonInternal)})
		return
	}

	if reason != ReasonValid {
		status := http.StatusOK
		if reason == ReasonMissingCode {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, verifyLinkResponse{Status: "invalid", Reason: string(reason)})
		return
	}

	writeJSON(w, http.StatusOK, verifyLinkResponse{
		Status: "valid",
		LinkDetails: &linkDetails{
			LinkID:  link.ID.String(),
			OwnerID: link.OwnerID.String(),
		},
	})
}

type createdLink struct {
	FormLink
	URL string `json:"url"`
}

// CreateLink issues a new one-time link for the authenticated clinician.
// POST /dashboard/links
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	link, err := h.links.Create(r.Context(), ownerID, h.linkTTL)
	if err != nil {
		h.logger.Error("link creation failed", "error", err, "owner_id", ownerID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("form link created", "owner_id", ownerID, "link_id", link.ID)
	writeJSON(w, http.StatusCreated, createdLink{
		FormLink: *link,
		URL:      fmt.Sprintf("%s/formulario/%s", h.publicBaseURL, link.Code),
	})
}

// ListLinks returns the clinician's links, newest first.
// GET /dashboard/links
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	list, err := h.links.ListByOwner(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("link listing failed", "error", err, "owner_id", ownerID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []FormLink{}
	}
	writeJSON(w, http.StatusOK, list)
}

func ownerFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "unauthenticated"}`, http.StatusUnauthorized)
		return uuid.Nil, false
	}
	ownerID, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, `{"error": "invalid owner id"}`, http.StatusUnauthorized)
		return uuid.Nil, false
	}
	return ownerID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

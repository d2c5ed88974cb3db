package accounts

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/preconsulta/intake-platform/internal/http/middleware"
	"github.com/preconsulta/intake-platform/pkg/logging"
)

// Handler serves the authenticated clinician's own profile.
type Handler struct {
	profiles Repository
	logger   *logging.Logger
}

// NewHandler creates an accounts HTTP handler.
func NewHandler(profiles Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{profiles: profiles, logger: logger}
}

// Profile returns the clinician's profile with its subscription fields, so
// the dashboard can show plan, status and access expiry.
// GET /dashboard/profile
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	raw, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "unauthenticated"}`, http.StatusUnauthorized)
		return
	}
	ownerID, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, `{"error": "invalid owner id"}`, http.StatusUnauthorized)
		return
	}

	profile, err := h.profiles.GetByID(r.Context(), ownerID)
	if errors.Is(err, ErrProfileNotFound) {
		http.Error(w, `{"error": "perfil não encontrado"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("profile lookup failed", "error", err, "owner_id", ownerID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(profile)
}

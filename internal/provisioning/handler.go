package provisioning

import (
	"crypto/hmac"
	"encoding/json"
	"io"
	"net/http"

	"github.com/preconsulta/intake-platform/internal/observability/metrics"
	"github.com/preconsulta/intake-platform/pkg/logging"
)

const platformName = "hotmart"

// WebhookHandler receives payment-platform events and drives account
// provisioning. Callers authenticate with a static shared-secret header.
type WebhookHandler struct {
	secret      string
	provisioner *Provisioner
	processed   ProcessedTracker
	metrics     *metrics.IntakeMetrics
	logger      *logging.Logger
}

// NewWebhookHandler creates the Hotmart webhook handler.
func NewWebhookHandler(secret string, provisioner *Provisioner, processed ProcessedTracker, m *metrics.IntakeMetrics, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		secret:      secret,
		provisioner: provisioner,
		processed:   processed,
		metrics:     m,
		logger:      logger,
	}
}

// Handle processes one webhook delivery.
// POST /webhooks/hotmart
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" || !hmac.Equal([]byte(r.Header.Get("X-HOTMART-HOTTOK")), []byte(h.secret)) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	evt, err := ParseEvent(payload)
	if err != nil {
		h.logger.Error("failed to decode hotmart event", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	if evt.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing event id"})
		return
	}

	if done, err := h.processed.AlreadyProcessed(r.Context(), platformName, evt.ID); err != nil {
		h.logger.Error("processed lookup failed", "error", err, "event_id", evt.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	} else if done {
		h.metrics.ObserveWebhookEvent(evt.RawEvent, "duplicate")
		writeJSON(w, http.StatusOK, map[string]string{"message": "evento já processado"})
		return
	}

	switch evt.Kind {
	case KindPurchaseApproved, KindSubscriptionActivated:
		if err := h.provisioner.ProvisionPurchase(r.Context(), evt); err != nil {
			h.logger.Error("provisioning failed", "error", err, "event_id", evt.ID, "event", evt.RawEvent)
			h.metrics.ObserveWebhookEvent(evt.RawEvent, "error")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
			return
		}

	case KindSubscriptionCancellation, KindPurchaseCanceled, KindPurchaseRefunded, KindPurchaseChargeback:
		found, err := h.provisioner.Terminate(r.Context(), evt)
		if err != nil {
			h.logger.Error("status transition failed", "error", err, "event_id", evt.ID, "event", evt.RawEvent)
			h.metrics.ObserveWebhookEvent(evt.RawEvent, "error")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
			return
		}
		if !found {
			// Acknowledge to avoid retries; there is no account to transition.
			h.logger.Warn("no profile matched terminal event",
				"event_id", evt.ID,
				"event", evt.RawEvent,
				"subscriber_code", evt.SubscriberCode,
				"transaction", evt.Transaction,
			)
		}

	default:
		h.metrics.ObserveWebhookEvent(evt.RawEvent, "ignored")
		h.logger.Info("unrecognized hotmart event acknowledged", "event", evt.RawEvent, "event_id", evt.ID)
		writeJSON(w, http.StatusOK, map[string]string{"message": "evento ignorado"})
		return
	}

	if _, err := h.processed.MarkProcessed(r.Context(), platformName, evt.ID); err != nil {
		h.logger.Error("failed to record processed event", "error", err, "event_id", evt.ID)
	}
	h.metrics.ObserveWebhookEvent(evt.RawEvent, "processed")
	writeJSON(w, http.StatusOK, map[string]string{"message": "evento processado"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

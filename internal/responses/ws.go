package responses

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/preconsulta/intake-platform/internal/http/middleware"
	"github.com/preconsulta/intake-platform/pkg/logging"
)

// WSHandler pushes new-response notifications to connected dashboard
// clients over a websocket.
type WSHandler struct {
	notifier *RedisNotifier
	upgrader websocket.Upgrader
	logger   *logging.Logger
}

// NewWSHandler creates the websocket push handler.
func NewWSHandler(notifier *RedisNotifier, logger *logging.Logger) *WSHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WSHandler{
		notifier: notifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is enforced by the CORS middleware layer in front.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Serve upgrades the connection and forwards the clinician's notifications.
// GET /dashboard/ws
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
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

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "owner_id", ownerID)
		return
	}
	defer conn.Close()

	notes, stop := h.notifier.Subscribe(r.Context(), ownerID)
	defer stop()

	// Drain client frames so closes are noticed promptly.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.Info("dashboard websocket connected", "owner_id", ownerID)
	for {
		select {
		case note, ok := <-notes:
			if !ok {
				return
			}
			if err := conn.WriteJSON(note); err != nil {
				h.logger.Warn("websocket write failed", "error", err, "owner_id", ownerID)
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

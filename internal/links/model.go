package links

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrLinkNotFound indicates no form link exists for the given code.
var ErrLinkNotFound = errors.New("links: link not found")

// FormLink is a one-time, time-limited token granting a patient access to a
// clinician's intake form. It is consumed exactly once by a successful
// submission finalization.
type FormLink struct {
	ID        uuid.UUID  `json:"id"`
	Code      string     `json:"codigo"`
	OwnerID   uuid.UUID  `json:"owner_id"`
	Active    bool       `json:"ativo"`
	ExpiresAt time.Time  `json:"expira_em"`
	UsedAt    *time.Time `json:"usado_em,omitempty"`
	CreatedAt time.Time  `json:"criado_em"`
}

// Usable reports whether the link can still admit a submission at the given
// instant: active, never consumed and not expired.
func (l *FormLink) Usable(now time.Time) bool {
	return l.Active && l.UsedAt == nil && !now.After(l.ExpiresAt)
}

// Reason classifies the outcome of a link validation.
type Reason string

const (
	ReasonValid       Reason = ""
	ReasonMissingCode Reason = "missing_code"
	ReasonNotFound    Reason = "not_found"
	ReasonInactive    Reason = "inactive"
	ReasonAlreadyUsed Reason = "already_used"
	ReasonExpired     Reason = "expired"
	ReasonInternal    Reason = "internal_error"
)

// NewCode generates an opaque, URL-safe link code.
func NewCode() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}

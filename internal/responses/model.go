package responses

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrResponseNotFound indicates no response matched the id within the
// clinician's scope.
var ErrResponseNotFound = errors.New("responses: response not found")

// Response is a finalized patient intake submission.
type Response struct {
	ID             uuid.UUID `json:"id"`
	LinkID         uuid.UUID `json:"link_id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	PatientName    string    `json:"nome_paciente"`
	ChiefComplaint string    `json:"queixa_principal"`
	Medications    string    `json:"medicacoes_em_uso,omitempty"`
	Allergies      string    `json:"alergias_conhecidas,omitempty"`
	SubmittedAt    time.Time `json:"enviado_em"`
	Reviewed       bool      `json:"revisado"`
}

// Review status filter values.
const (
	StatusReviewed   = "reviewed"
	StatusUnreviewed = "unreviewed"
)

// Filter narrows a clinician's response listing.
type Filter struct {
	Name   string
	Status string
	From   *time.Time
	To     *time.Time
}

// Notification announces a freshly finalized response to dashboard clients.
type Notification struct {
	ResponseID  uuid.UUID `json:"resposta_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	PatientName string    `json:"nome_paciente"`
	SubmittedAt time.Time `json:"enviado_em"`
}

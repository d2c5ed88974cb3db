package accounts

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrProfileNotFound indicates no clinician profile matched the lookup.
var ErrProfileNotFound = errors.New("accounts: profile not found")

// Plan types provisioned by the payment platform.
const (
	PlanMensal = "mensal"
	PlanAnual  = "anual"
)

// Subscription statuses. The first two are live states; the rest are terminal
// states set by payment-platform events.
const (
	StatusAtivo       = "ativo"
	StatusTrial       = "trial"
	StatusCancelado   = "cancelado"
	StatusReembolsado = "reembolsado"
	StatusChargeback  = "chargeback"
	StatusInativo     = "inativo"
)

// Profile is a clinician account: identity plus subscription fields mutated
// by the provisioning webhook and by self-service profile edits.
type Profile struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	FullName           string     `json:"nome_completo"`
	PlanType           string     `json:"tipo_plano"`
	SubscriptionStatus string     `json:"status_assinatura"`
	AccessExpiresAt    *time.Time `json:"data_expiracao_acesso,omitempty"`
	SubscriberCode     string     `json:"codigo_assinante,omitempty"`
	TransactionID      string     `json:"transacao,omitempty"`
	CreatedAt          time.Time  `json:"criado_em"`
	UpdatedAt          time.Time  `json:"atualizado_em"`
}

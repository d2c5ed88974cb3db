package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/preconsulta/intake-platform/internal/accounts"
	"github.com/preconsulta/intake-platform/internal/notify"
	"github.com/preconsulta/intake-platform/pkg/logging"
)

// terminalStatusByKind maps terminal payment events onto subscription states.
var terminalStatusByKind = map[EventKind]string{
	KindSubscriptionCancellation: accounts.StatusCancelado,
	KindPurchaseCanceled:         accounts.StatusInativo,
	KindPurchaseRefunded:         accounts.StatusReembolsado,
	KindPurchaseChargeback:       accounts.StatusChargeback,
}

// Provisioner maps payment-platform events onto clinician account lifecycle
// transitions.
type Provisioner struct {
	accounts accounts.Repository
	welcome  *notify.WelcomeMailer
	now      func() time.Time
	logger   *logging.Logger
}

// NewProvisioner creates the account provisioner.
func NewProvisioner(repo accounts.Repository, welcome *notify.WelcomeMailer, logger *logging.Logger) *Provisioner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Provisioner{
		accounts: repo,
		welcome:  welcome,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// ProvisionPurchase creates or refreshes the clinician account for an
// approved purchase / activated subscription. Welcome email failures are
// logged, never surfaced: the account is already provisioned.
func (p *Provisioner) ProvisionPurchase(ctx context.Context, evt *Event) error {
	if evt.BuyerEmail == "" {
		return fmt.Errorf("provisioning: event %s has no buyer email", evt.ID)
	}

	plan, ok := ResolvePlan(evt.OfferCode, evt.PlanName)
	if !ok {
		return fmt.Errorf("provisioning: no plan for offer %q / name %q", evt.OfferCode, evt.PlanName)
	}

	approvedAt := evt.ApprovedAt
	if approvedAt.IsZero() {
		approvedAt = p.now()
	}
	expires := plan.AccessExpiry(approvedAt)

	_, lookupErr := p.accounts.GetByEmail(ctx, evt.BuyerEmail)
	if lookupErr != nil && !errors.Is(lookupErr, accounts.ErrProfileNotFound) {
		// A transient lookup failure must not classify a new account as
		// existing and silently skip its welcome email.
		return fmt.Errorf("provisioning: profile lookup for %s: %w", evt.BuyerEmail, lookupErr)
	}
	isNew := errors.Is(lookupErr, accounts.ErrProfileNotFound)

	profile := &accounts.Profile{
		Email:              evt.BuyerEmail,
		FullName:           evt.BuyerName,
		PlanType:           plan.Type,
		SubscriptionStatus: plan.Status,
		AccessExpiresAt:    &expires,
		SubscriberCode:     evt.SubscriberCode,
		TransactionID:      evt.Transaction,
	}
	if err := p.accounts.UpsertByEmail(ctx, profile); err != nil {
		return err
	}

	p.logger.Info("clinician account provisioned",
		"email", profile.Email,
		"plan", profile.PlanType,
		"status", profile.SubscriptionStatus,
		"expires_at", expires,
		"new_account", isNew,
	)

	if isNew && p.welcome != nil {
		if err := p.welcome.SendWelcome(ctx, profile.Email, profile.FullName); err != nil {
			p.logger.Warn("welcome email failed", "error", err, "email", profile.Email)
		}
	}
	return nil
}

// Terminate sets the terminal subscription status for the event's account,
// located by subscriber code with transaction id as fallback. A miss on both
// is reported to the caller as not-found, not as a hard failure.
func (p *Provisioner) Terminate(ctx context.Context, evt *Event) (bool, error) {
	status, ok := terminalStatusByKind[evt.Kind]
	if !ok {
		return false, fmt.Errorf("provisioning: %s is not a terminal event", evt.Kind)
	}

	if evt.SubscriberCode != "" {
		found, err := p.accounts.UpdateStatusBySubscriberCode(ctx, evt.SubscriberCode, status)
		if err != nil {
			return false, err
		}
		if found {
			p.logger.Info("subscription status updated", "subscriber_code", evt.SubscriberCode, "status", status)
			return true, nil
		}
	}

	if evt.Transaction != "" {
		found, err := p.accounts.UpdateStatusByTransaction(ctx, evt.Transaction, status)
		if err != nil {
			return false, err
		}
		if found {
			p.logger.Info("subscription status updated", "transaction", evt.Transaction, "status", status)
			return true, nil
		}
	}

	return false, nil
}

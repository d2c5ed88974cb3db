package provisioning

import (
	"strings"
	"time"

	"github.com/preconsulta/intake-platform/internal/accounts"
)

// Plan describes what a purchase grants: the plan type, the initial
// subscription status and how far access extends from the approval date.
type Plan struct {
	Type         string
	Status       string
	AccessMonths int
	TrialDays    int
}

// Static offer-code lookup. Offer codes are assigned in the payment
// platform's product configuration and never change for a live offer.
var planByOfferCode = map[string]Plan{
	"pc-mensal-01": {Type: accounts.PlanMensal, Status: accounts.StatusAtivo, AccessMonths: 1},
	"pc-anual-01":  {Type: accounts.PlanAnual, Status: accounts.StatusTrial, TrialDays: 7},
}

// ResolvePlan maps an offer code, falling back to the subscription plan name,
// onto a Plan. Monthly grants one month of access; annual starts as a 7-day
// trial.
func ResolvePlan(offerCode, planName string) (Plan, bool) {
	if plan, ok := planByOfferCode[strings.ToLower(strings.TrimSpace(offerCode))]; ok {
		return plan, true
	}
	name := strings.ToLower(planName)
	switch {
	case strings.Contains(name, "mensal"):
		return Plan{Type: accounts.PlanMensal, Status: accounts.StatusAtivo, AccessMonths: 1}, true
	case strings.Contains(name, "anual"):
		return Plan{Type: accounts.PlanAnual, Status: accounts.StatusTrial, TrialDays: 7}, true
	}
	return Plan{}, false
}

// AccessExpiry computes when access granted by the plan runs out, counted
// from the purchase approval date.
func (p Plan) AccessExpiry(approvedAt time.Time) time.Time {
	if p.TrialDays > 0 {
		return approvedAt.AddDate(0, 0, p.TrialDays)
	}
	return approvedAt.AddDate(0, p.AccessMonths, 0)
}

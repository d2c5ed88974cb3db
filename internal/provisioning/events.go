package provisioning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventKind is the closed set of payment-platform events this service acts
// on. Anything else decodes to KindUnknown and is acknowledged without
// mutation, per the platform's retry-avoidance contract.
type EventKind string

const (
	KindUnknown                  EventKind = ""
	KindPurchaseApproved         EventKind = "PURCHASE_APPROVED"
	KindSubscriptionActivated    EventKind = "SUBSCRIPTION_ACTIVATED"
	KindSubscriptionCancellation EventKind = "SUBSCRIPTION_CANCELLATION"
	KindPurchaseCanceled         EventKind = "PURCHASE_CANCELED"
	KindPurchaseRefunded         EventKind = "PURCHASE_REFUNDED"
	KindPurchaseChargeback       EventKind = "PURCHASE_CHARGEBACK"
)

var knownKinds = map[string]EventKind{
	string(KindPurchaseApproved):         KindPurchaseApproved,
	string(KindSubscriptionActivated):    KindSubscriptionActivated,
	string(KindSubscriptionCancellation): KindSubscriptionCancellation,
	string(KindPurchaseCanceled):         KindPurchaseCanceled,
	string(KindPurchaseRefunded):         KindPurchaseRefunded,
	string(KindPurchaseChargeback):       KindPurchaseChargeback,
}

// Event is the decoded webhook payload.
type Event struct {
	ID        string
	Kind      EventKind
	RawEvent  string
	CreatedAt time.Time

	BuyerEmail     string
	BuyerName      string
	Transaction    string
	ApprovedAt     time.Time
	OfferCode      string
	PurchaseStatus string
	SubscriberCode string
	PlanName       string
}

type hotmartPayload struct {
	ID           string `json:"id"`
	Event        string `json:"event"`
	CreationDate int64  `json:"creation_date"`
	Data         struct {
		Buyer struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"buyer"`
		Purchase struct {
			Transaction  string `json:"transaction"`
			ApprovedDate int64  `json:"approved_date"`
			Status       string `json:"status"`
			Offer        struct {
				Code string `json:"code"`
			} `json:"offer"`
		} `json:"purchase"`
		Subscription struct {
			Status     string `json:"status"`
			Subscriber struct {
				Code string `json:"code"`
			} `json:"subscriber"`
			Plan struct {
				Name string `json:"name"`
			} `json:"plan"`
		} `json:"subscription"`
	} `json:"data"`
}

// ParseEvent decodes the vendor payload into the closed event set. A payload
// naming an event outside the set yields Kind == KindUnknown, not an error;
// only malformed JSON fails.
func ParseEvent(payload []byte) (*Event, error) {
	var raw hotmartPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("provisioning: decode event: %w", err)
	}

	evt := &Event{
		ID:             raw.ID,
		Kind:           knownKinds[strings.ToUpper(strings.TrimSpace(raw.Event))],
		RawEvent:       raw.Event,
		BuyerEmail:     strings.ToLower(strings.TrimSpace(raw.Data.Buyer.Email)),
		BuyerName:      strings.TrimSpace(raw.Data.Buyer.Name),
		Transaction:    raw.Data.Purchase.Transaction,
		OfferCode:      raw.Data.Purchase.Offer.Code,
		PurchaseStatus: raw.Data.Purchase.Status,
		SubscriberCode: raw.Data.Subscription.Subscriber.Code,
		PlanName:       raw.Data.Subscription.Plan.Name,
	}
	if raw.CreationDate > 0 {
		evt.CreatedAt = time.UnixMilli(raw.CreationDate).UTC()
	}
	if raw.Data.Purchase.ApprovedDate > 0 {
		evt.ApprovedAt = time.UnixMilli(raw.Data.Purchase.ApprovedDate).UTC()
	}

	// The platform also signals cancellation as a status transition on an
	// otherwise-known purchase event.
	if evt.Kind == KindPurchaseApproved && strings.EqualFold(evt.PurchaseStatus, "CANCELED") {
		evt.Kind = KindPurchaseCanceled
	}

	return evt, nil
}

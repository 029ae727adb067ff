// Package payments defines the external payment-provider contract the
// settlement core depends on, plus the Stripe implementation. Provider calls
// are fallible I/O and stay outside database transactions wherever the
// result is not a required input to an atomic write.
package payments

import "context"

// Metadata keys stamped onto every intent so asynchronous events and reload
// verification can be tied back to a user and purpose.
const (
	MetaUserID  = "user_id"
	MetaPurpose = "purpose"

	PurposeOrderCheckout  = "order_checkout"
	PurposeGiftCardReload = "gift_card_reload"
)

const IntentSucceeded = "succeeded"

type Intent struct {
	ID                  string
	ClientSecret        string
	AmountCents         int64
	AmountReceivedCents int64
	Currency            string
	Status              string
	Metadata            map[string]string
}

// SettledCents is the amount the provider reports as actually captured,
// falling back to the authorized amount when the capture field is absent.
func (i Intent) SettledCents() int64 {
	if i.AmountReceivedCents > 0 {
		return i.AmountReceivedCents
	}
	return i.AmountCents
}

type EventType string

const (
	EventPaymentSucceeded EventType = "payment_intent.succeeded"
	EventPaymentFailed    EventType = "payment_intent.payment_failed"
	EventPaymentCanceled  EventType = "payment_intent.canceled"
)

// Event is an asynchronous provider notification, keyed by the intent it
// concerns. Deliveries may be duplicated and out of order.
type Event struct {
	ID       string    `json:"id"`
	Type     EventType `json:"type"`
	IntentID string    `json:"intent_id"`
}

type Provider interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (Intent, error)
	RetrieveIntent(ctx context.Context, id string) (Intent, error)
	CancelIntent(ctx context.Context, id string) error
	// VerifyWebhook checks the delivery signature and decodes the event.
	VerifyWebhook(payload []byte, signature string) (Event, error)
}

package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v76"
)

func TestFromStripeEvent(t *testing.T) {
	ev := stripe.Event{
		ID:   "evt_1",
		Type: "payment_intent.succeeded",
		Data: &stripe.EventData{Object: map[string]any{"id": "pi_1"}},
	}
	out := FromStripeEvent(ev)
	assert.Equal(t, "evt_1", out.ID)
	assert.Equal(t, EventPaymentSucceeded, out.Type)
	assert.Equal(t, "pi_1", out.IntentID)
}

func TestFromStripeEventWithoutObject(t *testing.T) {
	out := FromStripeEvent(stripe.Event{ID: "evt_2", Type: "charge.refunded"})
	assert.Equal(t, "evt_2", out.ID)
	assert.Empty(t, out.IntentID)
}

func TestIntentSettledCents(t *testing.T) {
	assert.Equal(t, int64(500), Intent{AmountCents: 700, AmountReceivedCents: 500}.SettledCents())
	assert.Equal(t, int64(700), Intent{AmountCents: 700}.SettledCents())
}

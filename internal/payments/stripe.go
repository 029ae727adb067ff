package payments

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/morningroast/brewpass/internal/fault"
)

// Stripe implements Provider against the Stripe API.
type Stripe struct {
	api           *client.API
	webhookSecret string
	log           zerolog.Logger
}

func NewStripe(secretKey, webhookSecret string, log zerolog.Logger) *Stripe {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Stripe{api: api, webhookSecret: webhookSecret, log: log}
}

func (s *Stripe) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, fault.Provider(err, "create payment intent")
	}
	if pi.ClientSecret == "" {
		return Intent{}, fault.Provider(nil, "payment intent %s has no client secret", pi.ID)
	}
	return fromStripeIntent(pi), nil
}

func (s *Stripe) RetrieveIntent(ctx context.Context, id string) (Intent, error) {
	pi, err := s.api.PaymentIntents.Get(id, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return Intent{}, fault.Provider(err, "retrieve payment intent %s", id)
	}
	return fromStripeIntent(pi), nil
}

func (s *Stripe) CancelIntent(ctx context.Context, id string) error {
	_, err := s.api.PaymentIntents.Cancel(id, &stripe.PaymentIntentCancelParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return fault.Provider(err, "cancel payment intent %s", id)
	}
	return nil
}

func (s *Stripe) VerifyWebhook(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		s.log.Warn().Err(err).Msg("stripe webhook signature rejected")
		return Event{}, fault.Signature(err, "stripe webhook signature verification failed")
	}
	return FromStripeEvent(ev), nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) Intent {
	return Intent{
		ID:                  pi.ID,
		ClientSecret:        pi.ClientSecret,
		AmountCents:         pi.Amount,
		AmountReceivedCents: pi.AmountReceived,
		Currency:            string(pi.Currency),
		Status:              string(pi.Status),
		Metadata:            pi.Metadata,
	}
}

// FromStripeEvent maps a verified Stripe event onto the provider-neutral
// shape. Unrecognized event types keep their raw type string so the
// reconciler can log and drop them.
func FromStripeEvent(ev stripe.Event) Event {
	out := Event{ID: ev.ID, Type: EventType(ev.Type)}
	if ev.Data != nil {
		if id, ok := ev.Data.Object["id"].(string); ok {
			out.IntentID = id
		}
	}
	return out
}

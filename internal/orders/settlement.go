package orders

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/morningroast/brewpass/internal/cart"
	"github.com/morningroast/brewpass/internal/fault"
	kafkax "github.com/morningroast/brewpass/internal/kafka"
	"github.com/morningroast/brewpass/internal/ledger"
	"github.com/morningroast/brewpass/internal/payments"
)

// Settlement turns a priced cart into an immutable order. It is the only
// place free-drink credits and gift-card dollars are irreversibly consumed.
type Settlement struct {
	Orders   *Repo
	Cart     *cart.Repo
	Ledger   *ledger.Repo
	Provider payments.Provider
	Producer *kafkax.Producer // settlement events, may be nil in tests
	Service  string

	Currency              string
	ReloadMaxCents        int64
	PointsPerReloadDollar int

	Log zerolog.Logger
}

// CheckoutIntent is handed back to the client to complete a card payment.
type CheckoutIntent struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
}

func (s *Settlement) pricedCart(ctx context.Context, userID int64) ([]cart.Line, int64, int, error) {
	lines, err := s.Cart.Lines(ctx, userID)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(lines) == 0 {
		return nil, 0, 0, fault.Invalid("your cart is empty")
	}
	amount, freeDrinks := Totals(lines)
	return lines, amount, freeDrinks, nil
}

// CreateCheckoutIntent opens an external payment intent for the cart total
// and persists the order in PENDING with a snapshot of the cart. Ledger
// balances are untouched until payment confirms. If the order row cannot be
// written after the provider accepted the intent, the intent is cancelled so
// no charge authorization is left orphaned.
func (s *Settlement) CreateCheckoutIntent(ctx context.Context, userID int64) (CheckoutIntent, error) {
	lines, amount, freeDrinks, err := s.pricedCart(ctx, userID)
	if err != nil {
		return CheckoutIntent{}, err
	}
	if amount <= 0 {
		return CheckoutIntent{}, fault.Invalid("cart total must be greater than zero")
	}

	acct, err := s.Ledger.Account(ctx, userID)
	if err != nil {
		return CheckoutIntent{}, err
	}
	if freeDrinks > acct.FreeCoffeeCredits {
		return CheckoutIntent{}, fault.InsufficientCredit("cart redeems %d free drinks but only %d credits are available",
			freeDrinks, acct.FreeCoffeeCredits)
	}

	intent, err := s.Provider.CreateIntent(ctx, amount, s.Currency, map[string]string{
		payments.MetaUserID:  strconv.FormatInt(userID, 10),
		payments.MetaPurpose: payments.PurposeOrderCheckout,
	})
	if err != nil {
		s.Log.Error().Err(err).Int64("user_id", userID).Msg("payment intent creation failed")
		return CheckoutIntent{}, fault.Provider(err, "unable to start checkout, please try again")
	}

	o := Order{
		ID:                 uuid.NewString(),
		UserID:             userID,
		PaymentIntentID:    intent.ID,
		AmountCents:        amount,
		Currency:           s.Currency,
		Status:             StatusPending,
		FreeDrinksRedeemed: freeDrinks,
	}
	if err := s.Orders.InsertPending(ctx, o, Snapshot(o.ID, lines)); err != nil {
		s.Log.Error().Err(err).Str("intent_id", intent.ID).Msg("failed to persist pending order")
		if cancelErr := s.Provider.CancelIntent(ctx, intent.ID); cancelErr != nil {
			s.Log.Warn().Err(cancelErr).Str("intent_id", intent.ID).Msg("failed to cancel orphaned payment intent")
		}
		return CheckoutIntent{}, fault.Provider(err, "unable to save order, please try again")
	}

	return CheckoutIntent{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountCents:     amount,
		Currency:        s.Currency,
	}, nil
}

// GiftCardCheckout settles the cart against the gift-card balance in one
// atomic unit. The loser of a concurrent race over the same balance fails
// with InsufficientFunds rather than overdrawing.
func (s *Settlement) GiftCardCheckout(ctx context.Context, userID int64) (Order, error) {
	lines, amount, freeDrinks, err := s.pricedCart(ctx, userID)
	if err != nil {
		return Order{}, err
	}
	if amount <= 0 {
		return Order{}, fault.Invalid("cart total must be greater than zero")
	}

	o := Order{
		ID:                 uuid.NewString(),
		UserID:             userID,
		PaymentIntentID:    "giftcard_" + uuid.NewString(),
		AmountCents:        amount,
		Currency:           s.Currency,
		Status:             StatusPaid,
		FreeDrinksRedeemed: freeDrinks,
	}
	if err := s.Orders.SettleWithGiftCard(ctx, o, Snapshot(o.ID, lines), cart.QualifyingUnits(lines)); err != nil {
		return Order{}, err
	}

	s.publishSettled(o)
	return o, nil
}

// FreeCheckout settles a zero-amount cart made up of free-drink redemptions.
func (s *Settlement) FreeCheckout(ctx context.Context, userID int64) (Order, error) {
	lines, amount, freeDrinks, err := s.pricedCart(ctx, userID)
	if err != nil {
		return Order{}, err
	}
	if amount != 0 || freeDrinks < 1 {
		return Order{}, fault.Invalid("free checkout requires a cart of free drinks only")
	}

	o := Order{
		ID:                 uuid.NewString(),
		UserID:             userID,
		PaymentIntentID:    "free_" + uuid.NewString(),
		AmountCents:        0,
		Currency:           s.Currency,
		Status:             StatusPaid,
		FreeDrinksRedeemed: freeDrinks,
	}
	if err := s.Orders.SettleFree(ctx, o, Snapshot(o.ID, lines), cart.QualifyingUnits(lines)); err != nil {
		return Order{}, err
	}

	s.publishSettled(o)
	return o, nil
}

// ConfirmCardPayment is the client-driven confirmation path, called after the
// provider reported success client-side. Re-confirming an already-PAID order
// returns the same result with no duplicate ledger effects.
func (s *Settlement) ConfirmCardPayment(ctx context.Context, userID int64, intentID string) (Order, error) {
	o, err := s.Orders.OrderByIntent(ctx, intentID)
	if err != nil {
		return Order{}, err
	}
	if o.UserID != userID {
		return Order{}, fault.NotFound("order not found")
	}
	if o.Status == StatusPaid {
		return o, nil
	}

	intent, err := s.Provider.RetrieveIntent(ctx, intentID)
	if err != nil {
		s.Log.Error().Err(err).Str("intent_id", intentID).Msg("intent retrieval failed during confirmation")
		return Order{}, fault.Provider(err, "unable to verify payment, please try again")
	}
	if intent.Status != payments.IntentSucceeded {
		return Order{}, fault.Invalid("payment has not completed yet")
	}

	out, err := s.Orders.ApplyPaymentOutcome(ctx, intentID, StatusPaid)
	if err != nil {
		return Order{}, err
	}
	if out.Applied {
		s.publishSettled(out.Order)
	}
	return out.Order, nil
}

// CreateReloadIntent opens a provider intent for a gift-card reload. No local
// state is written; the reload is applied only when the paid intent is
// presented to ReloadGiftCard.
func (s *Settlement) CreateReloadIntent(ctx context.Context, userID, amountCents int64) (CheckoutIntent, error) {
	if amountCents <= 0 {
		return CheckoutIntent{}, fault.Invalid("reload amount must be greater than zero")
	}
	if amountCents > s.ReloadMaxCents {
		return CheckoutIntent{}, fault.Invalid("single reloads are limited to %d cents", s.ReloadMaxCents)
	}

	intent, err := s.Provider.CreateIntent(ctx, amountCents, s.Currency, map[string]string{
		payments.MetaUserID:  strconv.FormatInt(userID, 10),
		payments.MetaPurpose: payments.PurposeGiftCardReload,
	})
	if err != nil {
		s.Log.Error().Err(err).Int64("user_id", userID).Msg("reload intent creation failed")
		return CheckoutIntent{}, fault.Provider(err, "unable to start reload, please try again")
	}

	return CheckoutIntent{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountCents:     amountCents,
		Currency:        s.Currency,
	}, nil
}

// ReloadGiftCard verifies the settled provider intent and atomically credits
// the gift-card balance, logs the refill, and awards the reload bonus points.
// Replaying the same intent id is rejected as already processed.
func (s *Settlement) ReloadGiftCard(ctx context.Context, userID, requestedCents int64, intentID string) (ledger.Summary, error) {
	if requestedCents <= 0 {
		return ledger.Summary{}, fault.Invalid("reload amount must be greater than zero")
	}
	if requestedCents > s.ReloadMaxCents {
		return ledger.Summary{}, fault.Invalid("single reloads are limited to %d cents", s.ReloadMaxCents)
	}

	note := ReloadNote(intentID)
	if seen, err := s.Ledger.HasReloadNote(ctx, userID, note); err != nil {
		return ledger.Summary{}, err
	} else if seen {
		return ledger.Summary{}, fault.Conflict("this reload has already been processed")
	}

	intent, err := s.Provider.RetrieveIntent(ctx, intentID)
	if err != nil {
		s.Log.Error().Err(err).Str("intent_id", intentID).Msg("reload intent retrieval failed")
		return ledger.Summary{}, fault.Provider(err, "unable to verify payment, please try again")
	}
	if err := ValidateReloadIntent(intent, userID, requestedCents, s.Currency); err != nil {
		return ledger.Summary{}, err
	}

	settled := intent.SettledCents()
	bonus := int(settled) * s.PointsPerReloadDollar / 100
	bonusReason := fmt.Sprintf("Reload bonus (+%d pts per $1)", s.PointsPerReloadDollar)
	if err := s.Ledger.Reload(ctx, userID, settled, note, bonus, bonusReason); err != nil {
		return ledger.Summary{}, err
	}

	s.publishReloaded(userID, settled, bonus, intentID)
	return s.Ledger.Summary(ctx, userID)
}

// ReloadNote embeds the provider intent id into the audit note; the note is
// the replay-detection key for reloads.
func ReloadNote(intentID string) string {
	return "Stripe reload " + intentID
}

// ValidateReloadIntent enforces that the provider intent really is this
// user's settled gift-card reload for the requested amount and currency.
func ValidateReloadIntent(intent payments.Intent, userID, requestedCents int64, currency string) error {
	if intent.Metadata[payments.MetaPurpose] != payments.PurposeGiftCardReload {
		return fault.Invalid("payment intent is not a gift card reload")
	}
	if intent.Metadata[payments.MetaUserID] != strconv.FormatInt(userID, 10) {
		return fault.Invalid("payment intent does not belong to this user")
	}
	if intent.Status != payments.IntentSucceeded {
		return fault.Invalid("payment has not completed yet")
	}
	settled := intent.SettledCents()
	if settled <= 0 {
		return fault.Invalid("provider did not report a valid reload amount")
	}
	if settled != requestedCents {
		return fault.Invalid("payment amount does not match the requested reload")
	}
	if intent.Currency != currency {
		return fault.Invalid("unsupported currency for gift card reload")
	}
	return nil
}

func (s *Settlement) publishSettled(o Order) {
	if s.Producer == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderSettled,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Service,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(OrderSettledPayload{
			OrderID:            o.ID,
			UserID:             o.UserID,
			Status:             o.Status,
			AmountCents:        o.AmountCents,
			FreeDrinksRedeemed: o.FreeDrinksRedeemed,
		}),
	}
	s.Producer.Publish(PartitionKey(o.PaymentIntentID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderSettled)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Settlement) publishReloaded(userID, amountCents int64, points int, intentID string) {
	if s.Producer == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventGiftCardReloaded,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Service,
		CorrelationID: intentID,
		Payload: kafkax.MustMarshal(GiftCardReloadedPayload{
			UserID:       userID,
			AmountCents:  amountCents,
			PointsEarned: points,
			IntentID:     intentID,
		}),
	}
	s.Producer.Publish(PartitionKey(intentID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventGiftCardReloaded)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

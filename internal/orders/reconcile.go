package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/morningroast/brewpass/internal/fault"
	kafkax "github.com/morningroast/brewpass/internal/kafka"
	"github.com/morningroast/brewpass/internal/payments"
	"github.com/morningroast/brewpass/internal/redisx"
)

// OutcomeApplier is the slice of the order repo the reconciler needs; tests
// substitute an in-memory implementation.
type OutcomeApplier interface {
	ApplyPaymentOutcome(ctx context.Context, intentID string, to Status) (Outcome, error)
}

var eventStatus = map[payments.EventType]Status{
	payments.EventPaymentSucceeded: StatusPaid,
	payments.EventPaymentFailed:    StatusFailed,
	payments.EventPaymentCanceled:  StatusCanceled,
}

// Reconciler consumes asynchronous, possibly-duplicated, possibly-out-of-order
// payment notifications and advances the order state machine idempotently.
// Events that are not actionable (unknown type, unknown intent, already
// terminal) are absorbed, not surfaced: the sender is an automated
// retry-capable system, not a user.
type Reconciler struct {
	Orders   OutcomeApplier
	Redis    *redis.Client    // optional dedup fast-path; Postgres stays authoritative
	Producer *kafkax.Producer // optional settled-event publisher
	Service  string
	Log      zerolog.Logger
}

// HandleEvent applies one provider event. A non-nil return means transient
// infrastructure failure and the delivery should be retried.
func (r *Reconciler) HandleEvent(ctx context.Context, ev payments.Event) error {
	to, ok := eventStatus[ev.Type]
	if !ok {
		r.Log.Debug().Str("event_type", string(ev.Type)).Msg("unhandled payment event type")
		return nil
	}
	if ev.IntentID == "" {
		r.Log.Warn().Str("event_id", ev.ID).Msg("payment event without intent id")
		return nil
	}

	var dkey string
	if r.Redis != nil && ev.ID != "" {
		dkey = fmt.Sprintf(redisx.KeyDedup, r.Service, ev.ID)
		if seen, _ := redisx.Exists(ctx, r.Redis, dkey); seen {
			return nil
		}
	}

	out, err := r.Orders.ApplyPaymentOutcome(ctx, ev.IntentID, to)
	if fault.IsKind(err, fault.KindNotFound) {
		// The intent may belong to another flow (reloads) or predate tracking.
		r.Log.Warn().Str("intent_id", ev.IntentID).Msg("no order for payment intent")
		r.markSeen(ctx, dkey)
		return nil
	}
	if err != nil {
		// The event stays unmarked so the sender's retry gets processed.
		return err
	}
	r.markSeen(ctx, dkey)

	if !out.Applied {
		r.Log.Debug().
			Str("intent_id", ev.IntentID).
			Str("status", string(out.Order.Status)).
			Msg("payment event replay absorbed")
		return nil
	}

	r.Log.Info().
		Str("order_id", out.Order.ID).
		Str("status", string(out.Order.Status)).
		Int("free_drinks_redeemed", out.Redeemed).
		Msg("order settled from payment event")

	r.publishSettled(out.Order)

	if r.Redis != nil {
		skey := fmt.Sprintf(redisx.KeyOrderStatus, out.Order.UserID, out.Order.ID)
		body, _ := json.Marshal(map[string]any{"status": out.Order.Status})
		_ = r.Redis.Set(ctx, skey, body, redisx.TTLStatusCache).Err()
	}
	return nil
}

// markSeen records the event id only once the outcome is durably applied.
// Marking before the write would let a transient database failure eat the
// sender's retry for good.
func (r *Reconciler) markSeen(ctx context.Context, key string) {
	if r.Redis == nil || key == "" {
		return
	}
	_ = r.Redis.Set(ctx, key, "1", redisx.TTLDedup).Err()
}

// HandleKafkaMessage adapts bridged payment events from the payments.events
// topic into HandleEvent; installed as the consumer handler in cmd/reconciler.
func (r *Reconciler) HandleKafkaMessage(ctx context.Context, m kafkago.Message) error {
	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		r.Log.Warn().Err(err).Msg("malformed payment event envelope")
		return nil // poison message, do not redeliver forever
	}
	if env.EventType != EventPaymentNotice {
		return nil
	}

	ev, err := kafkax.UnwrapPayload[payments.Event](env.Payload)
	if err != nil {
		r.Log.Warn().Err(err).Str("event_id", env.EventID).Msg("malformed payment event payload")
		return nil
	}
	if ev.ID == "" {
		ev.ID = env.EventID
	}
	return r.HandleEvent(ctx, ev)
}

func (r *Reconciler) publishSettled(o Order) {
	if r.Producer == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderSettled,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      r.Service,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(OrderSettledPayload{
			OrderID:            o.ID,
			UserID:             o.UserID,
			Status:             o.Status,
			AmountCents:        o.AmountCents,
			FreeDrinksRedeemed: o.FreeDrinksRedeemed,
		}),
	}
	r.Producer.Publish(PartitionKey(o.PaymentIntentID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderSettled)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

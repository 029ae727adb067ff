package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morningroast/brewpass/internal/fault"
	"github.com/morningroast/brewpass/internal/payments"
)

// memOrders applies the same status-machine contract as the pg repo: locked
// transition, replay no-op, redemption only on the move into PAID.
type memOrders struct {
	mu       sync.Mutex
	byIntent map[string]*Order
	redeemed int
}

func newMemOrders(orders ...Order) *memOrders {
	m := &memOrders{byIntent: map[string]*Order{}}
	for _, o := range orders {
		c := o
		m.byIntent[o.PaymentIntentID] = &c
	}
	return m
}

func (m *memOrders) ApplyPaymentOutcome(_ context.Context, intentID string, to Status) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.byIntent[intentID]
	if !ok {
		return Outcome{}, fault.NotFound("no order for payment intent %s", intentID)
	}
	if o.Status == to || !CanTransition(o.Status, to) {
		return Outcome{Order: *o}, nil
	}
	o.Status = to
	redeemed := 0
	if to == StatusPaid {
		redeemed = o.FreeDrinksRedeemed
		m.redeemed += redeemed
	}
	return Outcome{Order: *o, Applied: true, Redeemed: redeemed}, nil
}

func newTestReconciler(store *memOrders) *Reconciler {
	return &Reconciler{Orders: store, Service: "test", Log: zerolog.Nop()}
}

func pendingOrder(intentID string, freeDrinks int) Order {
	return Order{
		ID:                 "ord-" + intentID,
		UserID:             1,
		PaymentIntentID:    intentID,
		AmountCents:        1200,
		Currency:           "usd",
		Status:             StatusPending,
		FreeDrinksRedeemed: freeDrinks,
	}
}

func TestReconcilerReplayIsIdempotent(t *testing.T) {
	store := newMemOrders(pendingOrder("pi_1", 2))
	rec := newTestReconciler(store)
	ev := payments.Event{ID: "evt_1", Type: payments.EventPaymentSucceeded, IntentID: "pi_1"}

	require.NoError(t, rec.HandleEvent(context.Background(), ev))
	require.NoError(t, rec.HandleEvent(context.Background(), ev))

	assert.Equal(t, StatusPaid, store.byIntent["pi_1"].Status)
	assert.Equal(t, 2, store.redeemed, "duplicate delivery must redeem exactly once")
}

func TestReconcilerAbsorbsUnknownIntent(t *testing.T) {
	rec := newTestReconciler(newMemOrders())
	ev := payments.Event{ID: "evt_1", Type: payments.EventPaymentSucceeded, IntentID: "pi_missing"}
	assert.NoError(t, rec.HandleEvent(context.Background(), ev))
}

func TestReconcilerIgnoresUnknownEventType(t *testing.T) {
	store := newMemOrders(pendingOrder("pi_1", 0))
	rec := newTestReconciler(store)
	ev := payments.Event{ID: "evt_1", Type: "payment_intent.created", IntentID: "pi_1"}

	require.NoError(t, rec.HandleEvent(context.Background(), ev))
	assert.Equal(t, StatusPending, store.byIntent["pi_1"].Status)
}

func TestReconcilerAbsorbsOutOfOrderTerminalEvents(t *testing.T) {
	store := newMemOrders(pendingOrder("pi_1", 1))
	rec := newTestReconciler(store)

	require.NoError(t, rec.HandleEvent(context.Background(),
		payments.Event{ID: "evt_1", Type: payments.EventPaymentSucceeded, IntentID: "pi_1"}))
	require.NoError(t, rec.HandleEvent(context.Background(),
		payments.Event{ID: "evt_2", Type: payments.EventPaymentCanceled, IntentID: "pi_1"}))

	assert.Equal(t, StatusPaid, store.byIntent["pi_1"].Status, "terminal state must not be overwritten")
	assert.Equal(t, 1, store.redeemed)
}

func TestReconcilerFailureDoesNotRedeem(t *testing.T) {
	store := newMemOrders(pendingOrder("pi_1", 3))
	rec := newTestReconciler(store)

	require.NoError(t, rec.HandleEvent(context.Background(),
		payments.Event{ID: "evt_1", Type: payments.EventPaymentFailed, IntentID: "pi_1"}))

	assert.Equal(t, StatusFailed, store.byIntent["pi_1"].Status)
	assert.Zero(t, store.redeemed)
}

// flakyOrders fails a configured number of applies before delegating, like a
// database hiccup between deliveries.
type flakyOrders struct {
	inner    *memOrders
	failures int
}

func (f *flakyOrders) ApplyPaymentOutcome(ctx context.Context, intentID string, to Status) (Outcome, error) {
	if f.failures > 0 {
		f.failures--
		return Outcome{}, errors.New("connection reset by peer")
	}
	return f.inner.ApplyPaymentOutcome(ctx, intentID, to)
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

// A transient apply failure must leave the event unmarked in the dedup cache
// so the sender's retry still lands.
func TestReconcilerRetryAfterTransientFailure(t *testing.T) {
	store := newMemOrders(pendingOrder("pi_1", 1))
	rec := &Reconciler{
		Orders:  &flakyOrders{inner: store, failures: 1},
		Redis:   testRedis(t),
		Service: "test",
		Log:     zerolog.Nop(),
	}
	ev := payments.Event{ID: "evt_1", Type: payments.EventPaymentSucceeded, IntentID: "pi_1"}

	require.Error(t, rec.HandleEvent(context.Background(), ev))
	assert.Equal(t, StatusPending, store.byIntent["pi_1"].Status)

	require.NoError(t, rec.HandleEvent(context.Background(), ev))
	assert.Equal(t, StatusPaid, store.byIntent["pi_1"].Status)
	assert.Equal(t, 1, store.redeemed)
}

func TestReconcilerDedupMarksProcessedEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := newMemOrders(pendingOrder("pi_1", 1))
	rec := &Reconciler{Orders: store, Redis: rdb, Service: "test", Log: zerolog.Nop()}
	ev := payments.Event{ID: "evt_1", Type: payments.EventPaymentSucceeded, IntentID: "pi_1"}

	require.NoError(t, rec.HandleEvent(context.Background(), ev))
	assert.True(t, mr.Exists("dedup:test:evt_1"))
	assert.True(t, mr.Exists("order_status:1:ord-pi_1"))

	require.NoError(t, rec.HandleEvent(context.Background(), ev))
	assert.Equal(t, 1, store.redeemed)
}

func TestReconcilerDropsEventWithoutIntent(t *testing.T) {
	store := newMemOrders(pendingOrder("pi_1", 1))
	rec := newTestReconciler(store)
	assert.NoError(t, rec.HandleEvent(context.Background(),
		payments.Event{ID: "evt_1", Type: payments.EventPaymentSucceeded}))
	assert.Equal(t, StatusPending, store.byIntent["pi_1"].Status)
}

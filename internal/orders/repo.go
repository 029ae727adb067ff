package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morningroast/brewpass/internal/fault"
	"github.com/morningroast/brewpass/internal/ledger"
)

type Repo struct {
	DB        *pgxpool.Pool
	Threshold int
}

const orderColumns = `id, user_id, payment_intent_id, amount_cents, currency, status, free_drinks_redeemed, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.PaymentIntentID, &o.AmountCents, &o.Currency,
		&o.Status, &o.FreeDrinksRedeemed, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func insertOrderTx(ctx context.Context, tx pgx.Tx, o Order, snaps []LineSnapshot) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, payment_intent_id, amount_cents, currency, status, free_drinks_redeemed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.UserID, o.PaymentIntentID, o.AmountCents, o.Currency, o.Status, o.FreeDrinksRedeemed); err != nil {
		return err
	}
	for _, s := range snaps {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items
				(order_id, menu_item_id, name, unit_price_cents, quantity, milk_option, espresso_shots, flavor_name, flavor_pumps, is_free_drink)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			o.ID, s.MenuItemID, s.Name, s.UnitPriceCents, s.Quantity,
			s.MilkOption, s.EspressoShots, s.FlavorName, s.FlavorPumps, s.IsFreeDrink); err != nil {
			return err
		}
	}
	return nil
}

// InsertPending persists the order row and its line snapshots. Ledger
// balances are untouched; they are consumed only once payment confirms.
func (r *Repo) InsertPending(ctx context.Context, o Order, snaps []LineSnapshot) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertOrderTx(ctx, tx, o, snaps); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) OrderByIntent(ctx context.Context, intentID string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_intent_id=$1`, intentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fault.NotFound("no order for payment intent %s", intentID)
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) OrderByID(ctx context.Context, userID int64, orderID string) (Order, []LineSnapshot, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1 AND user_id=$2`, orderID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, nil, fault.NotFound("order not found")
	}
	if err != nil {
		return Order{}, nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, menu_item_id, name, unit_price_cents, quantity,
		       milk_option, espresso_shots, flavor_name, flavor_pumps, is_free_drink
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return Order{}, nil, err
	}
	defer rows.Close()

	snaps := []LineSnapshot{}
	for rows.Next() {
		var s LineSnapshot
		if err := rows.Scan(&s.ID, &s.OrderID, &s.MenuItemID, &s.Name, &s.UnitPriceCents,
			&s.Quantity, &s.MilkOption, &s.EspressoShots, &s.FlavorName, &s.FlavorPumps, &s.IsFreeDrink); err != nil {
			return Order{}, nil, err
		}
		snaps = append(snaps, s)
	}
	return o, snaps, rows.Err()
}

func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Outcome reports what a payment notification did to an order.
type Outcome struct {
	Order    Order
	Applied  bool // false when the event was an idempotent replay or hit a terminal state
	Redeemed int  // free-drink credits consumed by this call
}

// ApplyPaymentOutcome advances the order keyed by the payment intent to the
// target status. The order row is locked for the duration, the captured
// free-drink count is redeemed exactly once, on the transition into PAID, and
// replays or transitions out of a terminal state are absorbed as no-ops.
func (r *Repo) ApplyPaymentOutcome(ctx context.Context, intentID string, to Status) (Outcome, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Outcome{}, err
	}
	defer tx.Rollback(ctx)

	o, err := scanOrder(tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_intent_id=$1 FOR UPDATE`, intentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Outcome{}, fault.NotFound("no order for payment intent %s", intentID)
	}
	if err != nil {
		return Outcome{}, err
	}

	if o.Status == to || !CanTransition(o.Status, to) {
		return Outcome{Order: o}, nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, o.ID, to); err != nil {
		return Outcome{}, err
	}
	o.Status = to

	redeemed := 0
	if to == StatusPaid {
		redeemed, err = ledger.RedeemFreeDrinksTx(ctx, tx, o.UserID, o.FreeDrinksRedeemed)
		if err != nil {
			return Outcome{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Outcome{}, err
	}
	return Outcome{Order: o, Applied: true, Redeemed: redeemed}, nil
}

// SettleWithGiftCard performs the gift-card checkout as a single atomic unit:
// validate credits, debit the balance, write the PAID order with its
// snapshots, clear the cart, redeem the flagged free drinks, and roll the
// qualifying punches into the punch card. Any failure aborts the whole unit.
func (r *Repo) SettleWithGiftCard(ctx context.Context, o Order, snaps []LineSnapshot, qualifyingUnits int) error {
	return r.settle(ctx, o, snaps, qualifyingUnits, true)
}

// SettleFree settles a zero-amount order consisting of free-drink lines.
func (r *Repo) SettleFree(ctx context.Context, o Order, snaps []LineSnapshot, qualifyingUnits int) error {
	return r.settle(ctx, o, snaps, qualifyingUnits, false)
}

func (r *Repo) settle(ctx context.Context, o Order, snaps []LineSnapshot, qualifyingUnits int, debit bool) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	acct, err := ledger.AccountForUpdate(ctx, tx, o.UserID)
	if err != nil {
		return err
	}
	if o.FreeDrinksRedeemed > acct.FreeCoffeeCredits {
		return fault.InsufficientCredit("cart redeems %d free drinks but only %d credits are available",
			o.FreeDrinksRedeemed, acct.FreeCoffeeCredits)
	}

	if debit {
		note := fmt.Sprintf("Gift card purchase, order %s", o.ID)
		if err := ledger.DebitGiftCardTx(ctx, tx, o.UserID, o.AmountCents, note); err != nil {
			return err
		}
	}

	if err := insertOrderTx(ctx, tx, o, snaps); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, o.UserID); err != nil {
		return err
	}

	if _, err := ledger.RedeemFreeDrinksTx(ctx, tx, o.UserID, o.FreeDrinksRedeemed); err != nil {
		return err
	}

	if qualifyingUnits > 0 {
		plural := "es"
		if qualifyingUnits == 1 {
			plural = ""
		}
		reason := fmt.Sprintf("Order rewards (%d punch%s)", qualifyingUnits, plural)
		if err := ledger.ApplyPointEarningsTx(ctx, tx, o.UserID, qualifyingUnits, reason, r.Threshold); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

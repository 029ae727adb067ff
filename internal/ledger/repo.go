package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/morningroast/brewpass/internal/fault"
)

type Repo struct {
	DB        *pgxpool.Pool
	Threshold int
	Log       zerolog.Logger
}

func (r *Repo) Account(ctx context.Context, userID int64) (Account, error) {
	var a Account
	a.UserID = userID
	err := r.DB.QueryRow(ctx, `
		SELECT reward_points, lifetime_reward_points, free_coffee_credits, gift_card_balance_cents
		FROM users WHERE id=$1`, userID).
		Scan(&a.RewardPoints, &a.LifetimeRewardPoints, &a.FreeCoffeeCredits, &a.GiftCardBalanceCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fault.NotFound("user %d not found", userID)
	}
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// AwardPurchasePoints rolls qualifying purchase units into the punch card
// inside its own transaction.
func (r *Repo) AwardPurchasePoints(ctx context.Context, userID int64, points int) error {
	if points <= 0 {
		return nil
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	plural := "es"
	if points == 1 {
		plural = ""
	}
	reason := fmt.Sprintf("Order rewards (%d punch%s)", points, plural)
	if err := ApplyPointEarningsTx(ctx, tx, userID, points, reason, r.Threshold); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// HasReloadNote reports whether a gift-card transaction already carries the
// given note. The note embeds the provider intent id, which makes it the
// replay-detection key for reloads.
func (r *Repo) HasReloadNote(ctx context.Context, userID int64, note string) (bool, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM gift_card_transactions WHERE user_id=$1 AND note=$2`,
		userID, note).Scan(&n)
	return n > 0, err
}

// Reload credits the gift-card balance and awards the reload bonus as one
// atomic unit. The replay check runs again inside the transaction with the
// user row locked, so two concurrent reloads of the same intent cannot both
// commit.
func (r *Repo) Reload(ctx context.Context, userID, amountCents int64, note string, bonusPoints int, bonusReason string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := AccountForUpdate(ctx, tx, userID); err != nil {
		return err
	}
	var n int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM gift_card_transactions WHERE user_id=$1 AND note=$2`,
		userID, note).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return fault.Conflict("this reload has already been processed")
	}

	if err := CreditGiftCardTx(ctx, tx, userID, amountCents, note); err != nil {
		return err
	}
	if err := ApplyPointEarningsTx(ctx, tx, userID, bonusPoints, bonusReason, r.Threshold); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	r.Log.Info().
		Int64("user_id", userID).
		Int64("amount_cents", amountCents).
		Int("bonus_points", bonusPoints).
		Msg("gift card reloaded")
	return nil
}

func (r *Repo) Summary(ctx context.Context, userID int64) (Summary, error) {
	a, err := r.Account(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	rewardTxs, err := r.recentRewardTransactions(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	giftTxs, err := r.recentGiftCardTransactions(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		RewardPoints:         a.RewardPoints,
		LifetimeRewardPoints: a.LifetimeRewardPoints,
		Tier:                 BuildTier(a.RewardPoints, a.FreeCoffeeCredits, r.Threshold),
		PunchCard: PunchCard{
			PointsTowardsNextFreeDrink: a.RewardPoints,
			FreeDrinkThreshold:         r.Threshold,
			FreeCoffeesAvailable:       a.FreeCoffeeCredits,
		},
		FreeCoffeeCredits:          a.FreeCoffeeCredits,
		GiftCardBalanceCents:       a.GiftCardBalanceCents,
		RecentRewardTransactions:   rewardTxs,
		RecentGiftCardTransactions: giftTxs,
	}, nil
}

func (r *Repo) recentRewardTransactions(ctx context.Context, userID int64) ([]RewardTransaction, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, points, reason, type, created_at
		FROM reward_transactions WHERE user_id=$1
		ORDER BY created_at DESC, id DESC LIMIT $2`, userID, maxRecentTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RewardTransaction{}
	for rows.Next() {
		var t RewardTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Points, &t.Reason, &t.Type, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) recentGiftCardTransactions(ctx context.Context, userID int64) ([]GiftCardTransaction, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, amount_cents, type, note, created_at
		FROM gift_card_transactions WHERE user_id=$1
		ORDER BY created_at DESC, id DESC LIMIT $2`, userID, maxRecentTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []GiftCardTransaction{}
	for rows.Next() {
		var t GiftCardTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.AmountCents, &t.Type, &t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- transaction-scoped primitives -----------------------------------------
//
// These run inside a caller-owned pg transaction so settlement can compose
// them with order writes and cart deletion into one atomic unit.

// AccountForUpdate locks the user row for the remainder of the transaction.
// Every read-validate-write sequence against a balance starts here.
func AccountForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (Account, error) {
	var a Account
	a.UserID = userID
	err := tx.QueryRow(ctx, `
		SELECT reward_points, lifetime_reward_points, free_coffee_credits, gift_card_balance_cents
		FROM users WHERE id=$1 FOR UPDATE`, userID).
		Scan(&a.RewardPoints, &a.LifetimeRewardPoints, &a.FreeCoffeeCredits, &a.GiftCardBalanceCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fault.NotFound("user %d not found", userID)
	}
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// ApplyPointEarningsTx runs the punch-card rollover and appends the EARN
// audit row. A non-positive earning is a no-op.
func ApplyPointEarningsTx(ctx context.Context, tx pgx.Tx, userID int64, earned int, reason string, threshold int) error {
	if earned <= 0 {
		return nil
	}

	var current int
	err := tx.QueryRow(ctx, `SELECT reward_points FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fault.NotFound("user %d not found", userID)
	}
	if err != nil {
		return err
	}

	roll := RollPoints(current, earned, threshold)
	if _, err := tx.Exec(ctx, `
		UPDATE users SET
			reward_points = $2,
			lifetime_reward_points = lifetime_reward_points + $3,
			free_coffee_credits = free_coffee_credits + $4,
			updated_at = now()
		WHERE id = $1`, userID, roll.Remainder, earned, roll.CreditsEarned); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO reward_transactions (user_id, points, reason, type)
		VALUES ($1, $2, $3, $4)`, userID, earned, reason, RewardEarn)
	return err
}

// RedeemFreeDrinksTx consumes up to requested free-drink credits, clamped to
// what the account holds. Settlement validates the spend before calling this;
// a shortfall here means an upstream logic bug, so the redemption is clamped
// rather than failed. Returns how many credits were actually consumed.
func RedeemFreeDrinksTx(ctx context.Context, tx pgx.Tx, userID int64, requested int) (int, error) {
	if requested <= 0 {
		return 0, nil
	}

	var credits int
	err := tx.QueryRow(ctx, `SELECT free_coffee_credits FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&credits)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fault.NotFound("user %d not found", userID)
	}
	if err != nil {
		return 0, err
	}

	redeemable := requested
	if credits < redeemable {
		redeemable = credits
	}
	if redeemable <= 0 {
		return 0, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users SET free_coffee_credits = free_coffee_credits - $2, updated_at = now()
		WHERE id = $1`, userID, redeemable); err != nil {
		return 0, err
	}

	plural := "s"
	if redeemable == 1 {
		plural = ""
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO reward_transactions (user_id, points, reason, type)
		VALUES ($1, 0, $2, $3)`,
		userID, fmt.Sprintf("Redeemed %d free coffee%s.", redeemable, plural), RewardRedeem)
	return redeemable, err
}

// DebitGiftCardTx takes amountCents off the gift-card balance and appends the
// signed PURCHASE audit row. Fails with InsufficientFunds before any write
// when the balance cannot cover the amount.
func DebitGiftCardTx(ctx context.Context, tx pgx.Tx, userID, amountCents int64, note string) error {
	if amountCents <= 0 {
		return fault.Invalid("gift card debit must be positive")
	}

	var balance int64
	err := tx.QueryRow(ctx, `SELECT gift_card_balance_cents FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return fault.NotFound("user %d not found", userID)
	}
	if err != nil {
		return err
	}
	if balance < amountCents {
		return fault.InsufficientFunds("gift card balance %d is below %d", balance, amountCents)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users SET gift_card_balance_cents = gift_card_balance_cents - $2, updated_at = now()
		WHERE id = $1`, userID, amountCents); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO gift_card_transactions (user_id, amount_cents, type, note)
		VALUES ($1, $2, $3, $4)`, userID, -amountCents, GiftCardPurchase, note)
	return err
}

// CreditGiftCardTx adds amountCents to the gift-card balance and appends the
// REFILL audit row.
func CreditGiftCardTx(ctx context.Context, tx pgx.Tx, userID, amountCents int64, note string) error {
	if amountCents <= 0 {
		return fault.Invalid("gift card credit must be positive")
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users SET gift_card_balance_cents = gift_card_balance_cents + $2, updated_at = now()
		WHERE id = $1`, userID, amountCents); err != nil {
		return err
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO gift_card_transactions (user_id, amount_cents, type, note)
		VALUES ($1, $2, $3, $4)`, userID, amountCents, GiftCardRefill, note)
	return err
}

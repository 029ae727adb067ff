// Package ledger owns the per-user financial balances (reward points,
// free-drink credits, gift-card cash) and their append-only audit trail.
// Balances are only ever mutated through the transaction-scoped helpers in
// this package; request handlers never write them directly.
package ledger

import "time"

type Account struct {
	UserID               int64 `json:"user_id"`
	RewardPoints         int   `json:"reward_points"`
	LifetimeRewardPoints int   `json:"lifetime_reward_points"`
	FreeCoffeeCredits    int   `json:"free_coffee_credits"`
	GiftCardBalanceCents int64 `json:"gift_card_balance_cents"`
}

type RewardTxType string

const (
	RewardEarn   RewardTxType = "EARN"
	RewardRedeem RewardTxType = "REDEEM"
)

type RewardTransaction struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"user_id"`
	Points    int          `json:"points"`
	Reason    string       `json:"reason"`
	Type      RewardTxType `json:"type"`
	CreatedAt time.Time    `json:"created_at"`
}

type GiftCardTxType string

const (
	GiftCardPurchase GiftCardTxType = "PURCHASE"
	GiftCardRefill   GiftCardTxType = "REFILL"
)

type GiftCardTransaction struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"user_id"`
	AmountCents int64          `json:"amount_cents"` // signed: refills positive, purchases negative
	Type        GiftCardTxType `json:"type"`
	Note        string         `json:"note"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Rollover is the result of folding earned points into the punch card.
type Rollover struct {
	Remainder     int
	CreditsEarned int
}

// RollPoints applies the punch-card rule: points accumulate like an odometer
// and every full threshold wraps into one free-drink credit. The stored
// balance is always the remainder below the threshold.
func RollPoints(current, earned, threshold int) Rollover {
	if threshold <= 0 {
		panic("ledger: free drink threshold must be positive")
	}
	running := current + earned
	return Rollover{
		Remainder:     running % threshold,
		CreditsEarned: running / threshold,
	}
}

package ledger

import "fmt"

const maxRecentTransactions = 5

type PunchCard struct {
	PointsTowardsNextFreeDrink int `json:"points_towards_next_free_drink"`
	FreeDrinkThreshold         int `json:"free_drink_threshold"`
	FreeCoffeesAvailable       int `json:"free_coffees_available"`
}

type TierStep struct {
	Name      string `json:"name"`
	Threshold int    `json:"threshold"`
	Tagline   string `json:"tagline"`
}

type TierInfo struct {
	Current         TierStep  `json:"current"`
	Next            *TierStep `json:"next,omitempty"`
	PercentToNext   float64   `json:"percent_to_next"`
	PointsUntilNext int       `json:"points_until_next"`
}

type Summary struct {
	RewardPoints               int                   `json:"reward_points"`
	LifetimeRewardPoints       int                   `json:"lifetime_reward_points"`
	Tier                       TierInfo              `json:"tier"`
	PunchCard                  PunchCard             `json:"punch_card"`
	FreeCoffeeCredits          int                   `json:"free_coffee_credits"`
	GiftCardBalanceCents       int64                 `json:"gift_card_balance_cents"`
	RecentRewardTransactions   []RewardTransaction   `json:"recent_reward_transactions"`
	RecentGiftCardTransactions []GiftCardTransaction `json:"recent_gift_card_transactions"`
}

// BuildTier derives the punch-card progress display from the wrapped point
// balance and outstanding credits.
func BuildTier(points, credits, threshold int) TierInfo {
	if credits > 0 {
		plural := ""
		if credits > 1 {
			plural = "s"
		}
		return TierInfo{
			Current: TierStep{
				Name:      "Free coffee ready",
				Threshold: threshold,
				Tagline:   fmt.Sprintf("You have %d free coffee%s to redeem.", credits, plural),
			},
			PercentToNext: 100,
		}
	}

	remaining := threshold - points
	if remaining < 0 {
		remaining = 0
	}
	pct := float64(points) / float64(threshold) * 100
	if pct > 100 {
		pct = 100
	}
	return TierInfo{
		Current: TierStep{
			Name:    "Coffee Club",
			Tagline: fmt.Sprintf("Collect %d punches to earn a free coffee.", threshold),
		},
		Next: &TierStep{
			Name:      "Free coffee reward",
			Threshold: threshold,
			Tagline:   fmt.Sprintf("%d punches remaining.", remaining),
		},
		PercentToNext:   pct,
		PointsUntilNext: remaining,
	}
}

package orders

import (
	"time"

	"github.com/morningroast/brewpass/internal/cart"
	"github.com/morningroast/brewpass/internal/menu"
)

// Order is immutable once created except for its status; the amount, the
// captured free-drink count, and the line snapshots never change after the
// settlement entry point writes them.
type Order struct {
	ID                 string    `json:"id"`
	UserID             int64     `json:"user_id"`
	PaymentIntentID    string    `json:"payment_intent_id"`
	AmountCents        int64     `json:"amount_cents"`
	Currency           string    `json:"currency"`
	Status             Status    `json:"status"`
	FreeDrinksRedeemed int       `json:"free_drinks_redeemed"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// LineSnapshot is copied by value from the cart at creation time, so later
// menu price changes never retroactively alter a placed order.
type LineSnapshot struct {
	ID             int64   `json:"id"`
	OrderID        string  `json:"order_id"`
	MenuItemID     int64   `json:"menu_item_id"`
	Name           string  `json:"name"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	Quantity       int     `json:"quantity"`
	MilkOption     *string `json:"milk_option,omitempty"`
	EspressoShots  *int    `json:"espresso_shots,omitempty"`
	FlavorName     *string `json:"flavor_name,omitempty"`
	FlavorPumps    *int    `json:"flavor_pumps,omitempty"`
	IsFreeDrink    bool    `json:"is_free_drink"`
}

// Totals prices a cart for settlement: the charge amount sums non-free lines
// only, while the free-drink count sums quantities across flagged lines.
func Totals(lines []cart.Line) (amountCents int64, freeDrinks int) {
	for _, l := range lines {
		if l.IsFreeDrink {
			freeDrinks += l.Quantity
			continue
		}
		amountCents += l.Item.PriceCents * int64(l.Quantity)
	}
	return amountCents, freeDrinks
}

// Snapshot copies cart lines by value. Drink customization only applies to
// coffee; pastry snapshots carry no modifier columns.
func Snapshot(orderID string, lines []cart.Line) []LineSnapshot {
	out := make([]LineSnapshot, 0, len(lines))
	for _, l := range lines {
		s := LineSnapshot{
			OrderID:        orderID,
			MenuItemID:     l.MenuItemID,
			Name:           l.Item.Name,
			UnitPriceCents: l.Item.PriceCents,
			Quantity:       l.Quantity,
			IsFreeDrink:    l.IsFreeDrink,
		}
		if l.Item.Category == menu.CategoryCoffee {
			milk := string(l.Customization.MilkOption)
			shots := l.Customization.EspressoShots
			flavor := l.Customization.FlavorName
			pumps := l.Customization.FlavorPumps
			s.MilkOption, s.EspressoShots = &milk, &shots
			s.FlavorName, s.FlavorPumps = &flavor, &pumps
		}
		out = append(out, s)
	}
	return out
}

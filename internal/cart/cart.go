// Package cart holds per-user draft line items and the rules that keep them
// consistent with the loyalty ledger (free-drink flags never exceed credits).
package cart

import (
	"fmt"
	"strings"
	"time"

	"github.com/morningroast/brewpass/internal/fault"
	"github.com/morningroast/brewpass/internal/menu"
)

type MilkOption string

const (
	MilkWhole  MilkOption = "WHOLE"
	MilkOat    MilkOption = "OAT"
	MilkAlmond MilkOption = "ALMOND"
	MilkSkim   MilkOption = "SKIM"
	MilkNone   MilkOption = "NONE"
)

var validMilk = map[MilkOption]bool{
	MilkWhole: true, MilkOat: true, MilkAlmond: true, MilkSkim: true, MilkNone: true,
}

const defaultEspressoShots = 2

// Customization is the modifier tuple that makes two otherwise-identical
// drinks distinct cart lines.
type Customization struct {
	MilkOption    MilkOption `json:"milk_option"`
	EspressoShots int        `json:"espresso_shots"`
	FlavorName    string     `json:"flavor_name"`
	FlavorPumps   int        `json:"flavor_pumps"`
}

// Normalize fills defaults and validates the tuple. Flavor pumps without a
// flavor are meaningless and dropped.
func (c Customization) Normalize() (Customization, error) {
	out := c
	if out.MilkOption == "" {
		out.MilkOption = MilkWhole
	}
	if !validMilk[out.MilkOption] {
		return Customization{}, fault.Invalid("unknown milk option %q", out.MilkOption)
	}
	if out.EspressoShots == 0 {
		out.EspressoShots = defaultEspressoShots
	}
	if out.EspressoShots < 0 {
		return Customization{}, fault.Invalid("espresso shots cannot be negative")
	}
	out.FlavorName = strings.TrimSpace(out.FlavorName)
	if out.FlavorName == "" {
		out.FlavorPumps = 0
	}
	if out.FlavorPumps < 0 {
		return Customization{}, fault.Invalid("flavor pumps cannot be negative")
	}
	return out, nil
}

// Key is the canonical serialization of the tuple, part of line identity.
func (c Customization) Key() string {
	return fmt.Sprintf("milk=%s|shots=%d|flavor=%s|pumps=%d",
		c.MilkOption, c.EspressoShots, c.FlavorName, c.FlavorPumps)
}

type Line struct {
	ID               int64         `json:"id"`
	UserID           int64         `json:"user_id"`
	MenuItemID       int64         `json:"menu_item_id"`
	Quantity         int           `json:"quantity"`
	Customization    Customization `json:"customization"`
	CustomizationKey string        `json:"customization_key"`
	IsFreeDrink      bool          `json:"is_free_drink"`
	CreatedAt        time.Time     `json:"created_at"`
	Item             menu.Item     `json:"item"`
}

// QualifyingUnits counts the punch-card units in a cart: coffee and pastry
// quantities, excluding free-drink lines.
func QualifyingUnits(lines []Line) int {
	total := 0
	for _, l := range lines {
		if l.IsFreeDrink {
			continue
		}
		if l.Item.Category == menu.CategoryCoffee || l.Item.Category == menu.CategoryPastry {
			total += l.Quantity
		}
	}
	return total
}

// FreeDrinkUnits counts quantities across free-drink-flagged lines.
func FreeDrinkUnits(lines []Line) int {
	total := 0
	for _, l := range lines {
		if l.IsFreeDrink {
			total += l.Quantity
		}
	}
	return total
}

// CanFlagFreeDrink checks the rules for marking a line as a free drink:
// coffee only, single quantity, and never more flagged lines than the user
// holds credits. flaggedOthers excludes the line being toggled.
func CanFlagFreeDrink(category menu.Category, quantity, flaggedOthers, credits int) error {
	if category != menu.CategoryCoffee {
		return fault.Invalid("free drinks can only be redeemed on coffee beverages")
	}
	if quantity != 1 {
		return fault.Invalid("set the drink quantity to 1 before applying a free drink redemption")
	}
	if flaggedOthers >= credits {
		return fault.InsufficientCredit("no free drinks available to redeem")
	}
	return nil
}

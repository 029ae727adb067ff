package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morningroast/brewpass/internal/cart"
	"github.com/morningroast/brewpass/internal/menu"
)

func testLines() []cart.Line {
	latte := menu.Item{ID: 1, Name: "Iced Oat Latte", PriceCents: 575, Category: menu.CategoryCoffee}
	muffin := menu.Item{ID: 2, Name: "Lemon Poppy Muffin", PriceCents: 395, Category: menu.CategoryPastry}
	return []cart.Line{
		{MenuItemID: 1, Quantity: 2, Item: latte,
			Customization: cart.Customization{MilkOption: cart.MilkOat, EspressoShots: 2}},
		{MenuItemID: 2, Quantity: 1, Item: muffin},
		{MenuItemID: 1, Quantity: 1, Item: latte, IsFreeDrink: true,
			Customization: cart.Customization{MilkOption: cart.MilkWhole, EspressoShots: 1}},
	}
}

func TestTotals(t *testing.T) {
	amount, free := Totals(testLines())
	assert.Equal(t, int64(2*575+395), amount, "free-drink lines are not charged")
	assert.Equal(t, 1, free)
}

func TestTotalsEmpty(t *testing.T) {
	amount, free := Totals(nil)
	assert.Zero(t, amount)
	assert.Zero(t, free)
}

func TestSnapshotCopiesByValue(t *testing.T) {
	lines := testLines()
	snaps := Snapshot("ord-1", lines)
	require.Len(t, snaps, 3)

	// A later menu price change must not leak into the snapshot.
	lines[0].Item.PriceCents = 9999
	assert.Equal(t, int64(575), snaps[0].UnitPriceCents)

	assert.Equal(t, "ord-1", snaps[0].OrderID)
	assert.Equal(t, "Iced Oat Latte", snaps[0].Name)
	assert.Equal(t, 2, snaps[0].Quantity)
	require.NotNil(t, snaps[0].MilkOption)
	assert.Equal(t, string(cart.MilkOat), *snaps[0].MilkOption)

	// Pastry snapshots carry no drink modifiers.
	assert.Nil(t, snaps[1].MilkOption)
	assert.Nil(t, snaps[1].EspressoShots)

	assert.True(t, snaps[2].IsFreeDrink)
}

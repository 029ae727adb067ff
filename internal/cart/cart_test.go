package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morningroast/brewpass/internal/fault"
	"github.com/morningroast/brewpass/internal/menu"
)

func TestCustomizationNormalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := Customization{}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, MilkWhole, c.MilkOption)
		assert.Equal(t, 2, c.EspressoShots)
		assert.Equal(t, "", c.FlavorName)
		assert.Equal(t, 0, c.FlavorPumps)
	})

	t.Run("pumps without flavor are dropped", func(t *testing.T) {
		c, err := Customization{FlavorName: "  ", FlavorPumps: 3}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, 0, c.FlavorPumps)
	})

	t.Run("flavor is trimmed", func(t *testing.T) {
		c, err := Customization{FlavorName: " vanilla ", FlavorPumps: 2}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, "vanilla", c.FlavorName)
		assert.Equal(t, 2, c.FlavorPumps)
	})

	t.Run("unknown milk", func(t *testing.T) {
		_, err := Customization{MilkOption: "CONDENSED"}.Normalize()
		assert.Equal(t, fault.KindInvalid, fault.KindOf(err))
	})
}

func TestCustomizationKeyDistinguishesLines(t *testing.T) {
	a, err := Customization{MilkOption: MilkOat, FlavorName: "vanilla", FlavorPumps: 2}.Normalize()
	require.NoError(t, err)
	b, err := Customization{MilkOption: MilkOat, FlavorName: "vanilla", FlavorPumps: 3}.Normalize()
	require.NoError(t, err)
	assert.NotEqual(t, a.Key(), b.Key())

	c, err := Customization{MilkOption: MilkOat, FlavorName: " vanilla ", FlavorPumps: 2}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, a.Key(), c.Key(), "normalization must canonicalize equivalent tuples")
}

func TestCanFlagFreeDrink(t *testing.T) {
	tests := []struct {
		name          string
		category      menu.Category
		quantity      int
		flaggedOthers int
		credits       int
		wantKind      fault.Kind
	}{
		{"ok", menu.CategoryCoffee, 1, 0, 1, fault.KindUnknown},
		{"pastry rejected", menu.CategoryPastry, 1, 0, 5, fault.KindInvalid},
		{"multi quantity rejected", menu.CategoryCoffee, 2, 0, 5, fault.KindInvalid},
		{"no credits", menu.CategoryCoffee, 1, 0, 0, fault.KindInsufficientCredit},
		{"credits exhausted by other lines", menu.CategoryCoffee, 1, 1, 1, fault.KindInsufficientCredit},
		{"second credit available", menu.CategoryCoffee, 1, 1, 2, fault.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanFlagFreeDrink(tt.category, tt.quantity, tt.flaggedOthers, tt.credits)
			if tt.wantKind == fault.KindUnknown {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.wantKind, fault.KindOf(err))
			}
		})
	}
}

func TestQualifyingUnits(t *testing.T) {
	coffee := menu.Item{Category: menu.CategoryCoffee, PriceCents: 550}
	pastry := menu.Item{Category: menu.CategoryPastry, PriceCents: 395}

	lines := []Line{
		{Quantity: 2, Item: coffee},
		{Quantity: 1, Item: pastry},
		{Quantity: 1, Item: coffee, IsFreeDrink: true},
	}
	assert.Equal(t, 3, QualifyingUnits(lines), "free-drink lines do not punch the card")
	assert.Equal(t, 1, FreeDrinkUnits(lines))
}

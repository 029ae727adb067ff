package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/morningroast/brewpass/internal/fault"
	"github.com/morningroast/brewpass/internal/ledger"
	"github.com/morningroast/brewpass/internal/menu"
)

type Repo struct {
	DB        *pgxpool.Pool
	Threshold int // punch-card threshold, forwarded to accrual on Clear
	Log       zerolog.Logger
}

const lineColumns = `
	c.id, c.user_id, c.menu_item_id, c.quantity,
	c.milk_option, c.espresso_shots, c.flavor_name, c.flavor_pumps,
	c.customization_key, c.is_free_drink, c.created_at,
	m.id, m.name, m.description, m.price_cents, m.category, m.image_key, m.tags, m.is_available, m.created_at`

const linesQuery = `
	SELECT ` + lineColumns + `
	FROM cart_items c
	JOIN menu_items m ON m.id = c.menu_item_id
	WHERE c.user_id = $1
	ORDER BY c.created_at ASC, c.id ASC`

func scanLine(rows pgx.Rows) (Line, error) {
	var l Line
	err := rows.Scan(
		&l.ID, &l.UserID, &l.MenuItemID, &l.Quantity,
		&l.Customization.MilkOption, &l.Customization.EspressoShots,
		&l.Customization.FlavorName, &l.Customization.FlavorPumps,
		&l.CustomizationKey, &l.IsFreeDrink, &l.CreatedAt,
		&l.Item.ID, &l.Item.Name, &l.Item.Description, &l.Item.PriceCents,
		&l.Item.Category, &l.Item.ImageKey, &l.Item.Tags, &l.Item.IsAvailable, &l.Item.CreatedAt)
	return l, err
}

// Lines returns the cart in stable creation order.
func (r *Repo) Lines(ctx context.Context, userID int64) ([]Line, error) {
	rows, err := r.DB.Query(ctx, linesQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Line{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AddItem upserts a (menu item, customization key) line. Re-adding an
// existing line bumps its quantity and clears the free-drink flag: the line
// can no longer be assumed free.
func (r *Repo) AddItem(ctx context.Context, userID, menuItemID int64, quantity int, c Customization) ([]Line, error) {
	if quantity < 1 {
		return nil, fault.Invalid("quantity must be at least 1")
	}

	c, err := c.Normalize()
	if err != nil {
		return nil, err
	}

	var available bool
	err = r.DB.QueryRow(ctx, `SELECT is_available FROM menu_items WHERE id=$1`, menuItemID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && !available) {
		return nil, fault.NotFound("menu item %d not found", menuItemID)
	}
	if err != nil {
		return nil, err
	}

	_, err = r.DB.Exec(ctx, `
		INSERT INTO cart_items
			(user_id, menu_item_id, quantity, milk_option, espresso_shots, flavor_name, flavor_pumps, customization_key, is_free_drink)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)
		ON CONFLICT (user_id, menu_item_id, customization_key) DO UPDATE SET
			quantity = cart_items.quantity + EXCLUDED.quantity,
			is_free_drink = FALSE`,
		userID, menuItemID, quantity,
		c.MilkOption, c.EspressoShots, c.FlavorName, c.FlavorPumps, c.Key())
	if err != nil {
		return nil, err
	}
	return r.Lines(ctx, userID)
}

// UpdateQuantity sets a line's quantity; zero or below deletes the line. The
// free-drink flag survives only while the quantity stays at 1.
func (r *Repo) UpdateQuantity(ctx context.Context, userID, lineID int64, quantity int) ([]Line, error) {
	if quantity <= 0 {
		return r.RemoveItem(ctx, userID, lineID)
	}

	ct, err := r.DB.Exec(ctx, `
		UPDATE cart_items SET
			quantity = $3,
			is_free_drink = CASE WHEN $3 = 1 THEN is_free_drink ELSE FALSE END
		WHERE id = $1 AND user_id = $2`, lineID, userID, quantity)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, fault.NotFound("cart item not found")
	}
	return r.Lines(ctx, userID)
}

func (r *Repo) RemoveItem(ctx context.Context, userID, lineID int64) ([]Line, error) {
	ct, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE id=$1 AND user_id=$2`, lineID, userID)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, fault.NotFound("cart item not found")
	}
	return r.Lines(ctx, userID)
}

// Clear empties the cart and rolls the qualifying units into the punch card,
// both in one transaction. Called after the pickup flow completes.
func (r *Repo) Clear(ctx context.Context, userID int64) ([]Line, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, linesQuery, userID)
	if err != nil {
		return nil, err
	}
	lines := []Line{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return []Line{}, nil
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID); err != nil {
		return nil, err
	}

	punches := QualifyingUnits(lines)
	if punches > 0 {
		plural := "es"
		if punches == 1 {
			plural = ""
		}
		reason := fmt.Sprintf("Order rewards (%d punch%s)", punches, plural)
		if err := ledger.ApplyPointEarningsTx(ctx, tx, userID, punches, reason, r.Threshold); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	r.Log.Debug().Int64("user_id", userID).Int("punches", punches).Msg("cart cleared")
	return []Line{}, nil
}

// ToggleFreeDrink flags or unflags a line as a free-drink redemption. The
// credit check runs with the user row locked so two concurrent toggles cannot
// both claim the last credit.
func (r *Repo) ToggleFreeDrink(ctx context.Context, userID, lineID int64, want bool) ([]Line, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	acct, err := ledger.AccountForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	var quantity int
	var category menu.Category
	err = tx.QueryRow(ctx, `
		SELECT c.quantity, m.category
		FROM cart_items c JOIN menu_items m ON m.id = c.menu_item_id
		WHERE c.id = $1 AND c.user_id = $2`, lineID, userID).Scan(&quantity, &category)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("cart item not found")
	}
	if err != nil {
		return nil, err
	}

	if want {
		var flaggedOthers int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM cart_items
			WHERE user_id = $1 AND is_free_drink AND id <> $2`, userID, lineID).Scan(&flaggedOthers); err != nil {
			return nil, err
		}
		if err := CanFlagFreeDrink(category, quantity, flaggedOthers, acct.FreeCoffeeCredits); err != nil {
			return nil, err
		}
	} else if category != menu.CategoryCoffee {
		return nil, fault.Invalid("free drinks can only be redeemed on coffee beverages")
	}

	if _, err := tx.Exec(ctx, `
		UPDATE cart_items SET is_free_drink = $3 WHERE id = $1 AND user_id = $2`,
		lineID, userID, want); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.Lines(ctx, userID)
}

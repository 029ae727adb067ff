package menu

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morningroast/brewpass/internal/fault"
)

type Repo struct{ DB *pgxpool.Pool }

const itemColumns = `id, name, description, price_cents, category, image_key, tags, is_available, created_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.PriceCents, &it.Category,
		&it.ImageKey, &it.Tags, &it.IsAvailable, &it.CreatedAt)
	return it, err
}

func (r *Repo) ItemByID(ctx context.Context, id int64) (Item, error) {
	it, err := scanItem(r.DB.QueryRow(ctx, `SELECT `+itemColumns+` FROM menu_items WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fault.NotFound("menu item %d not found", id)
	}
	if err != nil {
		return Item{}, err
	}
	return it, nil
}

// List returns available items, optionally filtered by category.
func (r *Repo) List(ctx context.Context, category string) ([]Item, error) {
	q := `SELECT ` + itemColumns + ` FROM menu_items WHERE is_available ORDER BY category, name`
	args := []any{}
	if category != "" {
		c, ok := ParseCategory(category)
		if !ok {
			return nil, fault.Invalid("unknown menu category %q", category)
		}
		q = `SELECT ` + itemColumns + ` FROM menu_items WHERE is_available AND category=$1 ORDER BY name`
		args = append(args, c)
	}

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

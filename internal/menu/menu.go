// Package menu is the read-only catalog the ordering core prices carts
// against. The core never mutates it.
package menu

import (
	"strings"
	"time"
)

type Category string

const (
	CategoryCoffee Category = "COFFEE"
	CategoryPastry Category = "PASTRY"
)

// ParseCategory normalizes a client-supplied category filter.
func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToUpper(strings.TrimSpace(s))) {
	case CategoryCoffee:
		return CategoryCoffee, true
	case CategoryPastry:
		return CategoryPastry, true
	}
	return "", false
}

type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Category    Category  `json:"category"`
	ImageKey    string    `json:"image_key"`
	Tags        []string  `json:"tags"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

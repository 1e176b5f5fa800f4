// Package menu describes menu items as a read-only source for order line
// snapshots.
package menu

import (
	"context"

	"github.com/shopspring/decimal"
)

// Item is a menu item as currently listed by its restaurant.
type Item struct {
	ID           int64
	RestaurantID int64
	CategoryID   *int64
	Name         string
	Price        decimal.Decimal
}

// Repository provides batch lookups of menu items and category names.
type Repository interface {
	// GetByIDs returns the items matching any of ids. Unknown ids are
	// silently absent from the result.
	GetByIDs(ctx context.Context, ids []int64) ([]Item, error)
	// CategoryNames maps each existing category id to its name.
	CategoryNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

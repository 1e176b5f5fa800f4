package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/restaurant-orders/internal/domain/menu"
)

const (
	getMenuItemsByIDsSQL = `SELECT id, restaurant_id, category_id, name, price
		FROM menu_items WHERE id = ANY($1)`

	getCategoryNamesSQL = `SELECT id, name FROM item_categories WHERE id = ANY($1)`
)

var _ menu.Repository = (*MenuRepository)(nil)

// MenuRepository implements menu.Repository backed by PostgreSQL.
type MenuRepository struct {
	pool *pgxpool.Pool
}

// NewMenuRepository returns a MenuRepository that uses the given pool.
func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

// GetByIDs returns the menu items matching any of ids.
func (r *MenuRepository) GetByIDs(ctx context.Context, ids []int64) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx, getMenuItemsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting menu items by ids: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (menu.Item, error) {
		var mi menu.Item
		err := row.Scan(&mi.ID, &mi.RestaurantID, &mi.CategoryID, &mi.Name, &mi.Price)
		return mi, err
	})
}

// CategoryNames returns the names of the categories in ids.
func (r *MenuRepository) CategoryNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, getCategoryNamesSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting category names: %w", err)
	}
	var (
		id   int64
		name string
	)
	_, err = pgx.ForEachRow(rows, []any{&id, &name}, func() error {
		out[id] = name
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning category names: %w", err)
	}
	return out, nil
}

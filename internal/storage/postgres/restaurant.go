package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/restaurant-orders/internal/domain/restaurant"
)

const (
	getRestaurantSQL = `SELECT id, name, tax_rate, service_charge_rate
		FROM restaurants WHERE id = $1`

	getTableSQL = `SELECT id, restaurant_id, name FROM tables WHERE id = $1`
)

var _ restaurant.Repository = (*RestaurantRepository)(nil)

// RestaurantRepository implements restaurant.Repository backed by PostgreSQL.
type RestaurantRepository struct {
	pool *pgxpool.Pool
}

// NewRestaurantRepository returns a RestaurantRepository that uses the given pool.
func NewRestaurantRepository(pool *pgxpool.Pool) *RestaurantRepository {
	return &RestaurantRepository{pool: pool}
}

// GetRestaurant returns a restaurant with its billing rates.
func (r *RestaurantRepository) GetRestaurant(ctx context.Context, id int64) (*restaurant.Restaurant, error) {
	var out restaurant.Restaurant
	err := r.pool.QueryRow(ctx, getRestaurantSQL, id).Scan(
		&out.ID, &out.Name, &out.TaxRate, &out.ServiceChargeRate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, restaurant.ErrNotFound
		}
		return nil, fmt.Errorf("getting restaurant %d: %w", id, err)
	}
	return &out, nil
}

// GetTable returns a dining table.
func (r *RestaurantRepository) GetTable(ctx context.Context, id int64) (*restaurant.Table, error) {
	var out restaurant.Table
	err := r.pool.QueryRow(ctx, getTableSQL, id).Scan(&out.ID, &out.RestaurantID, &out.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, restaurant.ErrTableNotFound
		}
		return nil, fmt.Errorf("getting table %d: %w", id, err)
	}
	return &out, nil
}

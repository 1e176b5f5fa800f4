// Package restaurant describes the read-only tenant data the order engine
// depends on: restaurants with their rate configuration and their tables.
package restaurant

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors returned by Repository implementations.
var (
	ErrNotFound      = errors.New("restaurant not found")
	ErrTableNotFound = errors.New("table not found")
)

// Restaurant is a tenant. Rates are percentages and never negative.
type Restaurant struct {
	ID                int64
	Name              string
	TaxRate           decimal.Decimal
	ServiceChargeRate decimal.Decimal
}

// Table is a physical table owned by a restaurant.
type Table struct {
	ID           int64
	RestaurantID int64
	Name         string
}

// Repository provides restaurant and table lookups.
type Repository interface {
	GetRestaurant(ctx context.Context, id int64) (*Restaurant, error)
	GetTable(ctx context.Context, id int64) (*Table, error)
}

package order

import (
	"context"
	"fmt"

	"github.com/xenking/restaurant-orders/internal/domain/menu"
	"github.com/xenking/restaurant-orders/internal/money"
)

// MaxQty is the largest quantity accepted for a single line.
const MaxQty = 10000

// ItemRequest asks for qty units of a menu item.
type ItemRequest struct {
	MenuItemID int64
	Qty        int
	Notes      *string
}

// SnapshotResolver turns item requests into priced line items, freezing the
// current menu name, category and price.
type SnapshotResolver struct {
	menu menu.Repository
}

// NewSnapshotResolver creates a SnapshotResolver reading from m.
func NewSnapshotResolver(m menu.Repository) *SnapshotResolver {
	return &SnapshotResolver{menu: m}
}

// Resolve validates reqs against the menu of restaurantID and returns one
// Item per request, in request order. Any unresolvable or foreign item
// aborts the whole resolution.
func (r *SnapshotResolver) Resolve(ctx context.Context, restaurantID int64, reqs []ItemRequest) ([]Item, error) {
	if err := validateItemRequests(reqs); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(reqs))
	requested := make(map[int64]int, len(reqs))
	for _, req := range reqs {
		if requested[req.MenuItemID] == 0 {
			ids = append(ids, req.MenuItemID)
		}
		requested[req.MenuItemID]++
	}

	fetched, err := r.menu.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get menu items: %w", err)
	}
	byID := make(map[int64]menu.Item, len(fetched))
	for _, mi := range fetched {
		byID[mi.ID] = mi
	}

	// A resolved set smaller than the request means unknown or repeated ids.
	if len(byID) != len(reqs) {
		refErr := &InvalidReferenceError{}
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				refErr.Unknown = append(refErr.Unknown, id)
			} else if requested[id] > 1 {
				refErr.Duplicates = append(refErr.Duplicates, id)
			}
		}
		return nil, refErr
	}

	var categoryIDs []int64
	for _, req := range reqs {
		mi := byID[req.MenuItemID]
		if mi.RestaurantID != restaurantID {
			return nil, &CrossTenantError{Entity: "menu_item", ID: mi.ID, RestaurantID: restaurantID}
		}
		if mi.CategoryID != nil {
			categoryIDs = append(categoryIDs, *mi.CategoryID)
		}
	}

	categories := map[int64]string{}
	if len(categoryIDs) > 0 {
		categories, err = r.menu.CategoryNames(ctx, categoryIDs)
		if err != nil {
			return nil, fmt.Errorf("get category names: %w", err)
		}
	}

	items := make([]Item, len(reqs))
	for i, req := range reqs {
		mi := byID[req.MenuItemID]
		unit := money.Round(mi.Price)
		line := money.Line(unit, req.Qty)
		if !money.InRange(line) {
			return nil, &ValidationError{
				Field:  fmt.Sprintf("items[%d].qty", i),
				Reason: "line total exceeds " + money.String(money.Max),
			}
		}
		item := Item{
			MenuItemID:   &mi.ID,
			NameSnapshot: mi.Name,
			UnitPrice:    unit,
			Qty:          req.Qty,
			LineTotal:    line,
			Notes:        clonePtr(req.Notes),
		}
		if mi.CategoryID != nil {
			if name, ok := categories[*mi.CategoryID]; ok {
				item.CategoryNameSnapshot = &name
			}
		}
		items[i] = item
	}
	return items, nil
}

// validateItemRequests checks the shape of item requests without touching
// the menu.
func validateItemRequests(reqs []ItemRequest) error {
	if len(reqs) == 0 {
		return &ValidationError{Field: "items", Reason: "at least one item is required"}
	}
	for i, req := range reqs {
		if err := validateQty(fmt.Sprintf("items[%d].qty", i), req.Qty); err != nil {
			return err
		}
	}
	return nil
}

// validateQty checks a quantity against the accepted range.
func validateQty(field string, qty int) error {
	switch {
	case qty <= 0:
		return &ValidationError{Field: field, Reason: "must be greater than 0"}
	case qty > MaxQty:
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d", MaxQty)}
	}
	return nil
}

package order

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

// Sentinel error kinds. Every typed error below unwraps to one of them, so
// callers can branch with errors.Is and extract context with errors.As.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidReference     = errors.New("invalid menu item reference")
	ErrCrossTenantReference = errors.New("cross-tenant reference")
	ErrIllegalState         = errors.New("illegal order state")
	ErrIllegalTransition    = errors.New("illegal status transition")
	ErrValidation           = errors.New("validation failed")
)

// NotFoundError indicates a missing order, item, restaurant or table.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidReferenceError lists requested menu items that could not be
// resolved, either because they do not exist or because they were requested
// more than once.
type InvalidReferenceError struct {
	Unknown    []int64
	Duplicates []int64
}

func (e *InvalidReferenceError) Error() string {
	var parts []string
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown menu items "+joinIDs(e.Unknown))
	}
	if len(e.Duplicates) > 0 {
		parts = append(parts, "duplicate menu items "+joinIDs(e.Duplicates))
	}
	return "invalid menu item reference: " + strings.Join(parts, "; ")
}

func (e *InvalidReferenceError) Unwrap() error { return ErrInvalidReference }

// CrossTenantError indicates an entity that belongs to another restaurant.
type CrossTenantError struct {
	Entity       string
	ID           int64
	RestaurantID int64
}

func (e *CrossTenantError) Error() string {
	return fmt.Sprintf("%s %d does not belong to restaurant %d", e.Entity, e.ID, e.RestaurantID)
}

func (e *CrossTenantError) Unwrap() error { return ErrCrossTenantReference }

// IllegalStateError indicates an item mutation outside the mutable window.
type IllegalStateError struct {
	OrderID int64
	Status  Status
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("cannot modify items of order %d in status %s", e.OrderID, e.Status)
}

func (e *IllegalStateError) Unwrap() error { return ErrIllegalState }

// IllegalTransitionError indicates a status change the table does not allow.
type IllegalTransitionError struct {
	OrderID int64
	From    Status
	To      Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("order %d: cannot transition from %s to %s", e.OrderID, e.From, e.To)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

// ValidationError indicates malformed input for a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func joinIDs(ids []int64) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = strconv.FormatInt(id, 10)
	}
	return "[" + strings.Join(s, ", ") + "]"
}

func quote(v string) string {
	return strconv.Quote(v)
}

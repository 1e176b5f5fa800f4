package order

import "context"

// ListFilter selects a page of orders of one restaurant. All filters are
// conjunctive; zero values disable a filter.
type ListFilter struct {
	RestaurantID int64
	Statuses     []Status
	Channel      *Channel
	TableID      *int64
	// Search matches customer name or phone, case-insensitively.
	Search string
	Skip   int
	Limit  int
}

// Page is one page of a listing plus the total number of matches.
type Page struct {
	Orders []Order
	Total  int
}

// Repository is the persistence port of the order aggregate.
type Repository interface {
	// InTx runs fn in one transaction. The transaction commits only if fn
	// returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Get loads the aggregate with items and payments.
	Get(ctx context.Context, id int64) (*Order, error)
	// List returns a page ordered by creation time, most recent first.
	List(ctx context.Context, f ListFilter) (*Page, error)
	// Events returns the audit log of an order, most recent first.
	Events(ctx context.Context, orderID int64) ([]Event, error)
}

// Tx is the transactional view of the repository. Lock must be called before
// any mutation of an existing order.
type Tx interface {
	// Lock loads the aggregate and holds an exclusive lock on it until the
	// transaction ends.
	Lock(ctx context.Context, id int64) (*Order, error)
	// ActiveForTable locks the table and returns its non-terminal order, if
	// one exists.
	ActiveForTable(ctx context.Context, tableID int64) (*Order, bool, error)

	// Create inserts o with its items and payments and assigns their ids.
	Create(ctx context.Context, o *Order) error
	// Update writes the header, status, timestamps and totals of o.
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id int64) error

	// AddItems inserts items for orderID and assigns their ids in place.
	AddItems(ctx context.Context, orderID int64, items []Item) error
	UpdateItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, orderID, itemID int64) error

	AddPayment(ctx context.Context, p *Payment) error
	AppendEvent(ctx context.Context, e *Event) error
}

package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Channel is the context an order originates from.
type Channel string

// Supported order channels.
const (
	ChannelTable        Channel = "table"
	ChannelGroup        Channel = "group"
	ChannelPickup       Channel = "pickup"
	ChannelQuickBilling Channel = "quick_billing"
	ChannelDelivery     Channel = "delivery"
	ChannelOnline       Channel = "online"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelTable, ChannelGroup, ChannelPickup, ChannelQuickBilling, ChannelDelivery, ChannelOnline:
		return true
	default:
		return false
	}
}

// ParseChannel converts v to a Channel.
func ParseChannel(v string) (Channel, error) {
	c := Channel(v)
	if !c.Valid() {
		return "", &ValidationError{Field: "channel", Reason: "unknown channel " + quote(v)}
	}
	return c, nil
}

// PaymentMethod is how a payment was tendered.
type PaymentMethod string

// Supported payment methods.
const (
	MethodCash  PaymentMethod = "cash"
	MethodCard  PaymentMethod = "card"
	MethodUPI   PaymentMethod = "upi"
	MethodOther PaymentMethod = "other"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodUPI, MethodOther:
		return true
	default:
		return false
	}
}

// PaymentStatus is the settlement state of a single payment record.
type PaymentStatus string

// Payment statuses. Only PaymentSuccess counts towards the amount paid.
const (
	PaymentSuccess  PaymentStatus = "success"
	PaymentPending  PaymentStatus = "pending"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentSuccess, PaymentPending, PaymentFailed, PaymentRefunded:
		return true
	default:
		return false
	}
}

// Event names written to the audit log.
const (
	EventOrderCreated   = "order_created"
	EventOrderUpdated   = "order_updated"
	EventOrderCanceled  = "order_canceled"
	EventStatusChanged  = "status_changed"
	EventItemAdded      = "item_added"
	EventItemQtyChanged = "item_qty_changed"
	EventItemRemoved    = "item_removed"
	EventPaymentAdded   = "payment_added"
)

// Totals are the monetary fields of an order. They are always derived from
// the items and the restaurant rates, see CalcTotals.
type Totals struct {
	Subtotal      decimal.Decimal
	TaxTotal      decimal.Decimal
	ServiceCharge decimal.Decimal
	DiscountTotal decimal.Decimal
	GrandTotal    decimal.Decimal
}

// Order is the aggregate root of the order engine.
type Order struct {
	ID           int64
	RestaurantID int64
	Channel      Channel
	TableID      *int64
	// TableName is resolved from the table reference on reads.
	TableName     *string
	GroupID       *int64
	CustomerName  *string
	CustomerPhone *string
	Status        Status
	Totals
	Notes            *string
	CreatedByStaffID *int64
	CancelReason     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
	CanceledAt       *time.Time

	Items    []Item
	Payments []Payment
}

// Item is a priced snapshot of a menu item inside an order.
type Item struct {
	ID      int64
	OrderID int64
	// MenuItemID is nil once the source menu item has been deleted.
	MenuItemID           *int64
	NameSnapshot         string
	CategoryNameSnapshot *string
	UnitPrice            decimal.Decimal
	Qty                  int
	LineTotal            decimal.Decimal
	Notes                *string
}

// Payment is an immutable payment record. Corrections are new records.
type Payment struct {
	ID        int64
	OrderID   int64
	Method    PaymentMethod
	Amount    decimal.Decimal
	Reference *string
	Status    PaymentStatus
	CreatedAt time.Time
}

// Event is an append-only audit record.
type Event struct {
	ID        int64
	OrderID   int64
	Name      string
	Payload   map[string]any
	ActorID   *int64
	CreatedAt time.Time
}

// itemIndex returns the position of item id in o.Items.
func (o *Order) itemIndex(id int64) (int, bool) {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// ensureItemsMutable fails unless items may still change.
func (o *Order) ensureItemsMutable() error {
	if !o.Status.ItemsMutable() {
		return &IllegalStateError{OrderID: o.ID, Status: o.Status}
	}
	return nil
}

// Clone returns a deep copy of o.
func (o *Order) Clone() *Order {
	c := *o
	c.TableID = clonePtr(o.TableID)
	c.TableName = clonePtr(o.TableName)
	c.GroupID = clonePtr(o.GroupID)
	c.CustomerName = clonePtr(o.CustomerName)
	c.CustomerPhone = clonePtr(o.CustomerPhone)
	c.Notes = clonePtr(o.Notes)
	c.CreatedByStaffID = clonePtr(o.CreatedByStaffID)
	c.CancelReason = clonePtr(o.CancelReason)
	c.CompletedAt = clonePtr(o.CompletedAt)
	c.CanceledAt = clonePtr(o.CanceledAt)
	c.Items = make([]Item, len(o.Items))
	for i, it := range o.Items {
		it.MenuItemID = clonePtr(it.MenuItemID)
		it.CategoryNameSnapshot = clonePtr(it.CategoryNameSnapshot)
		it.Notes = clonePtr(it.Notes)
		c.Items[i] = it
	}
	c.Payments = make([]Payment, len(o.Payments))
	for i, p := range o.Payments {
		p.Reference = clonePtr(p.Reference)
		c.Payments[i] = p
	}
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

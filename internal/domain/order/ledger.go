package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/restaurant-orders/internal/money"
)

// TotalPaid sums the successful payments.
func TotalPaid(payments []Payment) decimal.Decimal {
	var paid []decimal.Decimal
	for _, p := range payments {
		if p.Status == PaymentSuccess {
			paid = append(paid, money.Round(p.Amount))
		}
	}
	return money.Sum(paid...)
}

// TotalPaid sums the successful payments of o.
func (o *Order) TotalPaid() decimal.Decimal {
	return TotalPaid(o.Payments)
}

// BalanceDue is the unpaid part of the grand total, never negative.
func (o *Order) BalanceDue() decimal.Decimal {
	return money.NonNegative(money.Round(o.GrandTotal.Sub(o.TotalPaid())))
}

// fullyPaid reports whether o should be completed automatically.
func (o *Order) fullyPaid() bool {
	if o.Status.Terminal() {
		return false
	}
	return o.TotalPaid().GreaterThanOrEqual(money.Round(o.GrandTotal))
}

// autoComplete completes o when its payments cover the grand total. It
// bypasses the transition table and reports whether the status changed.
func (o *Order) autoComplete(now time.Time) bool {
	if !o.fullyPaid() {
		return false
	}
	o.setStatus(StatusCompleted, now)
	return true
}

// Bill is the payable summary of an order.
type Bill struct {
	OrderID  int64
	Status   Status
	Items    []Item
	Payments []Payment
	Totals
	TotalPaid  decimal.Decimal
	BalanceDue decimal.Decimal
}

// Bill summarises o.
func (o *Order) Bill() *Bill {
	return &Bill{
		OrderID:    o.ID,
		Status:     o.Status,
		Items:      o.Items,
		Payments:   o.Payments,
		Totals:     o.Totals,
		TotalPaid:  o.TotalPaid(),
		BalanceDue: o.BalanceDue(),
	}
}

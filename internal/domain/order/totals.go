package order

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/restaurant-orders/internal/domain/restaurant"
	"github.com/xenking/restaurant-orders/internal/money"
)

// Rates are the percentage rates applied to an order subtotal.
type Rates struct {
	TaxRate           decimal.Decimal
	ServiceChargeRate decimal.Decimal
}

// RatesOf returns the rates configured for r.
func RatesOf(r *restaurant.Restaurant) Rates {
	return Rates{
		TaxRate:           r.TaxRate,
		ServiceChargeRate: r.ServiceChargeRate,
	}
}

// CalcTotals derives the order totals from its items. Each component is
// rounded on its own before it feeds the next one. The grand total is not
// clamped; balance calculations clamp separately.
func CalcTotals(items []Item, rates Rates) Totals {
	lines := make([]decimal.Decimal, len(items))
	for i, it := range items {
		lines[i] = it.LineTotal
	}
	subtotal := money.Sum(lines...)
	tax := money.Percent(subtotal, rates.TaxRate)
	service := money.Percent(subtotal, rates.ServiceChargeRate)

	// No discount engine yet; the field is kept so one can be added later.
	discount := decimal.Zero

	return Totals{
		Subtotal:      subtotal,
		TaxTotal:      tax,
		ServiceCharge: service,
		DiscountTotal: money.Round(discount),
		GrandTotal:    money.Round(subtotal.Add(tax).Add(service).Sub(discount)),
	}
}

// recalc refreshes the totals of o. It fails when the grand total no longer
// fits a stored amount.
func (o *Order) recalc(rates Rates) error {
	t := CalcTotals(o.Items, rates)
	if !money.InRange(t.GrandTotal) {
		return &ValidationError{Field: "items", Reason: "order total exceeds " + money.String(money.Max)}
	}
	o.Totals = t
	return nil
}

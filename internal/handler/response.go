package handler

import (
	"fmt"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/restaurant-orders/internal/domain/order"
	"github.com/xenking/restaurant-orders/internal/money"
)

// writeJSON encodes the body produced by fn with the given status.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// encodeMoney writes d as a JSON number with exactly two fractional digits.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(money.String(d)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func field(e *jx.Encoder, name string, fn func(e *jx.Encoder)) {
	e.FieldStart(name)
	fn(e)
}

func optStr(e *jx.Encoder, name string, v *string) {
	e.FieldStart(name)
	if v == nil {
		e.Null()
		return
	}
	e.Str(*v)
}

func optInt(e *jx.Encoder, name string, v *int64) {
	e.FieldStart(name)
	if v == nil {
		e.Null()
		return
	}
	e.Int64(*v)
}

func optTime(e *jx.Encoder, name string, v *time.Time) {
	e.FieldStart(name)
	if v == nil {
		e.Null()
		return
	}
	encodeTime(e, *v)
}

func encodeTotals(e *jx.Encoder, t order.Totals) {
	field(e, "subtotal", func(e *jx.Encoder) { encodeMoney(e, t.Subtotal) })
	field(e, "tax_total", func(e *jx.Encoder) { encodeMoney(e, t.TaxTotal) })
	field(e, "service_charge", func(e *jx.Encoder) { encodeMoney(e, t.ServiceCharge) })
	field(e, "discount_total", func(e *jx.Encoder) { encodeMoney(e, t.DiscountTotal) })
	field(e, "grand_total", func(e *jx.Encoder) { encodeMoney(e, t.GrandTotal) })
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	field(e, "id", func(e *jx.Encoder) { e.Int64(o.ID) })
	field(e, "restaurant_id", func(e *jx.Encoder) { e.Int64(o.RestaurantID) })
	field(e, "channel", func(e *jx.Encoder) { e.Str(string(o.Channel)) })
	optInt(e, "table_id", o.TableID)
	optStr(e, "table_name", o.TableName)
	optInt(e, "group_id", o.GroupID)
	optStr(e, "customer_name", o.CustomerName)
	optStr(e, "customer_phone", o.CustomerPhone)
	field(e, "status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
	encodeTotals(e, o.Totals)
	optStr(e, "notes", o.Notes)
	optInt(e, "created_by_staff_id", o.CreatedByStaffID)
	optStr(e, "cancel_reason", o.CancelReason)
	field(e, "created_at", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
	field(e, "updated_at", func(e *jx.Encoder) { encodeTime(e, o.UpdatedAt) })
	optTime(e, "completed_at", o.CompletedAt)
	optTime(e, "canceled_at", o.CanceledAt)
	field(e, "items", func(e *jx.Encoder) { encodeItems(e, o.Items) })
	field(e, "payments", func(e *jx.Encoder) { encodePayments(e, o.Payments) })
	e.ObjEnd()
}

func encodeItems(e *jx.Encoder, items []order.Item) {
	e.ArrStart()
	for i := range items {
		it := &items[i]
		e.ObjStart()
		field(e, "id", func(e *jx.Encoder) { e.Int64(it.ID) })
		optInt(e, "menu_item_id", it.MenuItemID)
		field(e, "name", func(e *jx.Encoder) { e.Str(it.NameSnapshot) })
		optStr(e, "category_name", it.CategoryNameSnapshot)
		field(e, "unit_price", func(e *jx.Encoder) { encodeMoney(e, it.UnitPrice) })
		field(e, "qty", func(e *jx.Encoder) { e.Int(it.Qty) })
		field(e, "line_total", func(e *jx.Encoder) { encodeMoney(e, it.LineTotal) })
		optStr(e, "notes", it.Notes)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func encodePayment(e *jx.Encoder, p *order.Payment) {
	e.ObjStart()
	field(e, "id", func(e *jx.Encoder) { e.Int64(p.ID) })
	field(e, "order_id", func(e *jx.Encoder) { e.Int64(p.OrderID) })
	field(e, "method", func(e *jx.Encoder) { e.Str(string(p.Method)) })
	field(e, "amount", func(e *jx.Encoder) { encodeMoney(e, p.Amount) })
	optStr(e, "reference", p.Reference)
	field(e, "status", func(e *jx.Encoder) { e.Str(string(p.Status)) })
	field(e, "created_at", func(e *jx.Encoder) { encodeTime(e, p.CreatedAt) })
	e.ObjEnd()
}

func encodePayments(e *jx.Encoder, payments []order.Payment) {
	e.ArrStart()
	for i := range payments {
		encodePayment(e, &payments[i])
	}
	e.ArrEnd()
}

func encodePage(e *jx.Encoder, p *order.Page) {
	e.ObjStart()
	field(e, "total", func(e *jx.Encoder) { e.Int(p.Total) })
	field(e, "orders", func(e *jx.Encoder) {
		e.ArrStart()
		for i := range p.Orders {
			encodeOrder(e, &p.Orders[i])
		}
		e.ArrEnd()
	})
	e.ObjEnd()
}

func encodeBill(e *jx.Encoder, b *order.Bill) {
	e.ObjStart()
	field(e, "order_id", func(e *jx.Encoder) { e.Int64(b.OrderID) })
	field(e, "status", func(e *jx.Encoder) { e.Str(string(b.Status)) })
	field(e, "items", func(e *jx.Encoder) { encodeItems(e, b.Items) })
	field(e, "payments", func(e *jx.Encoder) { encodePayments(e, b.Payments) })
	encodeTotals(e, b.Totals)
	field(e, "total_paid", func(e *jx.Encoder) { encodeMoney(e, b.TotalPaid) })
	field(e, "balance_due", func(e *jx.Encoder) { encodeMoney(e, b.BalanceDue) })
	e.ObjEnd()
}

func encodeEvents(e *jx.Encoder, events []order.Event) {
	e.ArrStart()
	for i := range events {
		ev := &events[i]
		e.ObjStart()
		field(e, "id", func(e *jx.Encoder) { e.Int64(ev.ID) })
		field(e, "order_id", func(e *jx.Encoder) { e.Int64(ev.OrderID) })
		field(e, "name", func(e *jx.Encoder) { e.Str(ev.Name) })
		field(e, "payload", func(e *jx.Encoder) { encodeAny(e, ev.Payload) })
		optInt(e, "actor_id", ev.ActorID)
		field(e, "created_at", func(e *jx.Encoder) { encodeTime(e, ev.CreatedAt) })
		e.ObjEnd()
	}
	e.ArrEnd()
}

// encodeAny writes an event payload value. Payloads hold scalars and nested
// objects decoded from JSONB.
func encodeAny(e *jx.Encoder, v any) {
	switch v := v.(type) {
	case nil:
		e.Null()
	case string:
		e.Str(v)
	case bool:
		e.Bool(v)
	case int:
		e.Int(v)
	case int64:
		e.Int64(v)
	case float64:
		e.Float64(v)
	case decimal.Decimal:
		encodeMoney(e, v)
	case map[string]any:
		e.ObjStart()
		for _, k := range slices.Sorted(maps.Keys(v)) {
			e.FieldStart(k)
			encodeAny(e, v[k])
		}
		e.ObjEnd()
	case []any:
		e.ArrStart()
		for _, item := range v {
			encodeAny(e, item)
		}
		e.ArrEnd()
	default:
		e.Str(fmt.Sprint(v))
	}
}

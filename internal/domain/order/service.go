package order

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/restaurant-orders/internal/domain/menu"
	"github.com/xenking/restaurant-orders/internal/domain/restaurant"
	"github.com/xenking/restaurant-orders/internal/money"
)

const instrumentationName = "github.com/xenking/restaurant-orders/internal/domain/order"

// Default page sizes for listings.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	RestaurantID  int64
	Channel       Channel
	TableID       *int64
	GroupID       *int64
	CustomerName  *string
	CustomerPhone *string
	Notes         *string
	Items         []ItemRequest
	Payments      []PaymentRequest
}

// PaymentRequest holds the input for recording a payment. An empty Status
// means PaymentSuccess.
type PaymentRequest struct {
	Method    PaymentMethod
	Amount    decimal.Decimal
	Reference *string
	Status    PaymentStatus
}

// ChannelItemsRequest adds items on behalf of a table or group. At least one
// of TableID and GroupID is required and must match the order.
type ChannelItemsRequest struct {
	TableID *int64
	GroupID *int64
	Items   []ItemRequest
}

// PaymentResult is the recorded payment and the order after auto-completion.
type PaymentResult struct {
	Payment Payment
	Order   *Order
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTracerProvider sets the tracer provider for operation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider for order counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithPageSize sets the default and maximum listing page size.
func WithPageSize(def, maxSize int) Option {
	return func(s *Service) {
		s.defaultLimit = def
		s.maxLimit = maxSize
	}
}

// Service implements the order lifecycle and billing operations. Every
// mutation runs in a single transaction holding the order row lock.
type Service struct {
	restaurants restaurant.Repository
	resolver    *SnapshotResolver
	orders      Repository

	now            func() time.Time
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	defaultLimit   int
	maxLimit       int

	created       metric.Int64Counter
	payments      metric.Int64Counter
	autoCompleted metric.Int64Counter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	restaurants restaurant.Repository,
	menuItems menu.Repository,
	orders Repository,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		restaurants:    restaurants,
		resolver:       NewSnapshotResolver(menuItems),
		orders:         orders,
		now:            time.Now,
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
		defaultLimit:   DefaultPageSize,
		maxLimit:       MaxPageSize,
	}
	for _, o := range opts {
		o(s)
	}
	s.tracer = s.tracerProvider.Tracer(instrumentationName)

	meter := s.meterProvider.Meter(instrumentationName)
	var err error
	if s.created, err = meter.Int64Counter("orders.created",
		metric.WithDescription("Orders created"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.created counter")
	}
	if s.payments, err = meter.Int64Counter("orders.payments",
		metric.WithDescription("Payments recorded"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.payments counter")
	}
	if s.autoCompleted, err = meter.Int64Counter("orders.auto_completed",
		metric.WithDescription("Orders completed by full payment"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.auto_completed counter")
	}
	return s, nil
}

// CreateOrder creates an order in status pending. When a table is given and
// it already has an active order, that order is returned unchanged instead.
func (s *Service) CreateOrder(ctx context.Context, req CreateRequest, actor *int64) (_ *Order, err error) {
	ctx, span := s.start(ctx, "CreateOrder", 0)
	defer func() { endSpan(span, err) }()

	if !req.Channel.Valid() {
		return nil, &ValidationError{Field: "channel", Reason: "unknown channel " + quote(string(req.Channel))}
	}
	if err := validateItemRequests(req.Items); err != nil {
		return nil, err
	}
	now := s.now()
	payments := make([]Payment, len(req.Payments))
	for i, p := range req.Payments {
		if payments[i], err = newPayment(fmt.Sprintf("payments[%d]", i), p, now); err != nil {
			return nil, err
		}
	}

	r, err := s.getRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	tableID := nonZero(req.TableID)
	var table *restaurant.Table
	if tableID != nil {
		if table, err = s.getTable(ctx, *tableID, r.ID); err != nil {
			return nil, err
		}
	}
	items, err := s.resolver.Resolve(ctx, r.ID, req.Items)
	if err != nil {
		return nil, err
	}

	var (
		out     *Order
		created bool
	)
	err = s.orders.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if table != nil {
			existing, ok, err := tx.ActiveForTable(ctx, table.ID)
			if err != nil {
				return err
			}
			if ok {
				zctx.From(ctx).Info("Returning active order for table",
					zap.Int64("table_id", table.ID),
					zap.Int64("order_id", existing.ID),
				)
				out = existing
				return nil
			}
		}

		o := &Order{
			RestaurantID:     r.ID,
			Channel:          req.Channel,
			TableID:          tableID,
			GroupID:          nonZero(req.GroupID),
			CustomerName:     clonePtr(req.CustomerName),
			CustomerPhone:    clonePtr(req.CustomerPhone),
			Status:           StatusPending,
			Notes:            clonePtr(req.Notes),
			CreatedByStaffID: clonePtr(actor),
			CreatedAt:        now,
			UpdatedAt:        now,
			Items:            items,
			Payments:         payments,
		}
		if table != nil {
			o.TableName = &table.Name
		}
		if err := o.recalc(RatesOf(r)); err != nil {
			return err
		}

		if err := tx.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		if err := s.record(ctx, tx, o, EventOrderCreated, map[string]any{
			"status": string(o.Status),
		}, actor); err != nil {
			return err
		}
		if err := s.autoComplete(ctx, tx, o); err != nil {
			return err
		}
		out, created = o, true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.created.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", string(out.Channel))))
	}
	return out, nil
}

// GetOrder returns the full aggregate.
func (s *Service) GetOrder(ctx context.Context, id int64) (_ *Order, err error) {
	ctx, span := s.start(ctx, "GetOrder", id)
	defer func() { endSpan(span, err) }()

	return s.orders.Get(ctx, id)
}

// ListOrders returns a page of orders of one restaurant.
func (s *Service) ListOrders(ctx context.Context, f ListFilter) (_ *Page, err error) {
	ctx, span := s.start(ctx, "ListOrders", 0)
	defer func() { endSpan(span, err) }()

	if f.Channel != nil && !f.Channel.Valid() {
		return nil, &ValidationError{Field: "channel", Reason: "unknown channel " + quote(string(*f.Channel))}
	}
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, &ValidationError{Field: "status", Reason: "unknown status " + quote(string(st))}
		}
	}
	if f.Skip < 0 {
		return nil, &ValidationError{Field: "skip", Reason: "must not be negative"}
	}
	switch {
	case f.Limit < 0:
		return nil, &ValidationError{Field: "limit", Reason: "must not be negative"}
	case f.Limit == 0:
		f.Limit = s.defaultLimit
	case f.Limit > s.maxLimit:
		f.Limit = s.maxLimit
	}
	f.TableID = nonZero(f.TableID)
	f.Search = strings.TrimSpace(f.Search)

	return s.orders.List(ctx, f)
}

// ListTableOrders lists the orders of a table within its restaurant.
func (s *Service) ListTableOrders(ctx context.Context, tableID int64, f ListFilter) (*Page, error) {
	t, err := s.restaurants.GetTable(ctx, tableID)
	if err != nil {
		if errors.Is(err, restaurant.ErrTableNotFound) {
			return nil, &NotFoundError{Entity: "table", ID: tableID}
		}
		return nil, errors.Wrap(err, "get table")
	}
	f.RestaurantID = t.RestaurantID
	f.TableID = &t.ID
	return s.ListOrders(ctx, f)
}

// AddItems appends items to a mutable order.
func (s *Service) AddItems(ctx context.Context, id int64, reqs []ItemRequest, actor *int64) (_ *Order, err error) {
	ctx, span := s.start(ctx, "AddItems", id)
	defer func() { endSpan(span, err) }()

	return s.addItems(ctx, id, reqs, actor, nil, nil)
}

// AddItem appends a single item to a mutable order.
func (s *Service) AddItem(ctx context.Context, id int64, req ItemRequest, actor *int64) (_ *Order, err error) {
	ctx, span := s.start(ctx, "AddItem", id)
	defer func() { endSpan(span, err) }()

	return s.addItems(ctx, id, []ItemRequest{req}, actor, nil, nil)
}

// AddChannelItems appends items on behalf of the table or group the order
// belongs to.
func (s *Service) AddChannelItems(ctx context.Context, id int64, req ChannelItemsRequest, actor *int64) (_ *Order, err error) {
	ctx, span := s.start(ctx, "AddChannelItems", id)
	defer func() { endSpan(span, err) }()

	if req.TableID == nil && req.GroupID == nil {
		return nil, &ValidationError{Field: "table_id", Reason: "table_id or group_id is required"}
	}
	belongs := func(o *Order) error {
		if req.TableID != nil && !equalID(o.TableID, *req.TableID) {
			return &ValidationError{Field: "table_id", Reason: fmt.Sprintf("order %d does not belong to table %d", o.ID, *req.TableID)}
		}
		if req.GroupID != nil && !equalID(o.GroupID, *req.GroupID) {
			return &ValidationError{Field: "group_id", Reason: fmt.Sprintf("order %d does not belong to group %d", o.ID, *req.GroupID)}
		}
		return nil
	}
	extra := map[string]any{
		"table_id": idValue(req.TableID),
		"group_id": idValue(req.GroupID),
	}
	return s.addItems(ctx, id, req.Items, actor, belongs, extra)
}

func (s *Service) addItems(
	ctx context.Context,
	id int64,
	reqs []ItemRequest,
	actor *int64,
	check func(o *Order) error,
	extra map[string]any,
) (*Order, error) {
	if err := validateItemRequests(reqs); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(ctx context.Context, tx Tx, o *Order) error {
		if err := o.ensureItemsMutable(); err != nil {
			return err
		}
		if check != nil {
			if err := check(o); err != nil {
				return err
			}
		}
		r, err := s.getRestaurant(ctx, o.RestaurantID)
		if err != nil {
			return err
		}
		items, err := s.resolver.Resolve(ctx, o.RestaurantID, reqs)
		if err != nil {
			return err
		}
		if err := tx.AddItems(ctx, o.ID, items); err != nil {
			return errors.Wrap(err, "add items")
		}
		o.Items = append(o.Items, items...)
		if err := o.recalc(RatesOf(r)); err != nil {
			return err
		}
		o.UpdatedAt = s.now()
		if err := tx.Update(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}
		for _, it := range items {
			payload := map[string]any{
				"item_id":      it.ID,
				"menu_item_id": idValue(it.MenuItemID),
				"qty":          it.Qty,
			}
			maps.Copy(payload, extra)
			if err := s.record(ctx, tx, o, EventItemAdded, payload, actor); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateItemQuantity changes the quantity of one item of a mutable order.
func (s *Service) UpdateItemQuantity(ctx context.Context, id, itemID int64, qty int, actor *int64) (_ *Order, err error) {
	ctx, span := s.start(ctx, "UpdateItemQuantity", id)
	defer func() { endSpan(span, err) }()

	if err := validateQty("qty", qty); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(ctx context.Context, tx Tx, o *Order) error {
		if err := o.ensureItemsMutable(); err != nil {
			return err
		}
		idx, ok := o.itemIndex(itemID)
		if !ok {
			return &NotFoundError{Entity: "item", ID: itemID}
		}
		r, err := s.getRestaurant(ctx, o.RestaurantID)
		if err != nil {
			return err
		}
		line := money.Line(o.Items[idx].UnitPrice, qty)
		if !money.InRange(line) {
			return &ValidationError{Field: "qty", Reason: "line total exceeds " + money.String(money.Max)}
		}
		it := &o.Items[idx]
		it.Qty = qty
		it.LineTotal = line
		if err := tx.UpdateItem(ctx, it); err != nil {
			return errors.Wrap(err, "update item")
		}
		if err := o.recalc(RatesOf(r)); err != nil {
			return err
		}
		o.UpdatedAt = s.now()
		if err := tx.Update(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}
		return s.record(ctx, tx, o, EventItemQtyChanged, map[string]any{
			"item_id": itemID,
			"qty":     qty,
		}, actor)
	})
}

// RemoveItem deletes one item of a mutable order.
func (s *Service) RemoveItem(ctx context.Context, id, itemID int64, actor *int64) (_ *Order, err error) {
	ctx, span := s.start(ctx, "RemoveItem", id)
	defer func() { endSpan(span, err) }()

	return s.mutate(ctx, id, func(ctx context.Context, tx Tx, o *Order) error {
		if err := o.ensureItemsMutable(); err != nil {
			return err
		}
		idx, ok := o.itemIndex(itemID)
		if !ok {
			return &NotFoundError{Entity: "item", ID: itemID}
		}
		r, err := s.getRestaurant(ctx, o.RestaurantID)
		if err != nil {
			return err
		}
		removed := o.Items[idx]
		if err := tx.DeleteItem(ctx, o.ID, itemID); err != nil {
			return errors.Wrap(err, "delete item")
		}
		o.Items = append(o.Items[:idx:idx], o.Items[idx+1:]...)
		if err := o.recalc(RatesOf(r)); err != nil {
			return err
		}
		o.UpdatedAt = s.now()
		if err := tx.Update(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}
		return s.record(ctx, tx, o, EventItemRemoved, map[string]any{
			"item_id":      itemID,
			"menu_item_id": idValue(removed.MenuItemID),
		}, actor)
	})
}

// UpdateStatus moves the order along the transition table.
func (s *Service) UpdateStatus(ctx context.Context, id int64, target Status, actor *int64) (_ *Order, err error) {
	ctx, span := s.start(ctx, "UpdateStatus", id)
	defer func() { endSpan(span, err) }()

	if !target.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "unknown status " + quote(string(target))}
	}
	return s.mutate(ctx, id, func(ctx context.Context, tx Tx, o *Order) error {
		if err := o.Transition(target, s.now()); err != nil {
			return err
		}
		if err := tx.Update(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}
		return s.record(ctx, tx, o, EventStatusChanged, map[string]any{
			"status": string(target),
		}, actor)
	})
}

// CancelOrder cancels a non-terminal order with a reason. Canceling an
// already canceled order is a no-op.
func (s *Service) CancelOrder(ctx context.Context, id int64, reason string, actor *int64) (_ *Order, err error) {
	ctx, span := s.start(ctx, "CancelOrder", id)
	defer func() { endSpan(span, err) }()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Reason: "must not be empty"}
	}
	return s.mutate(ctx, id, func(ctx context.Context, tx Tx, o *Order) error {
		switch o.Status {
		case StatusCanceled:
			return nil
		case StatusCompleted:
			return &IllegalTransitionError{OrderID: o.ID, From: o.Status, To: StatusCanceled}
		}
		o.setStatus(StatusCanceled, s.now())
		o.CancelReason = &reason
		if err := tx.Update(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}
		return s.record(ctx, tx, o, EventOrderCanceled, map[string]any{
			"reason": reason,
		}, actor)
	})
}

// UpdateOrder applies a partial update of header fields. Items and totals
// are left untouched.
func (s *Service) UpdateOrder(ctx context.Context, id int64, u Update, actor *int64) (_ *Order, err error) {
	ctx, span := s.start(ctx, "UpdateOrder", id)
	defer func() { endSpan(span, err) }()

	return s.mutate(ctx, id, func(ctx context.Context, tx Tx, o *Order) error {
		var table *restaurant.Table
		if v, ok := u.TableID.Get(); ok && v != 0 {
			t, err := s.getTable(ctx, v, o.RestaurantID)
			if err != nil {
				return err
			}
			table = t
		}
		changed := u.apply(o)
		if table != nil {
			o.TableName = &table.Name
		}
		o.UpdatedAt = s.now()
		if err := tx.Update(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}
		return s.record(ctx, tx, o, EventOrderUpdated, changed, actor)
	})
}

// DeleteOrder removes the order with its items, payments and events.
func (s *Service) DeleteOrder(ctx context.Context, id int64) (err error) {
	ctx, span := s.start(ctx, "DeleteOrder", id)
	defer func() { endSpan(span, err) }()

	_, err = s.mutate(ctx, id, func(ctx context.Context, tx Tx, o *Order) error {
		if err := tx.Delete(ctx, o.ID); err != nil {
			return errors.Wrap(err, "delete order")
		}
		return nil
	})
	if err != nil {
		return err
	}
	zctx.From(ctx).Info("Order deleted", zap.Int64("order_id", id))
	return nil
}

// AddPayment records a payment and completes the order once its successful
// payments cover the grand total.
func (s *Service) AddPayment(ctx context.Context, id int64, req PaymentRequest, actor *int64) (_ *PaymentResult, err error) {
	ctx, span := s.start(ctx, "AddPayment", id)
	defer func() { endSpan(span, err) }()

	p, err := newPayment("payment", req, s.now())
	if err != nil {
		return nil, err
	}
	o, err := s.mutate(ctx, id, func(ctx context.Context, tx Tx, o *Order) error {
		p.OrderID = o.ID
		if err := tx.AddPayment(ctx, &p); err != nil {
			return errors.Wrap(err, "add payment")
		}
		o.Payments = append(o.Payments, p)
		if err := s.record(ctx, tx, o, EventPaymentAdded, map[string]any{
			"amount": money.String(p.Amount),
			"method": string(p.Method),
		}, actor); err != nil {
			return err
		}
		return s.autoComplete(ctx, tx, o)
	})
	if err != nil {
		return nil, err
	}
	s.payments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", string(p.Method)),
		attribute.String("status", string(p.Status)),
	))
	return &PaymentResult{Payment: p, Order: o}, nil
}

// GetBill returns the payable summary of an order.
func (s *Service) GetBill(ctx context.Context, id int64) (_ *Bill, err error) {
	ctx, span := s.start(ctx, "GetBill", id)
	defer func() { endSpan(span, err) }()

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.Bill(), nil
}

// Events returns the audit log of an order, most recent first.
func (s *Service) Events(ctx context.Context, id int64) (_ []Event, err error) {
	ctx, span := s.start(ctx, "Events", id)
	defer func() { endSpan(span, err) }()

	return s.orders.Events(ctx, id)
}

// mutate locks order id, applies fn and returns the updated aggregate. The
// whole sequence is one transaction.
func (s *Service) mutate(ctx context.Context, id int64, fn func(ctx context.Context, tx Tx, o *Order) error) (*Order, error) {
	var out *Order
	err := s.orders.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// autoComplete completes o if it is fully paid. The audit event has no actor.
func (s *Service) autoComplete(ctx context.Context, tx Tx, o *Order) error {
	if !o.autoComplete(s.now()) {
		return nil
	}
	if err := tx.Update(ctx, o); err != nil {
		return errors.Wrap(err, "update order")
	}
	if err := s.record(ctx, tx, o, EventStatusChanged, map[string]any{
		"status": string(StatusCompleted),
		"auto":   true,
	}, nil); err != nil {
		return err
	}
	s.autoCompleted.Add(ctx, 1)
	zctx.From(ctx).Info("Order auto-completed",
		zap.Int64("order_id", o.ID),
		zap.Stringer("grand_total", o.GrandTotal),
	)
	return nil
}

func (s *Service) record(ctx context.Context, tx Tx, o *Order, name string, payload map[string]any, actor *int64) error {
	e := &Event{
		OrderID:   o.ID,
		Name:      name,
		Payload:   payload,
		ActorID:   clonePtr(actor),
		CreatedAt: s.now(),
	}
	if err := tx.AppendEvent(ctx, e); err != nil {
		return errors.Wrapf(err, "append %s event", name)
	}
	return nil
}

func (s *Service) getRestaurant(ctx context.Context, id int64) (*restaurant.Restaurant, error) {
	r, err := s.restaurants.GetRestaurant(ctx, id)
	if err != nil {
		if errors.Is(err, restaurant.ErrNotFound) {
			return nil, &NotFoundError{Entity: "restaurant", ID: id}
		}
		return nil, errors.Wrap(err, "get restaurant")
	}
	return r, nil
}

// getTable loads a table and checks that it belongs to restaurantID.
func (s *Service) getTable(ctx context.Context, id, restaurantID int64) (*restaurant.Table, error) {
	t, err := s.restaurants.GetTable(ctx, id)
	if err != nil {
		if errors.Is(err, restaurant.ErrTableNotFound) {
			return nil, &NotFoundError{Entity: "table", ID: id}
		}
		return nil, errors.Wrap(err, "get table")
	}
	if t.RestaurantID != restaurantID {
		return nil, &CrossTenantError{Entity: "table", ID: id, RestaurantID: restaurantID}
	}
	return t, nil
}

func (s *Service) start(ctx context.Context, op string, orderID int64) (context.Context, trace.Span) {
	var opts []trace.SpanStartOption
	if orderID != 0 {
		opts = append(opts, trace.WithAttributes(attribute.Int64("order.id", orderID)))
	}
	return s.tracer.Start(ctx, "order."+op, opts...)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// newPayment validates req and builds the payment record. The amount is
// rounded before the positivity check.
func newPayment(field string, req PaymentRequest, now time.Time) (Payment, error) {
	if !req.Method.Valid() {
		return Payment{}, &ValidationError{Field: field + ".method", Reason: "unknown method " + quote(string(req.Method))}
	}
	status := req.Status
	if status == "" {
		status = PaymentSuccess
	}
	if !status.Valid() {
		return Payment{}, &ValidationError{Field: field + ".status", Reason: "unknown status " + quote(string(status))}
	}
	amount := money.Round(req.Amount)
	if !amount.IsPositive() {
		return Payment{}, &ValidationError{Field: field + ".amount", Reason: "must be greater than 0"}
	}
	if !money.InRange(amount) {
		return Payment{}, &ValidationError{Field: field + ".amount", Reason: "must not exceed " + money.String(money.Max)}
	}
	return Payment{
		Method:    req.Method,
		Amount:    amount,
		Reference: clonePtr(req.Reference),
		Status:    status,
		CreatedAt: now,
	}, nil
}

func equalID(p *int64, id int64) bool {
	return p != nil && *p == id
}

// idValue renders an optional id for an event payload.
func idValue(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

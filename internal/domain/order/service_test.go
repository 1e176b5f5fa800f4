package order_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/restaurant-orders/internal/domain/menu"
	"github.com/xenking/restaurant-orders/internal/domain/order"
	"github.com/xenking/restaurant-orders/internal/domain/restaurant"
	"github.com/xenking/restaurant-orders/internal/storage/memory"
)

// --- Helpers ---

// stepClock advances by one second on every call so that creation order is
// observable in listings.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T { return &v }

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "got %s, want %s", got, want)
}

const (
	restaurantMain    = int64(1)
	restaurantOther   = int64(2)
	restaurantNoRates = int64(3)

	tableMain  = int64(5)
	tableOther = int64(6)

	itemCurry   = int64(11)
	itemNaan    = int64(12)
	itemForeign = int64(21)
	itemMeal    = int64(31)
)

var staff = ptr(int64(42))

func newStore() *memory.Store {
	s := memory.New()
	s.AddRestaurant(restaurant.Restaurant{ID: restaurantMain, Name: "Main", TaxRate: dec("10"), ServiceChargeRate: dec("5")})
	s.AddRestaurant(restaurant.Restaurant{ID: restaurantOther, Name: "Other", TaxRate: dec("8"), ServiceChargeRate: dec("0")})
	s.AddRestaurant(restaurant.Restaurant{ID: restaurantNoRates, Name: "Flat", TaxRate: decimal.Zero, ServiceChargeRate: decimal.Zero})
	s.AddTable(restaurant.Table{ID: tableMain, RestaurantID: restaurantMain, Name: "T5"})
	s.AddTable(restaurant.Table{ID: tableOther, RestaurantID: restaurantOther, Name: "Patio"})
	s.AddCategory(100, "Mains")
	s.AddMenuItem(menu.Item{ID: itemCurry, RestaurantID: restaurantMain, CategoryID: ptr(int64(100)), Name: "Curry", Price: dec("100.00")})
	s.AddMenuItem(menu.Item{ID: itemNaan, RestaurantID: restaurantMain, Name: "Naan", Price: dec("12.50")})
	s.AddMenuItem(menu.Item{ID: itemForeign, RestaurantID: restaurantOther, Name: "Burger", Price: dec("9.00")})
	s.AddMenuItem(menu.Item{ID: itemMeal, RestaurantID: restaurantNoRates, Name: "Set Meal", Price: dec("25.00")})
	return s
}

func newService(t *testing.T, repo order.Repository, store *memory.Store) *order.Service {
	t.Helper()
	clock := &stepClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := order.NewService(store, store, repo, order.WithClock(clock.now))
	require.NoError(t, err)
	return svc
}

func setup(t *testing.T) (*order.Service, *memory.Store) {
	t.Helper()
	store := newStore()
	return newService(t, store, store), store
}

func createCurry(t *testing.T, svc *order.Service, qty int) *order.Order {
	t.Helper()
	o, err := svc.CreateOrder(context.Background(), order.CreateRequest{
		RestaurantID: restaurantMain,
		Channel:      order.ChannelPickup,
		Items:        []order.ItemRequest{{MenuItemID: itemCurry, Qty: qty}},
	}, staff)
	require.NoError(t, err)
	return o
}

func createMeal(t *testing.T, svc *order.Service) *order.Order {
	t.Helper()
	o, err := svc.CreateOrder(context.Background(), order.CreateRequest{
		RestaurantID: restaurantNoRates,
		Channel:      order.ChannelQuickBilling,
		Items:        []order.ItemRequest{{MenuItemID: itemMeal, Qty: 1}},
	}, staff)
	require.NoError(t, err)
	requireDec(t, "25.00", o.GrandTotal)
	return o
}

// advance walks o forward along the happy path until it reaches target.
func advance(t *testing.T, svc *order.Service, id int64, target order.Status) {
	t.Helper()
	for _, s := range []order.Status{order.StatusAccepted, order.StatusPreparing, order.StatusReady, order.StatusServed, order.StatusCompleted} {
		o, err := svc.GetOrder(context.Background(), id)
		require.NoError(t, err)
		if o.Status == target {
			return
		}
		_, err = svc.UpdateStatus(context.Background(), id, s, staff)
		require.NoError(t, err)
	}
}

func eventNames(t *testing.T, svc *order.Service, id int64) []string {
	t.Helper()
	events, err := svc.Events(context.Background(), id)
	require.NoError(t, err)
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}

func assertTotalsInvariant(t *testing.T, o *order.Order) {
	t.Helper()
	lines := decimal.Zero
	for _, it := range o.Items {
		lines = lines.Add(it.LineTotal)
	}
	assert.True(t, lines.Round(2).Equal(o.Subtotal), "subtotal %s != sum of lines %s", o.Subtotal, lines)
	grand := o.Subtotal.Add(o.TaxTotal).Add(o.ServiceCharge).Sub(o.DiscountTotal).Round(2)
	assert.True(t, grand.Equal(o.GrandTotal), "grand_total %s != %s", o.GrandTotal, grand)
}

// --- Tests ---

func TestCreateOrder_Totals(t *testing.T) {
	svc, _ := setup(t)

	o := createCurry(t, svc, 2)

	assert.Equal(t, order.StatusPending, o.Status)
	require.Len(t, o.Items, 1)
	requireDec(t, "100.00", o.Items[0].UnitPrice)
	requireDec(t, "200.00", o.Items[0].LineTotal)
	requireDec(t, "200.00", o.Subtotal)
	requireDec(t, "20.00", o.TaxTotal)
	requireDec(t, "10.00", o.ServiceCharge)
	requireDec(t, "0.00", o.DiscountTotal)
	requireDec(t, "230.00", o.GrandTotal)
	assert.Equal(t, "Curry", o.Items[0].NameSnapshot)
	assert.Equal(t, "Mains", *o.Items[0].CategoryNameSnapshot)
	assert.Equal(t, *staff, *o.CreatedByStaffID)

	events, err := svc.Events(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, order.EventOrderCreated, events[0].Name)
	assert.Equal(t, "pending", events[0].Payload["status"])
	assert.Equal(t, *staff, *events[0].ActorID)
}

func TestCreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name   string
		req    order.CreateRequest
		target error
	}{
		{
			name:   "UnknownRestaurant",
			req:    order.CreateRequest{RestaurantID: 99, Channel: order.ChannelPickup, Items: []order.ItemRequest{{MenuItemID: itemCurry, Qty: 1}}},
			target: order.ErrNotFound,
		},
		{
			name:   "UnknownChannel",
			req:    order.CreateRequest{RestaurantID: restaurantMain, Channel: "drone", Items: []order.ItemRequest{{MenuItemID: itemCurry, Qty: 1}}},
			target: order.ErrValidation,
		},
		{
			name:   "NoItems",
			req:    order.CreateRequest{RestaurantID: restaurantMain, Channel: order.ChannelPickup},
			target: order.ErrValidation,
		},
		{
			name:   "ZeroQty",
			req:    order.CreateRequest{RestaurantID: restaurantMain, Channel: order.ChannelPickup, Items: []order.ItemRequest{{MenuItemID: itemCurry, Qty: 0}}},
			target: order.ErrValidation,
		},
		{
			name:   "UnknownMenuItem",
			req:    order.CreateRequest{RestaurantID: restaurantMain, Channel: order.ChannelPickup, Items: []order.ItemRequest{{MenuItemID: 404, Qty: 1}}},
			target: order.ErrInvalidReference,
		},
		{
			name:   "ForeignMenuItem",
			req:    order.CreateRequest{RestaurantID: restaurantMain, Channel: order.ChannelPickup, Items: []order.ItemRequest{{MenuItemID: itemForeign, Qty: 1}}},
			target: order.ErrCrossTenantReference,
		},
		{
			name:   "UnknownTable",
			req:    order.CreateRequest{RestaurantID: restaurantMain, Channel: order.ChannelTable, TableID: ptr(int64(77)), Items: []order.ItemRequest{{MenuItemID: itemCurry, Qty: 1}}},
			target: order.ErrNotFound,
		},
		{
			name:   "ForeignTable",
			req:    order.CreateRequest{RestaurantID: restaurantMain, Channel: order.ChannelTable, TableID: ptr(tableOther), Items: []order.ItemRequest{{MenuItemID: itemCurry, Qty: 1}}},
			target: order.ErrCrossTenantReference,
		},
		{
			name: "NonPositivePayment",
			req: order.CreateRequest{
				RestaurantID: restaurantMain,
				Channel:      order.ChannelPickup,
				Items:        []order.ItemRequest{{MenuItemID: itemCurry, Qty: 1}},
				Payments:     []order.PaymentRequest{{Method: order.MethodCash, Amount: dec("0.004")}},
			},
			target: order.ErrValidation,
		},
		{
			name: "UnknownPaymentMethod",
			req: order.CreateRequest{
				RestaurantID: restaurantMain,
				Channel:      order.ChannelPickup,
				Items:        []order.ItemRequest{{MenuItemID: itemCurry, Qty: 1}},
				Payments:     []order.PaymentRequest{{Method: "cheque", Amount: dec("10")}},
			},
			target: order.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setup(t)
			_, err := svc.CreateOrder(context.Background(), tt.req, staff)
			require.ErrorIs(t, err, tt.target)

			page, err := svc.ListOrders(context.Background(), order.ListFilter{RestaurantID: restaurantMain})
			require.NoError(t, err)
			assert.Zero(t, page.Total, "no order may be persisted on failure")
		})
	}
}

func TestCreateOrder_ZeroIDsClearAssociations(t *testing.T) {
	svc, _ := setup(t)

	o, err := svc.CreateOrder(context.Background(), order.CreateRequest{
		RestaurantID: restaurantMain,
		Channel:      order.ChannelOnline,
		TableID:      ptr(int64(0)),
		GroupID:      ptr(int64(0)),
		Items:        []order.ItemRequest{{MenuItemID: itemNaan, Qty: 1}},
	}, nil)
	require.NoError(t, err)
	assert.Nil(t, o.TableID)
	assert.Nil(t, o.GroupID)
	assert.Nil(t, o.CreatedByStaffID)
}

func TestCreateOrder_ReturnsActiveTableOrder(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	req := order.CreateRequest{
		RestaurantID: restaurantMain,
		Channel:      order.ChannelTable,
		TableID:      ptr(tableMain),
		Items:        []order.ItemRequest{{MenuItemID: itemCurry, Qty: 1}},
	}

	first, err := svc.CreateOrder(ctx, req, staff)
	require.NoError(t, err)
	assert.Equal(t, "T5", *first.TableName)

	req.Items = []order.ItemRequest{{MenuItemID: itemNaan, Qty: 4}}
	second, err := svc.CreateOrder(ctx, req, staff)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Items, 1, "existing order is returned unchanged")

	_, err = svc.CancelOrder(ctx, first.ID, "guest left", staff)
	require.NoError(t, err)

	third, err := svc.CreateOrder(ctx, req, staff)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestCreateOrder_InitialPaymentsAutoComplete(t *testing.T) {
	svc, _ := setup(t)

	o, err := svc.CreateOrder(context.Background(), order.CreateRequest{
		RestaurantID: restaurantNoRates,
		Channel:      order.ChannelQuickBilling,
		Items:        []order.ItemRequest{{MenuItemID: itemMeal, Qty: 1}},
		Payments: []order.PaymentRequest{
			{Method: order.MethodCard, Amount: dec("20.00")},
			{Method: order.MethodCash, Amount: dec("5.00"), Status: order.PaymentSuccess},
		},
	}, staff)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, o.Status)
	assert.NotNil(t, o.CompletedAt)
	require.Len(t, o.Payments, 2)
	assert.Equal(t, order.PaymentSuccess, o.Payments[0].Status)

	events, err := svc.Events(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, order.EventStatusChanged, events[0].Name)
	assert.Equal(t, true, events[0].Payload["auto"])
	assert.Nil(t, events[0].ActorID)
	assert.Equal(t, order.EventOrderCreated, events[1].Name)
}

func TestAddItems(t *testing.T) {
	svc, _ := setup(t)
	o := createCurry(t, svc, 1)

	updated, err := svc.AddItems(context.Background(), o.ID, []order.ItemRequest{
		{MenuItemID: itemNaan, Qty: 2},
		{MenuItemID: itemCurry, Qty: 1, Notes: ptr("extra spicy")},
	}, staff)
	require.NoError(t, err)

	require.Len(t, updated.Items, 3)
	requireDec(t, "225.00", updated.Subtotal)
	requireDec(t, "22.50", updated.TaxTotal)
	requireDec(t, "11.25", updated.ServiceCharge)
	requireDec(t, "258.75", updated.GrandTotal)
	assertTotalsInvariant(t, updated)

	events, err := svc.Events(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, order.EventItemAdded, events[0].Name)
	assert.Equal(t, updated.Items[2].ID, events[0].Payload["item_id"])
	assert.Equal(t, itemCurry, events[0].Payload["menu_item_id"])
	assert.Equal(t, 1, events[0].Payload["qty"])
	assert.Equal(t, updated.Items[1].ID, events[1].Payload["item_id"])
}

func TestAddItem(t *testing.T) {
	svc, _ := setup(t)
	o := createCurry(t, svc, 1)

	updated, err := svc.AddItem(context.Background(), o.ID, order.ItemRequest{MenuItemID: itemNaan, Qty: 1}, staff)
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)
	requireDec(t, "112.50", updated.Subtotal)
}

func TestAddChannelItems(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	o, err := svc.CreateOrder(ctx, order.CreateRequest{
		RestaurantID: restaurantMain,
		Channel:      order.ChannelGroup,
		GroupID:      ptr(int64(9)),
		Items:        []order.ItemRequest{{MenuItemID: itemNaan, Qty: 1}},
	}, staff)
	require.NoError(t, err)

	_, err = svc.AddChannelItems(ctx, o.ID, order.ChannelItemsRequest{
		Items: []order.ItemRequest{{MenuItemID: itemNaan, Qty: 1}},
	}, staff)
	require.ErrorIs(t, err, order.ErrValidation)

	_, err = svc.AddChannelItems(ctx, o.ID, order.ChannelItemsRequest{
		GroupID: ptr(int64(10)),
		Items:   []order.ItemRequest{{MenuItemID: itemNaan, Qty: 1}},
	}, staff)
	var vErr *order.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "group_id", vErr.Field)

	updated, err := svc.AddChannelItems(ctx, o.ID, order.ChannelItemsRequest{
		GroupID: ptr(int64(9)),
		Items:   []order.ItemRequest{{MenuItemID: itemCurry, Qty: 1}},
	}, staff)
	require.NoError(t, err)
	assert.Len(t, updated.Items, 2)

	events, err := svc.Events(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.EventItemAdded, events[0].Name)
	assert.Equal(t, int64(9), events[0].Payload["group_id"])
	assert.Nil(t, events[0].Payload["table_id"])
}

func TestUpdateItemQuantity(t *testing.T) {
	svc, _ := setup(t)
	o := createCurry(t, svc, 1)
	itemID := o.Items[0].ID

	updated, err := svc.UpdateItemQuantity(context.Background(), o.ID, itemID, 3, staff)
	require.NoError(t, err)
	requireDec(t, "300.00", updated.Items[0].LineTotal)
	requireDec(t, "345.00", updated.GrandTotal)
	assertTotalsInvariant(t, updated)

	_, err = svc.UpdateItemQuantity(context.Background(), o.ID, 9999, 3, staff)
	var nfErr *order.NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "item", nfErr.Entity)

	_, err = svc.UpdateItemQuantity(context.Background(), o.ID, itemID, 0, staff)
	require.ErrorIs(t, err, order.ErrValidation)

	_, err = svc.UpdateItemQuantity(context.Background(), o.ID, itemID, order.MaxQty+1, staff)
	require.ErrorIs(t, err, order.ErrValidation)

	assert.Equal(t, []string{order.EventItemQtyChanged, order.EventOrderCreated}, eventNames(t, svc, o.ID))
}

func TestOrderTotalBounds(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	const itemPlatter = int64(13)
	store.AddMenuItem(menu.Item{ID: itemPlatter, RestaurantID: restaurantMain, Name: "Platter", Price: dec("1000000.00")})

	// The line fits, but tax and service push the grand total past the column limit.
	_, err := svc.CreateOrder(ctx, order.CreateRequest{
		RestaurantID: restaurantMain,
		Channel:      order.ChannelPickup,
		Items:        []order.ItemRequest{{MenuItemID: itemPlatter, Qty: 9000}},
	}, staff)
	var vErr *order.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "items", vErr.Field)

	o, err := svc.CreateOrder(ctx, order.CreateRequest{
		RestaurantID: restaurantMain,
		Channel:      order.ChannelPickup,
		Items:        []order.ItemRequest{{MenuItemID: itemPlatter, Qty: 8000}},
	}, staff)
	require.NoError(t, err)
	requireDec(t, "9200000000.00", o.GrandTotal)

	_, err = svc.UpdateItemQuantity(ctx, o.ID, o.Items[0].ID, 9000, staff)
	require.ErrorIs(t, err, order.ErrValidation)
	_, err = svc.AddItem(ctx, o.ID, order.ItemRequest{MenuItemID: itemCurry, Qty: 10000}, staff)
	require.NoError(t, err)

	got, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 8000, got.Items[0].Qty, "rejected updates leave the order unchanged")
	assertTotalsInvariant(t, got)
}

func TestRemoveItem(t *testing.T) {
	svc, _ := setup(t)
	o := createCurry(t, svc, 1)
	o, err := svc.AddItem(context.Background(), o.ID, order.ItemRequest{MenuItemID: itemNaan, Qty: 2}, staff)
	require.NoError(t, err)

	updated, err := svc.RemoveItem(context.Background(), o.ID, o.Items[0].ID, staff)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "Naan", updated.Items[0].NameSnapshot)
	requireDec(t, "25.00", updated.Subtotal)
	assertTotalsInvariant(t, updated)

	events, err := svc.Events(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.EventItemRemoved, events[0].Name)
	assert.Equal(t, itemCurry, events[0].Payload["menu_item_id"])

	// Removing the last item leaves an empty order with zero totals.
	updated, err = svc.RemoveItem(context.Background(), o.ID, updated.Items[0].ID, staff)
	require.NoError(t, err)
	assert.Empty(t, updated.Items)
	requireDec(t, "0", updated.GrandTotal)
}

func TestItemsImmutableOutsideWindow(t *testing.T) {
	for _, status := range []order.Status{order.StatusPreparing, order.StatusReady, order.StatusServed, order.StatusCompleted, order.StatusCanceled} {
		t.Run(string(status), func(t *testing.T) {
			svc, _ := setup(t)
			ctx := context.Background()
			o := createCurry(t, svc, 2)
			itemID := o.Items[0].ID
			if status == order.StatusCanceled {
				_, err := svc.CancelOrder(ctx, o.ID, "test", staff)
				require.NoError(t, err)
			} else {
				advance(t, svc, o.ID, status)
			}

			_, err := svc.AddItems(ctx, o.ID, []order.ItemRequest{{MenuItemID: itemNaan, Qty: 1}}, staff)
			require.ErrorIs(t, err, order.ErrIllegalState)
			_, err = svc.UpdateItemQuantity(ctx, o.ID, itemID, 5, staff)
			require.ErrorIs(t, err, order.ErrIllegalState)
			_, err = svc.RemoveItem(ctx, o.ID, itemID, staff)
			var stErr *order.IllegalStateError
			require.ErrorAs(t, err, &stErr)
			assert.Equal(t, status, stErr.Status)

			got, err := svc.GetOrder(ctx, o.ID)
			require.NoError(t, err)
			require.Len(t, got.Items, 1)
			assert.Equal(t, 2, got.Items[0].Qty)
			requireDec(t, "230.00", got.GrandTotal)
		})
	}
}

func TestItemsMutableWhileAccepted(t *testing.T) {
	svc, _ := setup(t)
	o := createCurry(t, svc, 1)
	advance(t, svc, o.ID, order.StatusAccepted)

	_, err := svc.AddItem(context.Background(), o.ID, order.ItemRequest{MenuItemID: itemNaan, Qty: 1}, staff)
	require.NoError(t, err)
}

func TestUpdateStatus(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	pending := createCurry(t, svc, 1)
	_, err := svc.UpdateStatus(ctx, pending.ID, order.StatusServed, staff)
	var trErr *order.IllegalTransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, order.StatusPending, trErr.From)
	assert.Equal(t, order.StatusServed, trErr.To)

	ready := createCurry(t, svc, 1)
	advance(t, svc, ready.ID, order.StatusReady)
	served, err := svc.UpdateStatus(ctx, ready.ID, order.StatusServed, staff)
	require.NoError(t, err)
	assert.Equal(t, order.StatusServed, served.Status)

	completed, err := svc.UpdateStatus(ctx, ready.ID, order.StatusCompleted, staff)
	require.NoError(t, err)
	require.NotNil(t, completed.CompletedAt)

	events, err := svc.Events(ctx, ready.ID)
	require.NoError(t, err)
	assert.Equal(t, order.EventStatusChanged, events[0].Name)
	assert.Equal(t, "completed", events[0].Payload["status"])
	assert.NotContains(t, events[0].Payload, "auto")

	_, err = svc.UpdateStatus(ctx, ready.ID, "baking", staff)
	require.ErrorIs(t, err, order.ErrValidation)

	_, err = svc.UpdateStatus(ctx, 9999, order.StatusAccepted, staff)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestCancelOrder(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	o := createCurry(t, svc, 1)

	canceled, err := svc.CancelOrder(ctx, o.ID, "kitchen closed", staff)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCanceled, canceled.Status)
	assert.Equal(t, "kitchen closed", *canceled.CancelReason)
	require.NotNil(t, canceled.CanceledAt)

	again, err := svc.CancelOrder(ctx, o.ID, "another reason", staff)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCanceled, again.Status)
	assert.Equal(t, "kitchen closed", *again.CancelReason)
	assert.Equal(t, *canceled.CanceledAt, *again.CanceledAt)

	assert.Equal(t, []string{order.EventOrderCanceled, order.EventOrderCreated}, eventNames(t, svc, o.ID))

	_, err = svc.CancelOrder(ctx, o.ID, "  ", staff)
	require.ErrorIs(t, err, order.ErrValidation)
}

func TestCancelCompletedOrder(t *testing.T) {
	svc, _ := setup(t)
	o := createMeal(t, svc)
	_, err := svc.AddPayment(context.Background(), o.ID, order.PaymentRequest{Method: order.MethodCash, Amount: dec("25.00")}, staff)
	require.NoError(t, err)

	_, err = svc.CancelOrder(context.Background(), o.ID, "mistake", staff)
	require.ErrorIs(t, err, order.ErrIllegalTransition)
}

func TestAddPayment_AutoCompletes(t *testing.T) {
	svc, _ := setup(t)
	o := createMeal(t, svc)

	res, err := svc.AddPayment(context.Background(), o.ID, order.PaymentRequest{
		Method:    order.MethodCard,
		Amount:    dec("25.00"),
		Reference: ptr("txn-1"),
	}, staff)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentSuccess, res.Payment.Status)
	assert.Equal(t, order.StatusCompleted, res.Order.Status)
	require.NotNil(t, res.Order.CompletedAt)

	events, err := svc.Events(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, order.EventStatusChanged, events[0].Name)
	assert.Equal(t, map[string]any{"status": "completed", "auto": true}, events[0].Payload)
	assert.Equal(t, order.EventPaymentAdded, events[1].Name)
	assert.Equal(t, map[string]any{"amount": "25.00", "method": "card"}, events[1].Payload)
}

func TestAddPayment_SplitPayments(t *testing.T) {
	svc, _ := setup(t)
	o := createMeal(t, svc)

	res, err := svc.AddPayment(context.Background(), o.ID, order.PaymentRequest{Method: order.MethodCash, Amount: dec("10.00")}, staff)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, res.Order.Status)
	assert.Nil(t, res.Order.CompletedAt)

	res, err = svc.AddPayment(context.Background(), o.ID, order.PaymentRequest{Method: order.MethodUPI, Amount: dec("15.00")}, staff)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, res.Order.Status)
	assert.NotNil(t, res.Order.CompletedAt)
}

func TestAddPayment_IgnoresUnsuccessful(t *testing.T) {
	svc, _ := setup(t)
	o := createMeal(t, svc)

	for _, st := range []order.PaymentStatus{order.PaymentPending, order.PaymentFailed, order.PaymentRefunded} {
		res, err := svc.AddPayment(context.Background(), o.ID, order.PaymentRequest{Method: order.MethodCard, Amount: dec("25.00"), Status: st}, staff)
		require.NoError(t, err)
		assert.Equal(t, order.StatusPending, res.Order.Status, st)
	}

	bill, err := svc.GetBill(context.Background(), o.ID)
	require.NoError(t, err)
	requireDec(t, "0", bill.TotalPaid)
	requireDec(t, "25.00", bill.BalanceDue)
	assert.Len(t, bill.Payments, 3)
}

func TestAddPayment_Validation(t *testing.T) {
	svc, _ := setup(t)
	o := createMeal(t, svc)

	_, err := svc.AddPayment(context.Background(), o.ID, order.PaymentRequest{Method: order.MethodCash, Amount: dec("-1")}, staff)
	require.ErrorIs(t, err, order.ErrValidation)
	_, err = svc.AddPayment(context.Background(), o.ID, order.PaymentRequest{Method: order.MethodCash, Amount: dec("5"), Status: "bounced"}, staff)
	require.ErrorIs(t, err, order.ErrValidation)
	_, err = svc.AddPayment(context.Background(), o.ID, order.PaymentRequest{Method: order.MethodCash, Amount: dec("10000000000.00")}, staff)
	require.ErrorIs(t, err, order.ErrValidation)
	_, err = svc.AddPayment(context.Background(), 9999, order.PaymentRequest{Method: order.MethodCash, Amount: dec("5")}, staff)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestGetBill_ClampsOverpayment(t *testing.T) {
	svc, _ := setup(t)
	o := createCurry(t, svc, 2)

	_, err := svc.AddPayment(context.Background(), o.ID, order.PaymentRequest{Method: order.MethodCash, Amount: dec("300.004")}, staff)
	require.NoError(t, err)

	bill, err := svc.GetBill(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, bill.Status)
	requireDec(t, "230.00", bill.GrandTotal)
	requireDec(t, "300.00", bill.TotalPaid)
	requireDec(t, "0", bill.BalanceDue)
}

func TestUpdateOrder(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	o, err := svc.CreateOrder(ctx, order.CreateRequest{
		RestaurantID: restaurantMain,
		Channel:      order.ChannelTable,
		TableID:      ptr(tableMain),
		CustomerName: ptr("Asha"),
		Items:        []order.ItemRequest{{MenuItemID: itemCurry, Qty: 1}},
	}, staff)
	require.NoError(t, err)

	updated, err := svc.UpdateOrder(ctx, o.ID, order.Update{
		Notes:   order.NewOpt(ptr("")),
		TableID: order.NewOpt(int64(0)),
		GroupID: order.NewOpt(int64(3)),
	}, staff)
	require.NoError(t, err)
	assert.Nil(t, updated.TableID)
	assert.Nil(t, updated.TableName)
	assert.Equal(t, int64(3), *updated.GroupID)
	assert.Equal(t, "", *updated.Notes)
	assert.Equal(t, "Asha", *updated.CustomerName, "absent fields are untouched")
	requireDec(t, o.GrandTotal.String(), updated.GrandTotal)

	events, err := svc.Events(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.EventOrderUpdated, events[0].Name)
	assert.Equal(t, map[string]any{"notes": "", "table_id": int64(0), "group_id": int64(3)}, events[0].Payload)

	updated, err = svc.UpdateOrder(ctx, o.ID, order.Update{
		CustomerName: order.NewOpt[*string](nil),
	}, staff)
	require.NoError(t, err)
	assert.Nil(t, updated.CustomerName)
	assert.Equal(t, "", *updated.Notes)

	got, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CustomerName)

	events, err = svc.Events(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"customer_name": nil}, events[0].Payload)

	updated, err = svc.UpdateOrder(ctx, o.ID, order.Update{TableID: order.NewOpt(tableMain)}, staff)
	require.NoError(t, err)
	assert.Equal(t, "T5", *updated.TableName)

	_, err = svc.UpdateOrder(ctx, o.ID, order.Update{TableID: order.NewOpt(tableOther)}, staff)
	require.ErrorIs(t, err, order.ErrCrossTenantReference)
}

func TestDeleteOrder(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	o := createCurry(t, svc, 1)

	require.NoError(t, svc.DeleteOrder(ctx, o.ID))

	_, err := svc.GetOrder(ctx, o.ID)
	require.ErrorIs(t, err, order.ErrNotFound)
	_, err = svc.Events(ctx, o.ID)
	require.ErrorIs(t, err, order.ErrNotFound)
	require.ErrorIs(t, svc.DeleteOrder(ctx, o.ID), order.ErrNotFound)
}

func TestSnapshotsSurviveMenuChanges(t *testing.T) {
	svc, store := setup(t)
	o := createCurry(t, svc, 1)

	store.AddMenuItem(menu.Item{ID: itemCurry, RestaurantID: restaurantMain, Name: "Renamed Curry", Price: dec("150.00")})
	got, err := svc.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Curry", got.Items[0].NameSnapshot)
	requireDec(t, "100.00", got.Items[0].UnitPrice)

	store.DeleteMenuItem(itemCurry)
	got, err = svc.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Items[0].MenuItemID)
	assert.Equal(t, "Curry", got.Items[0].NameSnapshot)
}

func TestListOrders(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	create := func(channel order.Channel, name, phone string) *order.Order {
		o, err := svc.CreateOrder(ctx, order.CreateRequest{
			RestaurantID:  restaurantMain,
			Channel:       channel,
			CustomerName:  ptr(name),
			CustomerPhone: ptr(phone),
			Items:         []order.ItemRequest{{MenuItemID: itemNaan, Qty: 1}},
		}, staff)
		require.NoError(t, err)
		return o
	}
	a := create(order.ChannelPickup, "Asha Rao", "+91 98450 11111")
	b := create(order.ChannelDelivery, "Bilal", "555-0100")
	c := create(order.ChannelPickup, "Chitra", "555-0199")
	_, err := svc.UpdateStatus(ctx, b.ID, order.StatusAccepted, staff)
	require.NoError(t, err)

	_, err = svc.CreateOrder(ctx, order.CreateRequest{
		RestaurantID: restaurantOther,
		Channel:      order.ChannelPickup,
		Items:        []order.ItemRequest{{MenuItemID: itemForeign, Qty: 1}},
	}, staff)
	require.NoError(t, err)

	ids := func(p *order.Page) []int64 {
		out := make([]int64, len(p.Orders))
		for i, o := range p.Orders {
			out[i] = o.ID
		}
		return out
	}
	pickup := order.ChannelPickup

	tests := []struct {
		name  string
		f     order.ListFilter
		want  []int64
		total int
	}{
		{"All", order.ListFilter{}, []int64{c.ID, b.ID, a.ID}, 3},
		{"Status", order.ListFilter{Statuses: []order.Status{order.StatusAccepted}}, []int64{b.ID}, 1},
		{"Channel", order.ListFilter{Channel: &pickup}, []int64{c.ID, a.ID}, 2},
		{"SearchNameCaseInsensitive", order.ListFilter{Search: "asha"}, []int64{a.ID}, 1},
		{"SearchPhone", order.ListFilter{Search: "555-01"}, []int64{c.ID, b.ID}, 2},
		{"Conjunctive", order.ListFilter{Channel: &pickup, Search: "555"}, []int64{c.ID}, 1},
		{"Page", order.ListFilter{Skip: 1, Limit: 1}, []int64{b.ID}, 3},
		{"PastEnd", order.ListFilter{Skip: 10}, []int64{}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.f
			f.RestaurantID = restaurantMain
			page, err := svc.ListOrders(ctx, f)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page))
			assert.Equal(t, tt.total, page.Total)
		})
	}

	_, err = svc.ListOrders(ctx, order.ListFilter{RestaurantID: restaurantMain, Skip: -1})
	require.ErrorIs(t, err, order.ErrValidation)
	bad := order.Channel("drone")
	_, err = svc.ListOrders(ctx, order.ListFilter{RestaurantID: restaurantMain, Channel: &bad})
	require.ErrorIs(t, err, order.ErrValidation)
}

func TestListTableOrders(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	o, err := svc.CreateOrder(ctx, order.CreateRequest{
		RestaurantID: restaurantMain,
		Channel:      order.ChannelTable,
		TableID:      ptr(tableMain),
		Items:        []order.ItemRequest{{MenuItemID: itemCurry, Qty: 1}},
	}, staff)
	require.NoError(t, err)
	createCurry(t, svc, 1)

	page, err := svc.ListTableOrders(ctx, tableMain, order.ListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, o.ID, page.Orders[0].ID)
	assert.Equal(t, "T5", *page.Orders[0].TableName)

	_, err = svc.ListTableOrders(ctx, 404, order.ListFilter{})
	require.ErrorIs(t, err, order.ErrNotFound)
}

// failingRepo injects an error into event appends to exercise rollback.
type failingRepo struct {
	order.Repository
	failEvent string
}

func (r *failingRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	return r.Repository.InTx(ctx, func(ctx context.Context, tx order.Tx) error {
		return fn(ctx, &failingTx{Tx: tx, failEvent: r.failEvent})
	})
}

type failingTx struct {
	order.Tx
	failEvent string
}

func (t *failingTx) AppendEvent(ctx context.Context, e *order.Event) error {
	if e.Name == t.failEvent {
		return errors.New("disk full")
	}
	return t.Tx.AppendEvent(ctx, e)
}

func TestMutationsAreAtomic(t *testing.T) {
	store := newStore()
	ok := newService(t, store, store)
	o := createMeal(t, ok)

	repo := &failingRepo{Repository: store}
	svc := newService(t, repo, store)

	repo.failEvent = order.EventItemAdded
	_, err := svc.AddItem(context.Background(), o.ID, order.ItemRequest{MenuItemID: itemMeal, Qty: 2}, staff)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append item_added event")

	repo.failEvent = order.EventStatusChanged
	_, err = svc.AddPayment(context.Background(), o.ID, order.PaymentRequest{Method: order.MethodCash, Amount: dec("25.00")}, staff)
	require.Error(t, err)

	got, err := svc.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
	assert.Empty(t, got.Payments)
	assert.Equal(t, order.StatusPending, got.Status)
	requireDec(t, "25.00", got.GrandTotal)
	assert.Equal(t, []string{order.EventOrderCreated}, eventNames(t, svc, o.ID))
}

func TestConcurrentPaymentsCompleteOnce(t *testing.T) {
	svc, _ := setup(t)
	o := createMeal(t, svc)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddPayment(context.Background(), o.ID, order.PaymentRequest{
				Method:    order.MethodCash,
				Amount:    dec("5.00"),
				Reference: ptr(fmt.Sprintf("split-%d", i)),
			}, staff)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	bill, err := svc.GetBill(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, bill.Status)
	assert.Len(t, bill.Payments, workers)
	requireDec(t, "50.00", bill.TotalPaid)

	auto := 0
	events, err := svc.Events(context.Background(), o.ID)
	require.NoError(t, err)
	for _, e := range events {
		if e.Name == order.EventStatusChanged {
			auto++
		}
	}
	assert.Equal(t, 1, auto)
}

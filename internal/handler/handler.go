// Package handler implements the HTTP API of the order service.
package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/xenking/restaurant-orders/internal/domain/auth"
	"github.com/xenking/restaurant-orders/internal/domain/order"
)

// OrderService is the order use-case surface served over HTTP.
type OrderService interface {
	CreateOrder(ctx context.Context, req order.CreateRequest, actor *int64) (*order.Order, error)
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
	ListOrders(ctx context.Context, f order.ListFilter) (*order.Page, error)
	ListTableOrders(ctx context.Context, tableID int64, f order.ListFilter) (*order.Page, error)
	UpdateOrder(ctx context.Context, id int64, u order.Update, actor *int64) (*order.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, target order.Status, actor *int64) (*order.Order, error)
	CancelOrder(ctx context.Context, id int64, reason string, actor *int64) (*order.Order, error)
	AddItems(ctx context.Context, id int64, reqs []order.ItemRequest, actor *int64) (*order.Order, error)
	AddItem(ctx context.Context, id int64, req order.ItemRequest, actor *int64) (*order.Order, error)
	AddChannelItems(ctx context.Context, id int64, req order.ChannelItemsRequest, actor *int64) (*order.Order, error)
	UpdateItemQuantity(ctx context.Context, id, itemID int64, qty int, actor *int64) (*order.Order, error)
	RemoveItem(ctx context.Context, id, itemID int64, actor *int64) (*order.Order, error)
	AddPayment(ctx context.Context, id int64, req order.PaymentRequest, actor *int64) (*order.PaymentResult, error)
	GetBill(ctx context.Context, id int64) (*order.Bill, error)
	Events(ctx context.Context, id int64) ([]order.Event, error)
}

var _ OrderService = (*order.Service)(nil)

// Handler serves the order routes.
type Handler struct {
	orders   OrderService
	validate *validator.Validate
}

// NewHandler creates a Handler backed by orders.
func NewHandler(orders OrderService) *Handler {
	return &Handler{
		orders:   orders,
		validate: newValidator(),
	}
}

// RegisterRoutes mounts the order routes on r. Reads require the
// orders:read scope and mutations orders:write.
func (h *Handler) RegisterRoutes(r chi.Router, sec *SecurityHandler) {
	read := sec.Require(auth.ScopeOrdersRead)
	write := sec.Require(auth.ScopeOrdersWrite)

	r.Route("/orders", func(r chi.Router) {
		r.With(write).Post("/", h.createOrder)
		r.With(read).Get("/", h.listOrders)
		r.With(read).Get("/table/{tableID}", h.listTableOrders)

		r.Route("/{orderID}", func(r chi.Router) {
			r.With(read).Get("/", h.getOrder)
			r.With(write).Patch("/", h.updateOrder)
			r.With(write).Delete("/", h.deleteOrder)
			r.With(write).Patch("/status", h.updateStatus)
			r.With(write).Post("/cancel", h.cancelOrder)
			r.With(write).Post("/items", h.addItems)
			r.With(write).Post("/item", h.addItem)
			r.With(write).Post("/channel-items", h.addChannelItems)
			r.With(write).Patch("/items/{itemID}", h.updateItemQuantity)
			r.With(write).Delete("/items/{itemID}", h.removeItem)
			r.With(write).Post("/payments", h.addPayment)
			r.With(read).Get("/bill", h.getBill)
			r.With(read).Get("/events", h.events)
		})
	})
}

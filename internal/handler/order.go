package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/restaurant-orders/internal/domain/auth"
	"github.com/xenking/restaurant-orders/internal/domain/order"
)

func writeOrder(w http.ResponseWriter, status int, o *order.Order) {
	writeJSON(w, status, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	payments := make([]order.PaymentRequest, len(req.Payments))
	for i, p := range req.Payments {
		payments[i] = p.toDomain()
	}
	o, err := h.orders.CreateOrder(r.Context(), order.CreateRequest{
		RestaurantID:  req.RestaurantID,
		Channel:       order.Channel(req.Channel),
		TableID:       req.TableID,
		GroupID:       req.GroupID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
		Items:         itemsToDomain(req.Items),
		Payments:      payments,
	}, auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusCreated, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	restaurantID, ok, err := queryInt(r, "restaurant_id")
	switch {
	case err != nil:
		writeError(w, r, err)
		return
	case !ok || restaurantID <= 0:
		writeError(w, r, &order.ValidationError{Field: "restaurant_id", Reason: "is required"})
		return
	}
	f.RestaurantID = int64(restaurantID)

	page, err := h.orders.ListOrders(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodePage(e, page) })
}

func (h *Handler) listTableOrders(w http.ResponseWriter, r *http.Request) {
	tableID, err := pathID(r, "tableID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := listFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := h.orders.ListTableOrders(r.Context(), tableID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodePage(e, page) })
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateOrderRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.UpdateOrder(r.Context(), id, order.Update{
		Notes:         req.Notes.opt(),
		CustomerName:  req.CustomerName.opt(),
		CustomerPhone: req.CustomerPhone.opt(),
		TableID:       req.TableID.opt(),
		GroupID:       req.GroupID.opt(),
	}, auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.orders.DeleteOrder(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateStatusRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, order.Status(req.Status), auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req cancelRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.CancelOrder(r.Context(), id, req.Reason, auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

func (h *Handler) addItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req addItemsRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.AddItems(r.Context(), id, itemsToDomain(req.Items), auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req itemRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.AddItem(r.Context(), id, order.ItemRequest{
		MenuItemID: req.MenuItemID,
		Qty:        req.Qty,
		Notes:      req.Notes,
	}, auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

func (h *Handler) addChannelItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req channelItemsRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.AddChannelItems(r.Context(), id, order.ChannelItemsRequest{
		TableID: req.TableID,
		GroupID: req.GroupID,
		Items:   itemsToDomain(req.Items),
	}, auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

func (h *Handler) updateItemQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateItemRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.UpdateItemQuantity(r.Context(), id, itemID, req.Qty, auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.RemoveItem(r.Context(), id, itemID, auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req paymentRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.orders.AddPayment(r.Context(), id, req.toDomain(), auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		field(e, "payment", func(e *jx.Encoder) { encodePayment(e, &res.Payment) })
		field(e, "order", func(e *jx.Encoder) { encodeOrder(e, res.Order) })
		e.ObjEnd()
	})
}

func (h *Handler) getBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.orders.GetBill(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeBill(e, b) })
}

func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	events, err := h.orders.Events(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeEvents(e, events) })
}

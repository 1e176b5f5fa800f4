package handler

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/xenking/restaurant-orders/internal/domain/order"
)

const maxBodySize = 1 << 20

type itemRequest struct {
	MenuItemID int64   `json:"menu_item_id" validate:"required,gt=0"`
	Qty        int     `json:"qty" validate:"required,gt=0,lte=10000"`
	Notes      *string `json:"notes" validate:"omitempty,max=500"`
}

type paymentRequest struct {
	Method    string          `json:"method" validate:"required,oneof=cash card upi other"`
	Amount    decimal.Decimal `json:"amount"`
	Reference *string         `json:"reference" validate:"omitempty,max=200"`
	Status    string          `json:"status" validate:"omitempty,oneof=success pending failed refunded"`
}

type createOrderRequest struct {
	RestaurantID  int64            `json:"restaurant_id" validate:"required,gt=0"`
	Channel       string           `json:"channel" validate:"required,oneof=table group pickup quick_billing delivery online"`
	TableID       *int64           `json:"table_id" validate:"omitempty,gte=0"`
	GroupID       *int64           `json:"group_id" validate:"omitempty,gte=0"`
	CustomerName  *string          `json:"customer_name" validate:"omitempty,max=200"`
	CustomerPhone *string          `json:"customer_phone" validate:"omitempty,max=32"`
	Notes         *string          `json:"notes" validate:"omitempty,max=1000"`
	Items         []itemRequest    `json:"items" validate:"required,min=1,dive"`
	Payments      []paymentRequest `json:"payments" validate:"omitempty,dive"`
}

type addItemsRequest struct {
	Items []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type channelItemsRequest struct {
	TableID *int64        `json:"table_id" validate:"omitempty,gt=0"`
	GroupID *int64        `json:"group_id" validate:"omitempty,gt=0"`
	Items   []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateItemRequest struct {
	Qty int `json:"qty" validate:"required,gt=0,lte=10000"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending accepted preparing ready served completed canceled"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// updateOrderRequest is a partial update. Absent fields are left unchanged;
// an explicit null clears a text field and detaches a table or group.
type updateOrderRequest struct {
	Notes         optional[*string] `json:"notes" validate:"omitempty,max=1000"`
	CustomerName  optional[*string] `json:"customer_name" validate:"omitempty,max=200"`
	CustomerPhone optional[*string] `json:"customer_phone" validate:"omitempty,max=32"`
	TableID       optional[int64]   `json:"table_id" validate:"omitempty,gte=0"`
	GroupID       optional[int64]   `json:"group_id" validate:"omitempty,gte=0"`
}

// optional records whether a JSON field was present.
type optional[T any] order.Opt[T]

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

func (o optional[T]) opt() order.Opt[T] {
	return order.Opt[T](o)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		if o := f.Interface().(optional[*string]); o.Set && o.Value != nil {
			return *o.Value
		}
		return nil
	}, optional[*string]{})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		if o := f.Interface().(optional[int64]); o.Set {
			return o.Value
		}
		return nil
	}, optional[int64]{})
	return v
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	if dec.More() {
		return errors.Wrap(errBadRequest, "unexpected data after JSON body")
	}
	return h.validateStruct(dst)
}

func (h *Handler) validateStruct(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.Wrap(err, "validate")
	}
	fe := verrs[0]
	_, path, _ := strings.Cut(fe.Namespace(), ".")
	return &order.ValidationError{Field: path, Reason: reason(fe)}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must contain at least " + fe.Param() + " element(s)"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &order.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, &order.ValidationError{Field: name, Reason: "must be an integer"}
	}
	return v, true, nil
}

// listFilter parses the listing query. Statuses may repeat or be comma
// separated.
func listFilter(r *http.Request) (order.ListFilter, error) {
	q := r.URL.Query()
	var f order.ListFilter

	for _, raw := range q["status"] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v == "" {
				continue
			}
			st, err := order.ParseStatus(v)
			if err != nil {
				return f, err
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	if v := q.Get("channel"); v != "" {
		c, err := order.ParseChannel(v)
		if err != nil {
			return f, err
		}
		f.Channel = &c
	}
	if tableID, ok, err := queryInt(r, "table_id"); err != nil {
		return f, err
	} else if ok {
		id := int64(tableID)
		f.TableID = &id
	}
	f.Search = q.Get("search")

	var err error
	if f.Skip, _, err = queryInt(r, "skip"); err != nil {
		return f, err
	}
	if f.Limit, _, err = queryInt(r, "limit"); err != nil {
		return f, err
	}
	return f, nil
}

func (p paymentRequest) toDomain() order.PaymentRequest {
	return order.PaymentRequest{
		Method:    order.PaymentMethod(p.Method),
		Amount:    p.Amount,
		Reference: p.Reference,
		Status:    order.PaymentStatus(p.Status),
	}
}

func itemsToDomain(items []itemRequest) []order.ItemRequest {
	out := make([]order.ItemRequest, len(items))
	for i, it := range items {
		out[i] = order.ItemRequest{MenuItemID: it.MenuItemID, Qty: it.Qty, Notes: it.Notes}
	}
	return out
}

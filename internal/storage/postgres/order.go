package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/restaurant-orders/internal/domain/order"
)

const orderColumns = `o.id, o.restaurant_id, o.channel, o.table_id, t.name, o.group_id,
	o.customer_name, o.customer_phone, o.status,
	o.subtotal, o.tax_total, o.service_charge, o.discount_total, o.grand_total,
	o.notes, o.created_by_staff_id, o.cancel_reason,
	o.created_at, o.updated_at, o.completed_at, o.canceled_at`

const orderFrom = ` FROM orders o LEFT JOIN tables t ON t.id = o.table_id`

const (
	getOrderSQL  = `SELECT ` + orderColumns + orderFrom + ` WHERE o.id = $1`
	lockOrderSQL = getOrderSQL + ` FOR UPDATE OF o`

	lockTableSQL = `SELECT id FROM tables WHERE id = $1 FOR UPDATE`

	activeForTableSQL = `SELECT ` + orderColumns + orderFrom + `
		WHERE o.table_id = $1 AND o.status NOT IN ('completed', 'canceled')
		ORDER BY o.created_at DESC, o.id DESC LIMIT 1`

	insertOrderSQL = `INSERT INTO orders (
		restaurant_id, channel, table_id, group_id, customer_name, customer_phone, status,
		subtotal, tax_total, service_charge, discount_total, grand_total,
		notes, created_by_staff_id, cancel_reason, created_at, updated_at, completed_at, canceled_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	RETURNING id`

	updateOrderSQL = `UPDATE orders SET
		channel = $2, table_id = $3, group_id = $4, customer_name = $5, customer_phone = $6,
		status = $7, subtotal = $8, tax_total = $9, service_charge = $10, discount_total = $11,
		grand_total = $12, notes = $13, cancel_reason = $14,
		updated_at = $15, completed_at = $16, canceled_at = $17
	WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	insertItemSQL = `INSERT INTO order_items (
		order_id, menu_item_id, name_snapshot, category_name_snapshot, unit_price, qty, line_total, notes
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`

	updateItemSQL = `UPDATE order_items SET qty = $3, line_total = $4 WHERE id = $1 AND order_id = $2`

	deleteItemSQL = `DELETE FROM order_items WHERE id = $1 AND order_id = $2`

	itemsByOrdersSQL = `SELECT id, order_id, menu_item_id, name_snapshot, category_name_snapshot,
		unit_price, qty, line_total, notes
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id`

	insertPaymentSQL = `INSERT INTO order_payments (order_id, method, amount, reference, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	paymentsByOrdersSQL = `SELECT id, order_id, method, amount, reference, status, created_at
		FROM order_payments WHERE order_id = ANY($1) ORDER BY order_id, id`

	insertEventSQL = `INSERT INTO order_events (order_id, name, payload, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	eventsByOrderSQL = `SELECT id, order_id, name, payload, actor_id, created_at
		FROM order_events WHERE order_id = $1 ORDER BY created_at DESC, id DESC`
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

var (
	_ order.Repository = (*OrderRepository)(nil)
	_ order.Tx         = (*orderTx)(nil)
)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// InTx runs fn in a transaction that commits when fn returns nil.
func (r *OrderRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &orderTx{q: tx})
	})
}

// Get loads an order with its items and payments.
func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	return getOrder(ctx, r.pool, getOrderSQL, id)
}

// List returns one page of orders matching f.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) (*order.Page, error) {
	where, args := listWhere(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders o WHERE `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting orders: %w", err)
	}

	query := `SELECT ` + orderColumns + orderFrom + ` WHERE ` + where +
		` ORDER BY o.created_at DESC, o.id DESC`
	args = append(args, f.Skip)
	query += fmt.Sprintf(` OFFSET $%d`, len(args))
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	ptrs := make([]*order.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := loadChildren(ctx, r.pool, ptrs); err != nil {
		return nil, err
	}
	return &order.Page{Orders: orders, Total: total}, nil
}

// listWhere builds the conjunctive filter of f.
func listWhere(f order.ListFilter) (string, []any) {
	conds := []string{"o.restaurant_id = $1"}
	args := []any{f.RestaurantID}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("o.status = ANY($%d)", statuses)
	}
	if f.Channel != nil {
		add("o.channel = $%d", string(*f.Channel))
	}
	if f.TableID != nil {
		add("o.table_id = $%d", *f.TableID)
	}
	if f.Search != "" {
		add(`(o.customer_name ILIKE $%[1]d ESCAPE '\' OR o.customer_phone ILIKE $%[1]d ESCAPE '\')`,
			"%"+escapeLike(f.Search)+"%")
	}
	return strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes LIKE metacharacters so s matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Events returns the audit log of an order, most recent first.
func (r *OrderRepository) Events(ctx context.Context, orderID int64) ([]order.Event, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, orderID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking order %d: %w", orderID, err)
	}
	if !exists {
		return nil, &order.NotFoundError{Entity: "order", ID: orderID}
	}

	rows, err := r.pool.Query(ctx, eventsByOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing events of order %d: %w", orderID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Event, error) {
		var e order.Event
		err := row.Scan(&e.ID, &e.OrderID, &e.Name, &e.Payload, &e.ActorID, &e.CreatedAt)
		return e, err
	})
}

// orderTx implements order.Tx on a pgx transaction.
type orderTx struct {
	q querier
}

func (t *orderTx) Lock(ctx context.Context, id int64) (*order.Order, error) {
	return getOrder(ctx, t.q, lockOrderSQL, id)
}

func (t *orderTx) ActiveForTable(ctx context.Context, tableID int64) (*order.Order, bool, error) {
	var id int64
	if err := t.q.QueryRow(ctx, lockTableSQL, tableID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, &order.NotFoundError{Entity: "table", ID: tableID}
		}
		return nil, false, fmt.Errorf("locking table %d: %w", tableID, err)
	}

	o, err := getOrder(ctx, t.q, activeForTableSQL, tableID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return o, true, nil
}

func (t *orderTx) Create(ctx context.Context, o *order.Order) error {
	err := t.q.QueryRow(ctx, insertOrderSQL,
		o.RestaurantID, string(o.Channel), o.TableID, o.GroupID, o.CustomerName, o.CustomerPhone,
		string(o.Status), o.Subtotal, o.TaxTotal, o.ServiceCharge, o.DiscountTotal, o.GrandTotal,
		o.Notes, o.CreatedByStaffID, o.CancelReason, o.CreatedAt, o.UpdatedAt, o.CompletedAt, o.CanceledAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("inserting order: %w", mapError(err))
	}
	if err := t.AddItems(ctx, o.ID, o.Items); err != nil {
		return err
	}
	for i := range o.Payments {
		o.Payments[i].OrderID = o.ID
		if err := t.AddPayment(ctx, &o.Payments[i]); err != nil {
			return err
		}
	}
	return nil
}

func (t *orderTx) Update(ctx context.Context, o *order.Order) error {
	tag, err := t.q.Exec(ctx, updateOrderSQL,
		o.ID, string(o.Channel), o.TableID, o.GroupID, o.CustomerName, o.CustomerPhone,
		string(o.Status), o.Subtotal, o.TaxTotal, o.ServiceCharge, o.DiscountTotal, o.GrandTotal,
		o.Notes, o.CancelReason, o.UpdatedAt, o.CompletedAt, o.CanceledAt,
	)
	if err != nil {
		return fmt.Errorf("updating order %d: %w", o.ID, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return &order.NotFoundError{Entity: "order", ID: o.ID}
	}
	return nil
}

func (t *orderTx) Delete(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &order.NotFoundError{Entity: "order", ID: id}
	}
	return nil
}

func (t *orderTx) AddItems(ctx context.Context, orderID int64, items []order.Item) error {
	if len(items) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for i := range items {
		it := &items[i]
		it.OrderID = orderID
		b.Queue(insertItemSQL,
			orderID, it.MenuItemID, it.NameSnapshot, it.CategoryNameSnapshot,
			it.UnitPrice, it.Qty, it.LineTotal, it.Notes,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&it.ID)
		})
	}
	if err := t.q.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("inserting items of order %d: %w", orderID, mapError(err))
	}
	return nil
}

func (t *orderTx) UpdateItem(ctx context.Context, item *order.Item) error {
	tag, err := t.q.Exec(ctx, updateItemSQL, item.ID, item.OrderID, item.Qty, item.LineTotal)
	if err != nil {
		return fmt.Errorf("updating item %d: %w", item.ID, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return &order.NotFoundError{Entity: "item", ID: item.ID}
	}
	return nil
}

func (t *orderTx) DeleteItem(ctx context.Context, orderID, itemID int64) error {
	tag, err := t.q.Exec(ctx, deleteItemSQL, itemID, orderID)
	if err != nil {
		return fmt.Errorf("deleting item %d: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return &order.NotFoundError{Entity: "item", ID: itemID}
	}
	return nil
}

func (t *orderTx) AddPayment(ctx context.Context, p *order.Payment) error {
	err := t.q.QueryRow(ctx, insertPaymentSQL,
		p.OrderID, string(p.Method), p.Amount, p.Reference, string(p.Status), p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("inserting payment: %w", mapError(err))
	}
	return nil
}

func (t *orderTx) AppendEvent(ctx context.Context, e *order.Event) error {
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	err := t.q.QueryRow(ctx, insertEventSQL, e.OrderID, e.Name, payload, e.ActorID, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("inserting %s event: %w", e.Name, mapError(err))
	}
	return nil
}

func getOrder(ctx context.Context, q querier, sql string, arg int64) (*order.Order, error) {
	rows, err := q.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &order.NotFoundError{Entity: "order", ID: arg}
		}
		return nil, fmt.Errorf("getting order: %w", err)
	}
	if err := loadChildren(ctx, q, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// loadChildren fetches the items and payments of orders in two queries.
func loadChildren(ctx context.Context, q querier, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Items = []order.Item{}
		o.Payments = []order.Payment{}
	}

	rows, err := q.Query(ctx, itemsByOrdersSQL, ids)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}
	for _, it := range items {
		o := byID[it.OrderID]
		o.Items = append(o.Items, it)
	}

	rows, err = q.Query(ctx, paymentsByOrdersSQL, ids)
	if err != nil {
		return fmt.Errorf("loading order payments: %w", err)
	}
	payments, err := pgx.CollectRows(rows, scanPayment)
	if err != nil {
		return fmt.Errorf("loading order payments: %w", err)
	}
	for _, p := range payments {
		o := byID[p.OrderID]
		o.Payments = append(o.Payments, p)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o               order.Order
		channel, status string
	)
	err := row.Scan(
		&o.ID, &o.RestaurantID, &channel, &o.TableID, &o.TableName, &o.GroupID,
		&o.CustomerName, &o.CustomerPhone, &status,
		&o.Subtotal, &o.TaxTotal, &o.ServiceCharge, &o.DiscountTotal, &o.GrandTotal,
		&o.Notes, &o.CreatedByStaffID, &o.CancelReason,
		&o.CreatedAt, &o.UpdatedAt, &o.CompletedAt, &o.CanceledAt,
	)
	o.Channel = order.Channel(channel)
	o.Status = order.Status(status)
	return o, err
}

func scanItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(
		&it.ID, &it.OrderID, &it.MenuItemID, &it.NameSnapshot, &it.CategoryNameSnapshot,
		&it.UnitPrice, &it.Qty, &it.LineTotal, &it.Notes,
	)
	return it, err
}

func scanPayment(row pgx.CollectableRow) (order.Payment, error) {
	var (
		p              order.Payment
		method, status string
	)
	err := row.Scan(&p.ID, &p.OrderID, &method, &p.Amount, &p.Reference, &status, &p.CreatedAt)
	p.Method = order.PaymentMethod(method)
	p.Status = order.PaymentStatus(status)
	return p, err
}

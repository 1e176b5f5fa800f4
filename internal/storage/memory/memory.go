// Package memory implements the repository ports in process memory.
//
// Transactions are serialized by a single lock and rolled back by restoring
// a snapshot, which gives the same all-or-nothing behaviour as the Postgres
// store. It backs tests and local experiments.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/xenking/restaurant-orders/internal/domain/auth"
	"github.com/xenking/restaurant-orders/internal/domain/menu"
	"github.com/xenking/restaurant-orders/internal/domain/order"
	"github.com/xenking/restaurant-orders/internal/domain/restaurant"
)

var (
	_ order.Repository      = (*Store)(nil)
	_ menu.Repository       = (*Store)(nil)
	_ restaurant.Repository = (*Store)(nil)
	_ auth.Repository       = (*Store)(nil)
)

type orderState struct {
	orders     map[int64]*order.Order
	events     []order.Event
	orderSeq   int64
	itemSeq    int64
	paymentSeq int64
	eventSeq   int64
}

func (s *orderState) clone() orderState {
	c := *s
	c.orders = make(map[int64]*order.Order, len(s.orders))
	for id, o := range s.orders {
		c.orders[id] = o.Clone()
	}
	c.events = slices.Clone(s.events)
	return c
}

// Store is an in-memory implementation of every repository used by the
// order service.
type Store struct {
	// txMu serializes transactions and order reads.
	txMu  sync.Mutex
	state orderState

	catalogMu   sync.RWMutex
	restaurants map[int64]restaurant.Restaurant
	tables      map[int64]restaurant.Table
	menuItems   map[int64]menu.Item
	categories  map[int64]string
	apiKeys     map[string]auth.APIKeyInfo
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		state:       orderState{orders: map[int64]*order.Order{}},
		restaurants: map[int64]restaurant.Restaurant{},
		tables:      map[int64]restaurant.Table{},
		menuItems:   map[int64]menu.Item{},
		categories:  map[int64]string{},
		apiKeys:     map[string]auth.APIKeyInfo{},
	}
}

// AddRestaurant registers r.
func (s *Store) AddRestaurant(r restaurant.Restaurant) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.restaurants[r.ID] = r
}

// AddTable registers t.
func (s *Store) AddTable(t restaurant.Table) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.tables[t.ID] = t
}

// AddCategory registers a menu category name.
func (s *Store) AddCategory(id int64, name string) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.categories[id] = name
}

// AddMenuItem registers or replaces a menu item.
func (s *Store) AddMenuItem(mi menu.Item) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.menuItems[mi.ID] = mi
}

// DeleteMenuItem removes a menu item. Order items keep their snapshot and
// lose the reference.
func (s *Store) DeleteMenuItem(id int64) {
	s.catalogMu.Lock()
	delete(s.menuItems, id)
	s.catalogMu.Unlock()

	s.txMu.Lock()
	defer s.txMu.Unlock()
	for _, o := range s.state.orders {
		for i := range o.Items {
			if ref := o.Items[i].MenuItemID; ref != nil && *ref == id {
				o.Items[i].MenuItemID = nil
			}
		}
	}
}

// AddAPIKey registers an API key under its hash.
func (s *Store) AddAPIKey(info auth.APIKeyInfo) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.apiKeys[info.KeyHash] = info
}

// GetRestaurant implements restaurant.Repository.
func (s *Store) GetRestaurant(_ context.Context, id int64) (*restaurant.Restaurant, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	r, ok := s.restaurants[id]
	if !ok {
		return nil, restaurant.ErrNotFound
	}
	return &r, nil
}

// GetTable implements restaurant.Repository.
func (s *Store) GetTable(_ context.Context, id int64) (*restaurant.Table, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	t, ok := s.tables[id]
	if !ok {
		return nil, restaurant.ErrTableNotFound
	}
	return &t, nil
}

// GetByIDs implements menu.Repository.
func (s *Store) GetByIDs(_ context.Context, ids []int64) ([]menu.Item, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	var out []menu.Item
	for _, id := range ids {
		if mi, ok := s.menuItems[id]; ok {
			out = append(out, mi)
		}
	}
	return out, nil
}

// CategoryNames implements menu.Repository.
func (s *Store) CategoryNames(_ context.Context, ids []int64) (map[int64]string, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if name, ok := s.categories[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

// FindByHash implements auth.Repository.
func (s *Store) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	info, ok := s.apiKeys[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	return &info, nil
}

// InTx implements order.Repository.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, &tx{s: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// Get implements order.Repository.
func (s *Store) Get(_ context.Context, id int64) (*order.Order, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	o, ok := s.state.orders[id]
	if !ok {
		return nil, &order.NotFoundError{Entity: "order", ID: id}
	}
	return s.withTable(o.Clone()), nil
}

// List implements order.Repository.
func (s *Store) List(_ context.Context, f order.ListFilter) (*order.Page, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	search := strings.ToLower(f.Search)
	var matched []*order.Order
	for _, o := range s.state.orders {
		if o.RestaurantID != f.RestaurantID {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, o.Status) {
			continue
		}
		if f.Channel != nil && o.Channel != *f.Channel {
			continue
		}
		if f.TableID != nil && (o.TableID == nil || *o.TableID != *f.TableID) {
			continue
		}
		if search != "" && !containsFold(o.CustomerName, search) && !containsFold(o.CustomerPhone, search) {
			continue
		}
		matched = append(matched, o)
	}
	slices.SortFunc(matched, func(a, b *order.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	page := &order.Page{Total: len(matched), Orders: []order.Order{}}
	start := min(f.Skip, len(matched))
	end := len(matched)
	if f.Limit > 0 {
		end = min(start+f.Limit, len(matched))
	}
	for _, o := range matched[start:end] {
		page.Orders = append(page.Orders, *s.withTable(o.Clone()))
	}
	return page, nil
}

// Events implements order.Repository.
func (s *Store) Events(_ context.Context, orderID int64) ([]order.Event, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if _, ok := s.state.orders[orderID]; !ok {
		return nil, &order.NotFoundError{Entity: "order", ID: orderID}
	}
	var out []order.Event
	for _, e := range s.state.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b order.Event) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (s *Store) withTable(o *order.Order) *order.Order {
	o.TableName = nil
	if o.TableID == nil {
		return o
	}
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	if t, ok := s.tables[*o.TableID]; ok {
		name := t.Name
		o.TableName = &name
	}
	return o
}

func containsFold(v *string, lowered string) bool {
	return v != nil && strings.Contains(strings.ToLower(*v), lowered)
}

// tx operates on the store state while Store.txMu is held.
type tx struct {
	s *Store
}

func (t *tx) Lock(_ context.Context, id int64) (*order.Order, error) {
	o, ok := t.s.state.orders[id]
	if !ok {
		return nil, &order.NotFoundError{Entity: "order", ID: id}
	}
	return t.s.withTable(o.Clone()), nil
}

func (t *tx) ActiveForTable(_ context.Context, tableID int64) (*order.Order, bool, error) {
	t.s.catalogMu.RLock()
	_, ok := t.s.tables[tableID]
	t.s.catalogMu.RUnlock()
	if !ok {
		return nil, false, &order.NotFoundError{Entity: "table", ID: tableID}
	}

	var active *order.Order
	for _, o := range t.s.state.orders {
		if o.TableID == nil || *o.TableID != tableID || o.Status.Terminal() {
			continue
		}
		if active == nil || o.CreatedAt.After(active.CreatedAt) {
			active = o
		}
	}
	if active == nil {
		return nil, false, nil
	}
	return t.s.withTable(active.Clone()), true, nil
}

func (t *tx) Create(_ context.Context, o *order.Order) error {
	st := &t.s.state
	st.orderSeq++
	o.ID = st.orderSeq
	for i := range o.Items {
		st.itemSeq++
		o.Items[i].ID = st.itemSeq
		o.Items[i].OrderID = o.ID
	}
	for i := range o.Payments {
		st.paymentSeq++
		o.Payments[i].ID = st.paymentSeq
		o.Payments[i].OrderID = o.ID
	}
	st.orders[o.ID] = o.Clone()
	return nil
}

func (t *tx) Update(_ context.Context, o *order.Order) error {
	stored, ok := t.s.state.orders[o.ID]
	if !ok {
		return &order.NotFoundError{Entity: "order", ID: o.ID}
	}
	header := o.Clone()
	header.Items = stored.Items
	header.Payments = stored.Payments
	t.s.state.orders[o.ID] = header
	return nil
}

func (t *tx) Delete(_ context.Context, id int64) error {
	st := &t.s.state
	delete(st.orders, id)
	st.events = slices.DeleteFunc(st.events, func(e order.Event) bool {
		return e.OrderID == id
	})
	return nil
}

func (t *tx) AddItems(_ context.Context, orderID int64, items []order.Item) error {
	st := &t.s.state
	stored, ok := st.orders[orderID]
	if !ok {
		return &order.NotFoundError{Entity: "order", ID: orderID}
	}
	for i := range items {
		st.itemSeq++
		items[i].ID = st.itemSeq
		items[i].OrderID = orderID
	}
	clone := (&order.Order{Items: items}).Clone()
	stored.Items = append(stored.Items, clone.Items...)
	return nil
}

func (t *tx) UpdateItem(_ context.Context, item *order.Item) error {
	stored, ok := t.s.state.orders[item.OrderID]
	if !ok {
		return &order.NotFoundError{Entity: "order", ID: item.OrderID}
	}
	for i := range stored.Items {
		if stored.Items[i].ID == item.ID {
			stored.Items[i].Qty = item.Qty
			stored.Items[i].LineTotal = item.LineTotal
			return nil
		}
	}
	return &order.NotFoundError{Entity: "item", ID: item.ID}
}

func (t *tx) DeleteItem(_ context.Context, orderID, itemID int64) error {
	stored, ok := t.s.state.orders[orderID]
	if !ok {
		return &order.NotFoundError{Entity: "order", ID: orderID}
	}
	stored.Items = slices.DeleteFunc(stored.Items, func(it order.Item) bool {
		return it.ID == itemID
	})
	return nil
}

func (t *tx) AddPayment(_ context.Context, p *order.Payment) error {
	st := &t.s.state
	stored, ok := st.orders[p.OrderID]
	if !ok {
		return &order.NotFoundError{Entity: "order", ID: p.OrderID}
	}
	st.paymentSeq++
	p.ID = st.paymentSeq
	stored.Payments = append(stored.Payments, *p)
	return nil
}

func (t *tx) AppendEvent(_ context.Context, e *order.Event) error {
	st := &t.s.state
	st.eventSeq++
	e.ID = st.eventSeq
	st.events = append(st.events, *e)
	return nil
}

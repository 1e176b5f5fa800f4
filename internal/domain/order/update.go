package order

// Opt is an optional value. Set distinguishes "absent" from the zero value.
type Opt[T any] struct {
	Value T
	Set   bool
}

// NewOpt returns a set Opt holding v.
func NewOpt[T any](v T) Opt[T] {
	return Opt[T]{Value: v, Set: true}
}

// Get returns the value and whether it is set.
func (o Opt[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// Update is a partial update of order header fields. A set text field holding
// nil clears the value. A TableID or GroupID of 0 clears the association.
type Update struct {
	Notes         Opt[*string]
	CustomerName  Opt[*string]
	CustomerPhone Opt[*string]
	TableID       Opt[int64]
	GroupID       Opt[int64]
}

// apply writes the set fields to o and returns them as an event payload.
func (u Update) apply(o *Order) map[string]any {
	changed := map[string]any{}
	if v, ok := u.Notes.Get(); ok {
		o.Notes = clonePtr(v)
		changed["notes"] = textValue(v)
	}
	if v, ok := u.CustomerName.Get(); ok {
		o.CustomerName = clonePtr(v)
		changed["customer_name"] = textValue(v)
	}
	if v, ok := u.CustomerPhone.Get(); ok {
		o.CustomerPhone = clonePtr(v)
		changed["customer_phone"] = textValue(v)
	}
	if v, ok := u.TableID.Get(); ok {
		o.TableID = idOrNil(v)
		o.TableName = nil
		changed["table_id"] = v
	}
	if v, ok := u.GroupID.Get(); ok {
		o.GroupID = idOrNil(v)
		changed["group_id"] = v
	}
	return changed
}

// textValue renders an optional text field for an event payload.
func textValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// idOrNil maps the 0 "no association" sentinel to nil.
func idOrNil(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func nonZero(id *int64) *int64 {
	if id == nil {
		return nil
	}
	return idOrNil(*id)
}

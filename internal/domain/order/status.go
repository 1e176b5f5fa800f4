package order

import (
	"slices"
	"time"
)

// Status is the fulfillment state of an order.
type Status string

// Order statuses. StatusCompleted and StatusCanceled are terminal.
const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// transitions lists the allowed target statuses for every status. The table
// is total: terminal statuses map to an empty set.
var transitions = map[Status][]Status{
	StatusPending:   {StatusAccepted, StatusCanceled},
	StatusAccepted:  {StatusPreparing, StatusCanceled},
	StatusPreparing: {StatusReady, StatusCanceled},
	StatusReady:     {StatusServed, StatusCanceled},
	StatusServed:    {StatusCompleted, StatusCanceled},
	StatusCompleted: {},
	StatusCanceled:  {},
}

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	return []Status{
		StatusPending,
		StatusAccepted,
		StatusPreparing,
		StatusReady,
		StatusServed,
		StatusCompleted,
		StatusCanceled,
	}
}

// ParseStatus converts v to a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", &ValidationError{Field: "status", Reason: "unknown status " + quote(v)}
	}
	return s, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Next returns the statuses reachable from s in one step.
func (s Status) Next() []Status {
	return slices.Clone(transitions[s])
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	return slices.Contains(transitions[s], target)
}

// Terminal reports whether s has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// ItemsMutable reports whether items may be added, removed or changed.
func (s Status) ItemsMutable() bool {
	return s == StatusPending || s == StatusAccepted
}

// Transition moves o to target if the transition table allows it.
// completed_at is stamped only once; canceled_at is refreshed on every
// cancellation.
func (o *Order) Transition(target Status, now time.Time) error {
	if !o.Status.CanTransitionTo(target) {
		return &IllegalTransitionError{OrderID: o.ID, From: o.Status, To: target}
	}
	o.setStatus(target, now)
	return nil
}

func (o *Order) setStatus(target Status, now time.Time) {
	o.Status = target
	switch target {
	case StatusCompleted:
		if o.CompletedAt == nil {
			o.CompletedAt = &now
		}
	case StatusCanceled:
		o.CanceledAt = &now
	}
	o.UpdatedAt = now
}

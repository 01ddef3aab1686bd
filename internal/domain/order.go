package domain

import (
	"fmt"
	"time"
)

// KitchenStatus is the canonical preparation state machine. Transitions only
// move forward; the server enforces this, clients just trust what arrives.
type KitchenStatus string

const (
	KitchenStatusNew              KitchenStatus = "new"
	KitchenStatusAccepted         KitchenStatus = "accepted"
	KitchenStatusInPreparation    KitchenStatus = "in_preparation"
	KitchenStatusReadyForDelivery KitchenStatus = "ready_for_delivery"
)

var kitchenStatusOrder = map[KitchenStatus]int{
	KitchenStatusNew:              0,
	KitchenStatusAccepted:         1,
	KitchenStatusInPreparation:    2,
	KitchenStatusReadyForDelivery: 3,
}

func (s KitchenStatus) Valid() bool {
	_, ok := kitchenStatusOrder[s]
	return ok
}

// CanTransitionTo reports whether moving to target is a forward step.
func (s KitchenStatus) CanTransitionTo(target KitchenStatus) bool {
	from, okFrom := kitchenStatusOrder[s]
	to, okTo := kitchenStatusOrder[target]
	return okFrom && okTo && to > from
}

// Label is the general-purpose order status as displays historically named
// it. It is derived, read-only; KitchenStatus is the only stored state.
func (s KitchenStatus) Label() string {
	switch s {
	case KitchenStatusNew:
		return "pending"
	case KitchenStatusAccepted:
		return "accepted"
	case KitchenStatusInPreparation:
		return "preparing"
	case KitchenStatusReadyForDelivery:
		return "ready"
	default:
		return string(s)
	}
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Color returns the display color assigned to the priority.
func (p Priority) Color() string {
	switch p {
	case PriorityUrgent:
		return "#f44336"
	case PriorityHigh:
		return "#ff9800"
	case PriorityLow:
		return "#4caf50"
	default:
		return "#2196f3"
	}
}

// Identification says how the customer is addressed: seated at a table or
// called by name (takeaway, bar).
type Identification string

const (
	IdentifyByTable Identification = "table"
	IdentifyByName  Identification = "name"
)

type OrderItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Order mirrors the server-authoritative order record. The client never
// writes any of these fields itself; they change only through push events
// and full refetches.
type Order struct {
	ID               string         `json:"id"`
	Identification   Identification `json:"identificationType"`
	TableNumber      *int           `json:"tableNumber,omitempty"`
	CustomerName     *string        `json:"customerName,omitempty"`
	CustomerLocation string         `json:"customerLocation"`
	Observations     string         `json:"observations"`
	Items            []OrderItem    `json:"items"`
	// Total is computed server-side; it is displayed as-is.
	Total         float64       `json:"total"`
	KitchenStatus KitchenStatus `json:"kitchenStatus"`
	Priority      Priority      `json:"priority"`
	KitchenNotes  string        `json:"kitchenNotes"`
	WaiterID      string        `json:"waiterId"`
	CreatedAt     time.Time     `json:"createdAt"`
	AcceptedAt    *time.Time    `json:"acceptedAt,omitempty"`
	PreparingAt   *time.Time    `json:"preparingAt,omitempty"`
	ReadyAt       *time.Time    `json:"readyAt,omitempty"`
}

// Status is the derived general-purpose label for legacy displays.
func (o Order) Status() string {
	return o.KitchenStatus.Label()
}

// Elapsed is the time since the order was taken.
func (o Order) Elapsed(now time.Time) time.Duration {
	if o.CreatedAt.IsZero() || now.Before(o.CreatedAt) {
		return 0
	}
	return now.Sub(o.CreatedAt)
}

// StageTimes holds per-stage durations. A nil field means the order has not
// reached that stage yet.
type StageTimes struct {
	ToAccept      *time.Duration
	InPreparation *time.Duration
	ToFinalize    *time.Duration
}

// Stages computes how long each pipeline stage took. An in-flight
// preparation is measured up to now.
func (o Order) Stages(now time.Time) StageTimes {
	var st StageTimes
	if o.AcceptedAt != nil {
		d := o.AcceptedAt.Sub(o.CreatedAt)
		st.ToAccept = &d
	}
	if o.PreparingAt != nil {
		end := now
		if o.ReadyAt != nil {
			end = *o.ReadyAt
		}
		d := end.Sub(*o.PreparingAt)
		st.InPreparation = &d
	}
	if o.ReadyAt != nil {
		d := o.ReadyAt.Sub(o.CreatedAt)
		st.ToFinalize = &d
	}
	return st
}

// ClientInfo is the human-readable line shown on order cards.
func (o Order) ClientInfo() string {
	var who string
	switch {
	case o.Identification == IdentifyByTable && o.TableNumber != nil:
		who = fmt.Sprintf("Table %d", *o.TableNumber)
	case o.CustomerName != nil && *o.CustomerName != "":
		who = *o.CustomerName
	default:
		who = "Walk-in"
	}
	if o.CustomerLocation != "" {
		return who + " · " + o.CustomerLocation
	}
	return who
}

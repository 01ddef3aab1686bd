// Package projection derives display-ready subsets from a snapshot. All
// functions are pure; filtering always happens client-side over the loaded
// superset so the snapshot invariants hold for every view.
package projection

import "expo/internal/domain"

// FilterAll is the sentinel that disables a single-select filter.
const FilterAll = "all"

// ViewMode is a display shortcut on the kitchen board.
type ViewMode string

const (
	ViewAll   ViewMode = "all"
	ViewNew   ViewMode = "new"
	ViewReady ViewMode = "ready"
)

func (m ViewMode) Valid() bool {
	switch m {
	case ViewAll, ViewNew, ViewReady, "":
		return true
	}
	return false
}

// ByStatus keeps orders in the given kitchen status. The "all" sentinel (or
// an empty filter) passes everything through.
func ByStatus(orders []domain.Order, status string) []domain.Order {
	if status == "" || status == FilterAll {
		return orders
	}
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if string(o.KitchenStatus) == status {
			out = append(out, o)
		}
	}
	return out
}

// ByPriority keeps orders with the given priority, with the same sentinel
// semantics as ByStatus.
func ByPriority(orders []domain.Order, priority string) []domain.Order {
	if priority == "" || priority == FilterAll {
		return orders
	}
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if string(o.Priority) == priority {
			out = append(out, o)
		}
	}
	return out
}

// ByWaiter keeps orders taken by the given waiter.
func ByWaiter(orders []domain.Order, waiterID string) []domain.Order {
	if waiterID == "" || waiterID == FilterAll {
		return orders
	}
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.WaiterID == waiterID {
			out = append(out, o)
		}
	}
	return out
}

// ByView applies a view-mode shortcut.
func ByView(orders []domain.Order, mode ViewMode) []domain.Order {
	switch mode {
	case ViewNew:
		return ByStatus(orders, string(domain.KitchenStatusNew))
	case ViewReady:
		return ByStatus(orders, string(domain.KitchenStatusReadyForDelivery))
	default:
		return orders
	}
}

// Counts are the per-status badge numbers, recomputed on every change.
type Counts struct {
	Total         int `json:"total"`
	New           int `json:"new"`
	Accepted      int `json:"accepted"`
	InPreparation int `json:"inPreparation"`
	Ready         int `json:"ready"`
}

func CountByStatus(orders []domain.Order) Counts {
	c := Counts{Total: len(orders)}
	for _, o := range orders {
		switch o.KitchenStatus {
		case domain.KitchenStatusNew:
			c.New++
		case domain.KitchenStatusAccepted:
			c.Accepted++
		case domain.KitchenStatusInPreparation:
			c.InPreparation++
		case domain.KitchenStatusReadyForDelivery:
			c.Ready++
		}
	}
	return c
}

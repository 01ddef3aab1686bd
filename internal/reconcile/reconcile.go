// Package reconcile holds the pure merge functions that fold push events and
// fetch responses into an order snapshot. No I/O, no errors: malformed input
// is merged as a no-op so a bad event can never take a view down.
//
// The single invariant every function re-establishes is recency order:
// creation timestamp descending, stable for equal timestamps. Because the
// sort key is the creation time and not arrival order, the resulting
// snapshot is the same no matter how events interleave on the wire.
package reconcile

import (
	"sort"

	"expo/internal/domain"
)

// SortByRecent returns a copy of orders sorted most recent first.
func SortByRecent(orders []domain.Order) []domain.Order {
	out := make([]domain.Order, len(orders))
	copy(out, orders)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ReplaceAll discards the current snapshot in favor of a freshly fetched
// list. Entries without an identifier are dropped, later duplicates of an
// identifier are ignored, and the sort invariant is applied.
func ReplaceAll(_ []domain.Order, fetched []domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(fetched))
	seen := make(map[string]struct{}, len(fetched))
	for _, o := range fetched {
		if o.ID == "" {
			continue
		}
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		out = append(out, o)
	}
	return SortByRecent(out)
}

// Upsert merges a single incoming order: replace in place when the
// identifier is already present, otherwise insert. An order without an
// identifier leaves the snapshot untouched.
func Upsert(current []domain.Order, incoming domain.Order) []domain.Order {
	if incoming.ID == "" {
		return current
	}
	out := make([]domain.Order, 0, len(current)+1)
	replaced := false
	for _, o := range current {
		if o.ID == incoming.ID {
			out = append(out, incoming)
			replaced = true
			continue
		}
		out = append(out, o)
	}
	if !replaced {
		out = append([]domain.Order{incoming}, out...)
	}
	return SortByRecent(out)
}

// Remove drops the order with the given identifier. Removing an absent
// identifier is a no-op, so duplicate cancellation events are harmless.
func Remove(current []domain.Order, id string) []domain.Order {
	if id == "" {
		return current
	}
	out := make([]domain.Order, 0, len(current))
	for _, o := range current {
		if o.ID == id {
			continue
		}
		out = append(out, o)
	}
	if len(out) == len(current) {
		return current
	}
	return out
}

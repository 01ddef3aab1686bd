package dto

import (
	"time"

	"expo/internal/domain"
)

// OrderView is an order as displays consume it: the authoritative record
// plus the derived fields recomputed at serialization time. Nothing here is
// stored; views rebuild it from the snapshot on every read.
type OrderView struct {
	domain.Order

	// Status is the derived general-purpose label.
	StatusLabel    string     `json:"status"`
	ElapsedSeconds float64    `json:"elapsedSeconds"`
	Stages         StageTimes `json:"stageTimes"`
	PriorityColor  string     `json:"priorityColor"`
	ClientInfo     string     `json:"clientInfo"`
}

type StageTimes struct {
	ToAcceptSeconds      *float64 `json:"toAcceptSeconds,omitempty"`
	InPreparationSeconds *float64 `json:"inPreparationSeconds,omitempty"`
	ToFinalizeSeconds    *float64 `json:"toFinalizeSeconds,omitempty"`
}

// NewOrderView derives the display projection of an order at time now.
func NewOrderView(o domain.Order, now time.Time) OrderView {
	st := o.Stages(now)
	return OrderView{
		Order:          o,
		StatusLabel:    o.Status(),
		ElapsedSeconds: o.Elapsed(now).Seconds(),
		Stages: StageTimes{
			ToAcceptSeconds:      seconds(st.ToAccept),
			InPreparationSeconds: seconds(st.InPreparation),
			ToFinalizeSeconds:    seconds(st.ToFinalize),
		},
		PriorityColor: o.Priority.Color(),
		ClientInfo:    o.ClientInfo(),
	}
}

// NewOrderViews derives display projections for a whole snapshot,
// preserving its order.
func NewOrderViews(orders []domain.Order, now time.Time) []OrderView {
	out := make([]OrderView, len(orders))
	for i, o := range orders {
		out[i] = NewOrderView(o, now)
	}
	return out
}

func seconds(d *time.Duration) *float64 {
	if d == nil {
		return nil
	}
	s := d.Seconds()
	return &s
}

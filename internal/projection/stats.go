package projection

import (
	"time"

	"expo/internal/domain"
)

// KitchenStats is the statistics panel aggregate for the current day,
// recomputed from the snapshot.
type KitchenStats struct {
	OrdersToday   int     `json:"ordersToday"`
	OrdersPerHour float64 `json:"ordersPerHour"`

	New           int `json:"new"`
	Accepted      int `json:"accepted"`
	InPreparation int `json:"inPreparation"`
	Ready         int `json:"ready"`
	Completed     int `json:"completed"`

	TotalRevenue     float64 `json:"totalRevenue"`
	AvgRevenue       float64 `json:"avgRevenuePerOrder"`
	CompletionRate   float64 `json:"completionRate"`
	AvgAcceptSeconds float64 `json:"avgTimeToAcceptSeconds"`
	AvgPrepSeconds   float64 `json:"avgPreparationSeconds"`
	AvgTotalSeconds  float64 `json:"avgTotalSeconds"`
	ByPriorityUrgent int     `json:"urgent"`
	ByPriorityHigh   int     `json:"high"`
	ByPriorityNormal int     `json:"normal"`
	ByPriorityLow    int     `json:"low"`
}

// Stats aggregates today's orders. "Today" starts at local midnight of now;
// orders taken before that are ignored.
func Stats(orders []domain.Order, now time.Time) KitchenStats {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var s KitchenStats
	var acceptSum, prepSum, totalSum time.Duration
	var acceptN, prepN, totalN int

	for _, o := range orders {
		if o.CreatedAt.Before(dayStart) {
			continue
		}
		s.OrdersToday++
		s.TotalRevenue += o.Total

		switch o.KitchenStatus {
		case domain.KitchenStatusNew:
			s.New++
		case domain.KitchenStatusAccepted:
			s.Accepted++
		case domain.KitchenStatusInPreparation:
			s.InPreparation++
		case domain.KitchenStatusReadyForDelivery:
			s.Ready++
			s.Completed++
		}

		switch o.Priority {
		case domain.PriorityUrgent:
			s.ByPriorityUrgent++
		case domain.PriorityHigh:
			s.ByPriorityHigh++
		case domain.PriorityLow:
			s.ByPriorityLow++
		default:
			s.ByPriorityNormal++
		}

		st := o.Stages(now)
		if st.ToAccept != nil {
			acceptSum += *st.ToAccept
			acceptN++
		}
		if st.InPreparation != nil && o.ReadyAt != nil {
			prepSum += *st.InPreparation
			prepN++
		}
		if st.ToFinalize != nil {
			totalSum += *st.ToFinalize
			totalN++
		}
	}

	if s.OrdersToday > 0 {
		s.AvgRevenue = s.TotalRevenue / float64(s.OrdersToday)
		s.CompletionRate = float64(s.Completed) / float64(s.OrdersToday)

		hours := now.Sub(dayStart).Hours()
		if hours < 1 {
			hours = 1
		}
		s.OrdersPerHour = float64(s.OrdersToday) / hours
	}
	if acceptN > 0 {
		s.AvgAcceptSeconds = acceptSum.Seconds() / float64(acceptN)
	}
	if prepN > 0 {
		s.AvgPrepSeconds = prepSum.Seconds() / float64(prepN)
	}
	if totalN > 0 {
		s.AvgTotalSeconds = totalSum.Seconds() / float64(totalN)
	}
	return s
}

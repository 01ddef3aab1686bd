package dto

import "expo/internal/domain"

// CreateOrderRequest is a waiter taking a new order. The server assigns the
// identifier, timestamp and authoritative total.
type CreateOrderRequest struct {
	IdentificationType domain.Identification `json:"identificationType"`
	TableNumber        *int                  `json:"tableNumber,omitempty"`
	CustomerName       *string               `json:"customerName,omitempty"`
	CustomerLocation   string                `json:"customerLocation"`
	Observations       string                `json:"observations"`
	Items              []OrderItemRequest    `json:"items"`
	WaiterID           string                `json:"waiterId"`
}

type OrderItemRequest struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type ChangePriorityRequest struct {
	Priority domain.Priority `json:"priority"`
}

type KitchenNotesRequest struct {
	KitchenNotes string `json:"kitchenNotes"`
}

type ChangeStatusRequest struct {
	Status domain.KitchenStatus `json:"status"`
}

// DayStats is the waiter dashboard summary for the current day.
type DayStats struct {
	OrdersToday   int     `json:"ordersToday"`
	SalesToday    float64 `json:"salesToday"`
	ActiveWaiters int     `json:"activeWaiters"`
}

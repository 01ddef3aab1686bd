package channel

import (
	"encoding/json"
	"fmt"

	"expo/internal/domain"
)

// Event names consumed from the push gateway.
const (
	EventNewOrder            = "new-order"
	EventOrderUpdated        = "order-updated"
	EventOrderCancelled      = "order-cancelled"
	EventOrdersRefresh       = "orders-refresh"
	EventNewOrderNotice      = "new-order-notice"
	EventOrderStatusChanged  = "order-status-changed"
	EventKitchenStatsUpdated = "kitchen-stats-updated"
)

// Event names emitted to the push gateway.
const (
	EventCreateOrder       = "create-order"
	EventCancelOrder       = "cancel-order"
	EventChangeOrderStatus = "change-order-status"
)

// Event is an inbound push message after boundary validation. Exactly the
// fields the named event defines are populated; handlers never see a frame
// that failed to parse.
type Event struct {
	Name    string
	Order   *domain.Order
	OrderID string
	Status  domain.KitchenStatus
	// Raw is kept for payloads the sync layer passes through untyped
	// (kitchen-stats-updated).
	Raw json.RawMessage
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// decodeEvent validates a raw frame into a typed Event. Frames with unknown
// names, missing identifiers or unparsable payloads are rejected here, so
// nothing malformed ever reaches the reconciliation path.
func decodeEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Event == "" {
		return Event{}, fmt.Errorf("frame without event name")
	}

	ev := Event{Name: env.Event}
	switch env.Event {
	case EventNewOrder, EventOrderUpdated, EventNewOrderNotice:
		var o domain.Order
		if err := json.Unmarshal(env.Data, &o); err != nil {
			return Event{}, fmt.Errorf("decoding %s payload: %w", env.Event, err)
		}
		if o.ID == "" {
			return Event{}, fmt.Errorf("%s payload without order id", env.Event)
		}
		ev.Order = &o
		ev.OrderID = o.ID

	case EventOrderCancelled:
		id, err := decodeOrderID(env.Data)
		if err != nil {
			return Event{}, fmt.Errorf("decoding %s payload: %w", env.Event, err)
		}
		ev.OrderID = id

	case EventOrderStatusChanged:
		var p struct {
			OrderID string               `json:"orderId"`
			Status  domain.KitchenStatus `json:"status"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return Event{}, fmt.Errorf("decoding %s payload: %w", env.Event, err)
		}
		if p.OrderID == "" {
			return Event{}, fmt.Errorf("%s payload without order id", env.Event)
		}
		if !p.Status.Valid() {
			return Event{}, fmt.Errorf("%s payload with unknown status %q", env.Event, p.Status)
		}
		ev.OrderID = p.OrderID
		ev.Status = p.Status

	case EventOrdersRefresh:
		// Signal only, no payload.

	case EventKitchenStatsUpdated:
		ev.Raw = env.Data

	default:
		return Event{}, fmt.Errorf("unknown event %q", env.Event)
	}

	return ev, nil
}

// decodeOrderID accepts the two shapes the gateway has historically sent
// for cancellations: a bare id string or an object carrying the id.
func decodeOrderID(data []byte) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("empty order id")
		}
		return s, nil
	}
	var p struct {
		ID      string `json:"id"`
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return "", err
	}
	if p.ID != "" {
		return p.ID, nil
	}
	if p.OrderID != "" {
		return p.OrderID, nil
	}
	return "", fmt.Errorf("no order id in payload")
}

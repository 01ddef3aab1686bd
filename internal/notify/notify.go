// Package notify collects the operator-facing notices that the display
// front-end renders as sounds and banners. The service itself only keeps a
// short ring of recent notices and logs them; playing the actual chime is
// the display's job.
package notify

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"expo/internal/domain"
)

const (
	KindNewOrder   = "new-order"
	KindOrderReady = "order-ready"
	KindCancelled  = "order-cancelled"
	KindStatus     = "status-changed"
)

type Notice struct {
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	OrderID string    `json:"orderId,omitempty"`
	Urgent  bool      `json:"urgent"`
}

// Center is a bounded ring of recent notices.
type Center struct {
	log *zap.Logger
	now func() time.Time

	mu      sync.Mutex
	notices []Notice
	limit   int
}

func NewCenter(log *zap.Logger, limit int) *Center {
	if limit <= 0 {
		limit = 50
	}
	return &Center{log: log, now: time.Now, limit: limit}
}

// NewOrder records an incoming order notice; urgent orders ring louder.
func (c *Center) NewOrder(o domain.Order) {
	c.add(Notice{
		Kind:    KindNewOrder,
		Message: fmt.Sprintf("New order %s: %s", shortID(o.ID), o.ClientInfo()),
		OrderID: o.ID,
		Urgent:  o.Priority == domain.PriorityUrgent,
	})
}

// OrderReady records the completion chime fired when the kitchen marks an
// order ready. This fires on command success, independent of the push event
// that follows.
func (c *Center) OrderReady(o domain.Order) {
	c.add(Notice{
		Kind:    KindOrderReady,
		Message: fmt.Sprintf("Order %s ready for delivery", shortID(o.ID)),
		OrderID: o.ID,
	})
}

// OrderCancelled records a cancellation notice.
func (c *Center) OrderCancelled(orderID string) {
	c.add(Notice{
		Kind:    KindCancelled,
		Message: fmt.Sprintf("Order %s cancelled", shortID(orderID)),
		OrderID: orderID,
		Urgent:  true,
	})
}

// StatusChanged records a waiter-facing status notice.
func (c *Center) StatusChanged(orderID string, status domain.KitchenStatus) {
	c.add(Notice{
		Kind:    KindStatus,
		Message: fmt.Sprintf("Order %s is now %s", shortID(orderID), status.Label()),
		OrderID: orderID,
	})
}

// Recent returns the notices newest first.
func (c *Center) Recent() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	for i, n := range c.notices {
		out[len(c.notices)-1-i] = n
	}
	return out
}

func (c *Center) add(n Notice) {
	n.At = c.now()
	c.log.Info("notice",
		zap.String("kind", n.Kind),
		zap.String("orderId", n.OrderID),
		zap.Bool("urgent", n.Urgent),
		zap.String("message", n.Message))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
	if len(c.notices) > c.limit {
		c.notices = c.notices[len(c.notices)-c.limit:]
	}
}

// shortID trims an opaque identifier to the tail operators read aloud.
func shortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}

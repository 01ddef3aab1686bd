// Package dispatch turns staff actions into upstream commands. Kitchen
// actions go over the REST API, waiter actions are emitted on the event
// channel. The dispatcher never touches the local snapshot; state changes
// arrive back as push events and are reconciled there.
package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"expo/internal/channel"
	"expo/internal/domain"
	"expo/internal/dto"
	"expo/internal/errors"
)

// OrderAPI is the upstream REST surface the kitchen commands use.
type OrderAPI interface {
	Accept(ctx context.Context, orderID string) (*domain.Order, error)
	StartPreparation(ctx context.Context, orderID string) (*domain.Order, error)
	MarkReady(ctx context.Context, orderID string) (*domain.Order, error)
	ChangePriority(ctx context.Context, orderID string, p domain.Priority) (*domain.Order, error)
	SetKitchenNotes(ctx context.Context, orderID, notes string) (*domain.Order, error)
}

// Emitter sends a named event upstream over the push channel.
type Emitter interface {
	Emit(name string, payload interface{}) error
}

// SnapshotReader exposes the current mirrored state of a single order.
type SnapshotReader interface {
	Get(id string) (domain.Order, bool)
}

// Notifier receives the operator notices command success produces.
type Notifier interface {
	OrderReady(o domain.Order)
}

type Dispatcher struct {
	api      OrderAPI
	emitter  Emitter
	orders   SnapshotReader
	notifier Notifier
	logger   *zap.Logger
}

func New(api OrderAPI, emitter Emitter, orders SnapshotReader, notifier Notifier, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		api:      api,
		emitter:  emitter,
		orders:   orders,
		notifier: notifier,
		logger:   logger,
	}
}

func (d *Dispatcher) Accept(ctx context.Context, orderID string) (*domain.Order, error) {
	d.logger.Info("dispatching accept", zap.String("orderId", orderID))
	return d.api.Accept(ctx, orderID)
}

// StartPreparation moves an order into preparation. Orders still in the new
// state are accepted first, so the downstream status machine never sees a
// skipped step.
func (d *Dispatcher) StartPreparation(ctx context.Context, orderID string) (*domain.Order, error) {
	if o, ok := d.orders.Get(orderID); ok && o.KitchenStatus == domain.KitchenStatusNew {
		d.logger.Info("accepting before preparation", zap.String("orderId", orderID))
		if _, err := d.api.Accept(ctx, orderID); err != nil {
			return nil, err
		}
	}
	d.logger.Info("dispatching start-preparation", zap.String("orderId", orderID))
	return d.api.StartPreparation(ctx, orderID)
}

func (d *Dispatcher) MarkReady(ctx context.Context, orderID string) (*domain.Order, error) {
	d.logger.Info("dispatching mark-ready", zap.String("orderId", orderID))
	o, err := d.api.MarkReady(ctx, orderID)
	if err != nil {
		return nil, err
	}
	d.notifier.OrderReady(*o)
	return o, nil
}

func (d *Dispatcher) ChangePriority(ctx context.Context, orderID string, p domain.Priority) (*domain.Order, error) {
	if !p.Valid() {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid priority %q", p))
	}
	d.logger.Info("dispatching change-priority",
		zap.String("orderId", orderID), zap.String("priority", string(p)))
	return d.api.ChangePriority(ctx, orderID, p)
}

func (d *Dispatcher) SetKitchenNotes(ctx context.Context, orderID, notes string) (*domain.Order, error) {
	d.logger.Info("dispatching kitchen-notes", zap.String("orderId", orderID))
	return d.api.SetKitchenNotes(ctx, orderID, notes)
}

// CreateOrder validates a waiter's order request and emits it on the channel.
// The created order comes back as a push event; nothing is inserted locally.
func (d *Dispatcher) CreateOrder(req dto.CreateOrderRequest) error {
	if err := validateCreate(req); err != nil {
		return err
	}
	d.logger.Info("emitting create-order",
		zap.String("identification", string(req.IdentificationType)),
		zap.Int("items", len(req.Items)))
	return d.emitter.Emit(channel.EventCreateOrder, req)
}

func (d *Dispatcher) CancelOrder(orderID string) error {
	if orderID == "" {
		return errors.NewValidationError("order id is required")
	}
	d.logger.Info("emitting cancel-order", zap.String("orderId", orderID))
	return d.emitter.Emit(channel.EventCancelOrder, map[string]string{"id": orderID})
}

func (d *Dispatcher) ChangeOrderStatus(orderID string, status domain.KitchenStatus) error {
	if orderID == "" {
		return errors.NewValidationError("order id is required")
	}
	if !status.Valid() {
		return errors.NewValidationError(fmt.Sprintf("invalid status %q", status))
	}
	d.logger.Info("emitting change-order-status",
		zap.String("orderId", orderID), zap.String("status", string(status)))
	return d.emitter.Emit(channel.EventChangeOrderStatus, map[string]string{
		"orderId": orderID,
		"status":  string(status),
	})
}

func validateCreate(req dto.CreateOrderRequest) error {
	var details []errors.ValidationDetail

	switch req.IdentificationType {
	case domain.IdentifyByTable:
		if req.TableNumber == nil {
			details = append(details, errors.ValidationDetail{
				Field: "tableNumber", Message: "required for table identification",
			})
		}
	case domain.IdentifyByName:
		if req.CustomerName == nil || *req.CustomerName == "" {
			details = append(details, errors.ValidationDetail{
				Field: "customerName", Message: "required for name identification",
			})
		}
	default:
		details = append(details, errors.ValidationDetail{
			Field: "identificationType", Message: "must be table or name",
		})
	}

	if len(req.Items) == 0 {
		details = append(details, errors.ValidationDetail{
			Field: "items", Message: "at least one item is required",
		})
	}
	for i, it := range req.Items {
		if it.Name == "" {
			details = append(details, errors.ValidationDetail{
				Field: fmt.Sprintf("items[%d].name", i), Message: "name is required",
			})
		}
		if it.Quantity < 1 {
			details = append(details, errors.ValidationDetail{
				Field: fmt.Sprintf("items[%d].quantity", i), Message: "quantity must be at least 1",
			})
		}
		if it.Price < 0 {
			details = append(details, errors.ValidationDetail{
				Field: fmt.Sprintf("items[%d].price", i), Message: "price cannot be negative",
			})
		}
	}

	if len(details) > 0 {
		return errors.NewValidationError("invalid order request", details...)
	}
	return nil
}

// Package kitchen drives the kitchen display: it mirrors the order board
// from the push channel into a local snapshot and exposes it, together with
// the kitchen commands, over the HTTP API.
package kitchen

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"expo/internal/channel"
	"expo/internal/domain"
	"expo/internal/notify"
	"expo/internal/snapshot"
	"expo/internal/upstream"
)

// Channel is the slice of the push client the service uses.
type Channel interface {
	Subscribe(name string, h channel.Handler)
	Unsubscribe(name string)
	OnReconnect(fn func())
	JoinRoom(room string) error
	LeaveRoom(room string) error
}

// OrderFetcher pulls the authoritative order list for reconciliation.
type OrderFetcher interface {
	FetchOrders(ctx context.Context, f upstream.Filters) ([]domain.Order, error)
}

const refreshTimeout = 15 * time.Second

type Service struct {
	ch      Channel
	fetcher OrderFetcher
	store   *snapshot.Store
	notices *notify.Center
	room    string
	logger  *zap.Logger

	statsMu     sync.RWMutex
	pushedStats json.RawMessage
}

func NewService(ch Channel, fetcher OrderFetcher, store *snapshot.Store, notices *notify.Center, room string, logger *zap.Logger) *Service {
	return &Service{
		ch:      ch,
		fetcher: fetcher,
		store:   store,
		notices: notices,
		room:    room,
		logger:  logger,
	}
}

// Start joins the kitchen room, wires the push events into the snapshot and
// performs the initial full fetch. Push events received before the fetch
// completes still win: the fetch result goes through the same reconciler.
func (s *Service) Start(ctx context.Context) error {
	s.ch.Subscribe(channel.EventNewOrder, s.onNewOrder)
	s.ch.Subscribe(channel.EventOrderUpdated, s.onOrderUpdated)
	s.ch.Subscribe(channel.EventOrderCancelled, s.onOrderCancelled)
	s.ch.Subscribe(channel.EventKitchenStatsUpdated, s.onStatsUpdated)
	s.ch.OnReconnect(func() {
		s.logger.Info("channel reconnected, refreshing kitchen snapshot")
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := s.Refresh(ctx); err != nil {
			s.logger.Error("refresh after reconnect failed", zap.Error(err))
		}
	})

	if err := s.ch.JoinRoom(s.room); err != nil {
		s.logger.Warn("join will be replayed on connect", zap.String("room", s.room), zap.Error(err))
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.Error("initial order fetch failed", zap.Error(err))
		return err
	}
	return nil
}

// Refresh replaces the snapshot with the upstream order list.
func (s *Service) Refresh(ctx context.Context) error {
	orders, err := s.fetcher.FetchOrders(ctx, upstream.Filters{})
	if err != nil {
		return err
	}
	s.store.ReplaceAll(orders)
	s.logger.Info("kitchen snapshot refreshed", zap.Int("orders", len(orders)))
	return nil
}

// Stop detaches the service from the channel and seals the snapshot. Events
// still in flight after Stop are dropped, not applied.
func (s *Service) Stop() {
	s.ch.Unsubscribe(channel.EventNewOrder)
	s.ch.Unsubscribe(channel.EventOrderUpdated)
	s.ch.Unsubscribe(channel.EventOrderCancelled)
	s.ch.Unsubscribe(channel.EventKitchenStatsUpdated)
	if err := s.ch.LeaveRoom(s.room); err != nil {
		s.logger.Warn("leave room failed", zap.String("room", s.room), zap.Error(err))
	}
	s.store.Close()
}

func (s *Service) Store() *snapshot.Store {
	return s.store
}

// PushedStats returns the last statistics aggregate the gateway pushed, or
// nil when none has arrived yet.
func (s *Service) PushedStats() json.RawMessage {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.pushedStats
}

func (s *Service) onNewOrder(ev channel.Event) {
	if ev.Order == nil {
		return
	}
	s.store.Upsert(*ev.Order)
	s.notices.NewOrder(*ev.Order)
	s.logger.Info("order received",
		zap.String("orderId", ev.Order.ID),
		zap.String("priority", string(ev.Order.Priority)))
}

func (s *Service) onOrderUpdated(ev channel.Event) {
	if ev.Order == nil {
		return
	}
	s.store.Upsert(*ev.Order)
	s.logger.Debug("order updated", zap.String("orderId", ev.Order.ID))
}

func (s *Service) onOrderCancelled(ev channel.Event) {
	s.store.Remove(ev.OrderID)
	s.notices.OrderCancelled(ev.OrderID)
	s.logger.Info("order cancelled", zap.String("orderId", ev.OrderID))
}

// onStatsUpdated keeps the gateway's statistics aggregate; the display
// serves it in place of the locally computed one while it is fresh.
func (s *Service) onStatsUpdated(ev channel.Event) {
	s.statsMu.Lock()
	s.pushedStats = ev.Raw
	s.statsMu.Unlock()
}

// Package waiter drives the floor-side view: waiters see the live order
// list, place and cancel orders, and get status notices as the kitchen
// moves them along.
package waiter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"expo/internal/channel"
	"expo/internal/domain"
	"expo/internal/notify"
	"expo/internal/snapshot"
	"expo/internal/upstream"
)

// Channel is the slice of the push client the service uses. Waiter events
// are broadcast gateway-wide, so there is no room to join.
type Channel interface {
	Subscribe(name string, h channel.Handler)
	Unsubscribe(name string)
	OnReconnect(fn func())
}

type OrderFetcher interface {
	FetchOrders(ctx context.Context, f upstream.Filters) ([]domain.Order, error)
}

const refreshTimeout = 15 * time.Second

type Service struct {
	ch      Channel
	fetcher OrderFetcher
	store   *snapshot.Store
	notices *notify.Center
	logger  *zap.Logger
}

func NewService(ch Channel, fetcher OrderFetcher, store *snapshot.Store, notices *notify.Center, logger *zap.Logger) *Service {
	return &Service{
		ch:      ch,
		fetcher: fetcher,
		store:   store,
		notices: notices,
		logger:  logger,
	}
}

// Start wires the waiter events and loads the initial list. The refresh
// event carries no payload: it is a signal to refetch, which keeps the
// waiter list consistent however much churn the refresh collapses.
func (s *Service) Start(ctx context.Context) error {
	s.ch.Subscribe(channel.EventOrdersRefresh, s.onOrdersRefresh)
	s.ch.Subscribe(channel.EventNewOrderNotice, s.onNewOrderNotice)
	s.ch.Subscribe(channel.EventOrderStatusChanged, s.onStatusChanged)
	s.ch.OnReconnect(func() {
		s.logger.Info("channel reconnected, refreshing waiter snapshot")
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := s.Refresh(ctx); err != nil {
			s.logger.Error("refresh after reconnect failed", zap.Error(err))
		}
	})

	if err := s.Refresh(ctx); err != nil {
		s.logger.Error("initial order fetch failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) Refresh(ctx context.Context) error {
	orders, err := s.fetcher.FetchOrders(ctx, upstream.Filters{})
	if err != nil {
		return err
	}
	s.store.ReplaceAll(orders)
	s.logger.Info("waiter snapshot refreshed", zap.Int("orders", len(orders)))
	return nil
}

func (s *Service) Stop() {
	s.ch.Unsubscribe(channel.EventOrdersRefresh)
	s.ch.Unsubscribe(channel.EventNewOrderNotice)
	s.ch.Unsubscribe(channel.EventOrderStatusChanged)
	s.store.Close()
}

func (s *Service) Store() *snapshot.Store {
	return s.store
}

func (s *Service) onOrdersRefresh(channel.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if err := s.Refresh(ctx); err != nil {
		s.logger.Error("refresh on push signal failed", zap.Error(err))
	}
}

func (s *Service) onNewOrderNotice(ev channel.Event) {
	if ev.Order == nil {
		return
	}
	s.notices.NewOrder(*ev.Order)
}

// onStatusChanged patches the mirrored order in place. The event carries
// only the id and the new status; the next refresh brings the full record.
func (s *Service) onStatusChanged(ev channel.Event) {
	if o, ok := s.store.Get(ev.OrderID); ok {
		o.KitchenStatus = ev.Status
		s.store.Upsert(o)
	}
	s.notices.StatusChanged(ev.OrderID, ev.Status)
}

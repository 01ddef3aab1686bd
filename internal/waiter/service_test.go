package waiter

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"expo/internal/channel"
	"expo/internal/domain"
	"expo/internal/notify"
	"expo/internal/snapshot"
	"expo/internal/upstream"
)

type fakeChannel struct {
	handlers map[string]channel.Handler
	hooks    []func()
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: map[string]channel.Handler{}}
}

func (f *fakeChannel) Subscribe(name string, h channel.Handler) {
	f.handlers[name] = h
}

func (f *fakeChannel) Unsubscribe(name string) {
	delete(f.handlers, name)
}

func (f *fakeChannel) OnReconnect(fn func()) {
	f.hooks = append(f.hooks, fn)
}

func (f *fakeChannel) push(ev channel.Event) {
	if h, ok := f.handlers[ev.Name]; ok {
		h(ev)
	}
}

type mockFetcher struct {
	fetchFunc func(ctx context.Context, f upstream.Filters) ([]domain.Order, error)
	calls     int
}

func (m *mockFetcher) FetchOrders(ctx context.Context, f upstream.Filters) ([]domain.Order, error) {
	m.calls++
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, f)
	}
	return nil, nil
}

func newTestService(t *testing.T, ch *fakeChannel, fetcher *mockFetcher) (*Service, *notify.Center) {
	t.Helper()
	store := snapshot.New()
	notices := notify.NewCenter(zap.NewNop(), 10)
	return NewService(ch, fetcher, store, notices, zap.NewNop()), notices
}

func TestRefreshSignalRefetches(t *testing.T) {
	base := time.Now()
	ch := newFakeChannel()
	fetched := []domain.Order{{ID: "o1", CreatedAt: base}}
	fetcher := &mockFetcher{
		fetchFunc: func(ctx context.Context, f upstream.Filters) ([]domain.Order, error) {
			return fetched, nil
		},
	}
	s, _ := newTestService(t, ch, fetcher)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected initial fetch, got %d calls", fetcher.calls)
	}

	fetched = []domain.Order{
		{ID: "o1", CreatedAt: base},
		{ID: "o2", CreatedAt: base.Add(time.Minute)},
	}
	ch.push(channel.Event{Name: channel.EventOrdersRefresh})

	if fetcher.calls != 2 {
		t.Errorf("expected refetch on refresh signal, got %d calls", fetcher.calls)
	}
	if s.Store().Len() != 2 {
		t.Errorf("expected 2 orders after refetch, got %d", s.Store().Len())
	}
}

func TestStatusChangedPatchesOrder(t *testing.T) {
	ch := newFakeChannel()
	fetcher := &mockFetcher{
		fetchFunc: func(ctx context.Context, f upstream.Filters) ([]domain.Order, error) {
			return []domain.Order{{ID: "o1", KitchenStatus: domain.KitchenStatusNew, CreatedAt: time.Now()}}, nil
		},
	}
	s, notices := newTestService(t, ch, fetcher)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ch.push(channel.Event{
		Name:    channel.EventOrderStatusChanged,
		OrderID: "o1",
		Status:  domain.KitchenStatusReadyForDelivery,
	})

	got, _ := s.Store().Get("o1")
	if got.KitchenStatus != domain.KitchenStatusReadyForDelivery {
		t.Errorf("expected ready_for_delivery, got %s", got.KitchenStatus)
	}
	recent := notices.Recent()
	if len(recent) != 1 || recent[0].Kind != notify.KindStatus {
		t.Errorf("expected status notice, got %+v", recent)
	}
}

func TestStatusChangedForUnknownOrderOnlyNotifies(t *testing.T) {
	ch := newFakeChannel()
	s, _ := newTestService(t, ch, &mockFetcher{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ch.push(channel.Event{
		Name:    channel.EventOrderStatusChanged,
		OrderID: "ghost",
		Status:  domain.KitchenStatusAccepted,
	})

	if s.Store().Len() != 0 {
		t.Errorf("unknown order must not be inserted, got %d", s.Store().Len())
	}
}

func TestNewOrderNoticeDoesNotTouchSnapshot(t *testing.T) {
	ch := newFakeChannel()
	s, notices := newTestService(t, ch, &mockFetcher{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o := domain.Order{ID: "o1", Priority: domain.PriorityUrgent, CreatedAt: time.Now()}
	ch.push(channel.Event{Name: channel.EventNewOrderNotice, Order: &o, OrderID: "o1"})

	if s.Store().Len() != 0 {
		t.Errorf("notice event must not mutate the list, got %d orders", s.Store().Len())
	}
	recent := notices.Recent()
	if len(recent) != 1 || !recent[0].Urgent {
		t.Errorf("expected urgent new-order notice, got %+v", recent)
	}
}

func TestStopUnsubscribesAndSeals(t *testing.T) {
	ch := newFakeChannel()
	fetcher := &mockFetcher{}
	s, _ := newTestService(t, ch, fetcher)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Stop()

	if len(ch.handlers) != 0 {
		t.Errorf("expected all handlers unsubscribed, got %v", ch.handlers)
	}
	before := fetcher.calls
	ch.push(channel.Event{Name: channel.EventOrdersRefresh})
	if fetcher.calls != before {
		t.Error("refresh after stop must not refetch")
	}
}

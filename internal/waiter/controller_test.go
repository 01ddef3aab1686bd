package waiter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"expo/internal/domain"
	"expo/internal/dto"
	"expo/internal/errors"
	"expo/internal/notify"
	"expo/internal/snapshot"
)

type mockCommands struct {
	created      []dto.CreateOrderRequest
	cancelled    []string
	statusChange []string
	err          error
}

func (m *mockCommands) CreateOrder(req dto.CreateOrderRequest) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, req)
	return nil
}

func (m *mockCommands) CancelOrder(orderID string) error {
	if m.err != nil {
		return m.err
	}
	m.cancelled = append(m.cancelled, orderID)
	return nil
}

func (m *mockCommands) ChangeOrderStatus(orderID string, status domain.KitchenStatus) error {
	if m.err != nil {
		return m.err
	}
	m.statusChange = append(m.statusChange, orderID+":"+string(status))
	return nil
}

type mockDirectory struct {
	waiters []domain.Waiter
	err     error
}

func (m *mockDirectory) FetchActiveWaiters(ctx context.Context) ([]domain.Waiter, error) {
	return m.waiters, m.err
}

func newTestController(t *testing.T, cmds Commands, dir WaiterDirectory, seed ...domain.Order) *Controller {
	t.Helper()
	store := snapshot.New()
	store.ReplaceAll(seed)
	notices := notify.NewCenter(zap.NewNop(), 10)
	service := NewService(newFakeChannel(), &mockFetcher{}, store, notices, zap.NewNop())
	return NewController(service, cmds, dir, notices, zap.NewNop())
}

func TestListOrdersByWaiter(t *testing.T) {
	base := time.Now()
	ctrl := newTestController(t, &mockCommands{}, &mockDirectory{},
		domain.Order{ID: "o1", WaiterID: "w1", CreatedAt: base.Add(time.Minute)},
		domain.Order{ID: "o2", WaiterID: "w2", CreatedAt: base},
	)
	srv := httptest.NewServer(ctrl.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/?waiterId=w2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	var views []dto.OrderView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 1 || views[0].ID != "o2" {
		t.Errorf("expected only o2, got %+v", views)
	}
}

func TestCreateOrderAccepted(t *testing.T) {
	cmds := &mockCommands{}
	ctrl := newTestController(t, cmds, &mockDirectory{})
	srv := httptest.NewServer(ctrl.Routes())
	defer srv.Close()

	body, _ := json.Marshal(dto.CreateOrderRequest{
		IdentificationType: domain.IdentifyByName,
		CustomerName:       strPtr("Ana"),
		Items:              []dto.OrderItemRequest{{Name: "Espresso", Price: 3, Quantity: 1}},
		WaiterID:           "w1",
	})
	resp, err := http.Post(srv.URL+"/", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if len(cmds.created) != 1 || cmds.created[0].WaiterID != "w1" {
		t.Errorf("expected one create command, got %+v", cmds.created)
	}
}

func TestCreateOrderValidationErrorBody(t *testing.T) {
	cmds := &mockCommands{err: errors.NewValidationError("invalid order request",
		errors.ValidationDetail{Field: "items", Message: "at least one item is required"})}
	ctrl := newTestController(t, cmds, &mockDirectory{})
	srv := httptest.NewServer(ctrl.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/", "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var body struct {
		Error   string                    `json:"error"`
		Details []errors.ValidationDetail `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "VALIDATION_ERROR" || len(body.Details) != 1 {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestCancelOrder(t *testing.T) {
	cmds := &mockCommands{}
	ctrl := newTestController(t, cmds, &mockDirectory{})
	srv := httptest.NewServer(ctrl.Routes())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/o7", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if len(cmds.cancelled) != 1 || cmds.cancelled[0] != "o7" {
		t.Errorf("expected cancel for o7, got %v", cmds.cancelled)
	}
}

func TestChangeStatus(t *testing.T) {
	cmds := &mockCommands{}
	ctrl := newTestController(t, cmds, &mockDirectory{})
	srv := httptest.NewServer(ctrl.Routes())
	defer srv.Close()

	body, _ := json.Marshal(dto.ChangeStatusRequest{Status: domain.KitchenStatusAccepted})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/o3/status", bytes.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if len(cmds.statusChange) != 1 || cmds.statusChange[0] != "o3:accepted" {
		t.Errorf("unexpected commands %v", cmds.statusChange)
	}
}

func TestChannelDownMapsTo503(t *testing.T) {
	cmds := &mockCommands{err: errors.NewUnavailableError("channel disconnected", nil)}
	ctrl := newTestController(t, cmds, &mockDirectory{})
	srv := httptest.NewServer(ctrl.Routes())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/o1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestDayStats(t *testing.T) {
	now := time.Date(2026, 8, 29, 13, 0, 0, 0, time.UTC)
	ctrl := newTestController(t, &mockCommands{},
		&mockDirectory{waiters: []domain.Waiter{{ID: "w1"}, {ID: "w2"}}},
		domain.Order{ID: "o1", Total: 12.5, CreatedAt: now.Add(-time.Hour)},
		domain.Order{ID: "o2", Total: 7.5, CreatedAt: now.Add(-2 * time.Hour)},
		domain.Order{ID: "old", Total: 99, CreatedAt: now.AddDate(0, 0, -2)},
	)
	ctrl.now = func() time.Time { return now }
	srv := httptest.NewServer(ctrl.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	var stats dto.DayStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.OrdersToday != 2 || stats.SalesToday != 20 || stats.ActiveWaiters != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestDayStatsSurvivesDirectoryFailure(t *testing.T) {
	now := time.Now()
	ctrl := newTestController(t, &mockCommands{},
		&mockDirectory{err: errors.NewUnavailableError("upstream unreachable", nil)},
		domain.Order{ID: "o1", Total: 10, CreatedAt: now.Add(-time.Minute)},
	)
	srv := httptest.NewServer(ctrl.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var stats dto.DayStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.OrdersToday != 1 || stats.ActiveWaiters != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func strPtr(s string) *string { return &s }

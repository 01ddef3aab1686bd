package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"expo/internal/domain"
)

// OrderAPI is an in-process stand-in for the order-management service. It
// keeps orders in a map, applies transitions the way the real backend does,
// and records every call so tests can assert on dispatch behavior.
type OrderAPI struct {
	srv *httptest.Server

	mu      sync.Mutex
	orders  map[string]domain.Order
	waiters []domain.Waiter
	calls   []string

	// ForceStatus, when non-zero, makes every endpoint reply with that
	// HTTP status and an error body.
	ForceStatus int
	// Delay stalls every handler, for timeout tests.
	Delay time.Duration
}

func NewOrderAPI(t *testing.T) *OrderAPI {
	t.Helper()
	a := &OrderAPI{orders: make(map[string]domain.Order)}

	r := chi.NewRouter()
	r.Get("/api/kitchen/orders", a.handleList)
	r.Put("/api/kitchen/orders/{id}/accept", a.transition("accept"))
	r.Put("/api/kitchen/orders/{id}/prepare", a.transition("prepare"))
	r.Put("/api/kitchen/orders/{id}/ready", a.transition("ready"))
	r.Put("/api/kitchen/orders/{id}/priority", a.handlePriority)
	r.Put("/api/kitchen/orders/{id}/notes", a.handleNotes)
	r.Get("/api/waiters/active", a.handleWaiters)

	a.srv = httptest.NewServer(r)
	t.Cleanup(a.srv.Close)
	return a
}

func (a *OrderAPI) URL() string { return a.srv.URL }

// Seed installs an order.
func (a *OrderAPI) Seed(orders ...domain.Order) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, o := range orders {
		a.orders[o.ID] = o
	}
}

// SeedWaiters installs the staff roster.
func (a *OrderAPI) SeedWaiters(ws ...domain.Waiter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.waiters = append(a.waiters, ws...)
}

// Calls returns the recorded call log, e.g. "accept:o1".
func (a *OrderAPI) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.calls))
	copy(out, a.calls)
	return out
}

// Order returns the current upstream state of an order.
func (a *OrderAPI) Order(id string) (domain.Order, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.orders[id]
	return o, ok
}

func (a *OrderAPI) intercept(w http.ResponseWriter) bool {
	if a.Delay > 0 {
		time.Sleep(a.Delay)
	}
	if a.ForceStatus != 0 {
		writeJSON(w, a.ForceStatus, map[string]string{"error": "forced failure"})
		return true
	}
	return false
}

func (a *OrderAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if a.intercept(w) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, "list")

	status := r.URL.Query().Get("status")
	priority := r.URL.Query().Get("priority")
	waiter := r.URL.Query().Get("waiter")

	out := []domain.Order{}
	for _, o := range a.orders {
		if status != "" && string(o.KitchenStatus) != status {
			continue
		}
		if priority != "" && string(o.Priority) != priority {
			continue
		}
		if waiter != "" && o.WaiterID != waiter {
			continue
		}
		out = append(out, o)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *OrderAPI) transition(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.intercept(w) {
			return
		}
		id := chi.URLParam(r, "id")
		a.mu.Lock()
		defer a.mu.Unlock()
		a.calls = append(a.calls, kind+":"+id)

		o, ok := a.orders[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		now := time.Now().UTC()
		switch kind {
		case "accept":
			o.KitchenStatus = domain.KitchenStatusAccepted
			o.AcceptedAt = &now
		case "prepare":
			o.KitchenStatus = domain.KitchenStatusInPreparation
			o.PreparingAt = &now
		case "ready":
			o.KitchenStatus = domain.KitchenStatusReadyForDelivery
			o.ReadyAt = &now
		}
		a.orders[id] = o
		writeJSON(w, http.StatusOK, o)
	}
}

func (a *OrderAPI) handlePriority(w http.ResponseWriter, r *http.Request) {
	if a.intercept(w) {
		return
	}
	id := chi.URLParam(r, "id")
	var body struct {
		Priority domain.Priority `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.Priority.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid priority"})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, "priority:"+id)
	o, ok := a.orders[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	o.Priority = body.Priority
	a.orders[id] = o
	writeJSON(w, http.StatusOK, o)
}

func (a *OrderAPI) handleNotes(w http.ResponseWriter, r *http.Request) {
	if a.intercept(w) {
		return
	}
	id := chi.URLParam(r, "id")
	var body struct {
		KitchenNotes string `json:"kitchenNotes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, "notes:"+id)
	o, ok := a.orders[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	o.KitchenNotes = body.KitchenNotes
	a.orders[id] = o
	writeJSON(w, http.StatusOK, o)
}

func (a *OrderAPI) handleWaiters(w http.ResponseWriter, r *http.Request) {
	if a.intercept(w) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, "waiters")
	writeJSON(w, http.StatusOK, a.waiters)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

package domain

import (
	"testing"
	"time"
)

func TestKitchenStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to KitchenStatus
		want     bool
	}{
		{KitchenStatusNew, KitchenStatusAccepted, true},
		{KitchenStatusNew, KitchenStatusInPreparation, true},
		{KitchenStatusNew, KitchenStatusReadyForDelivery, true},
		{KitchenStatusAccepted, KitchenStatusInPreparation, true},
		{KitchenStatusInPreparation, KitchenStatusReadyForDelivery, true},
		{KitchenStatusAccepted, KitchenStatusNew, false},
		{KitchenStatusReadyForDelivery, KitchenStatusInPreparation, false},
		{KitchenStatusAccepted, KitchenStatusAccepted, false},
		{KitchenStatus("bogus"), KitchenStatusAccepted, false},
		{KitchenStatusNew, KitchenStatus("bogus"), false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestKitchenStatusLabel(t *testing.T) {
	tests := []struct {
		status KitchenStatus
		want   string
	}{
		{KitchenStatusNew, "pending"},
		{KitchenStatusAccepted, "accepted"},
		{KitchenStatusInPreparation, "preparing"},
		{KitchenStatusReadyForDelivery, "ready"},
	}

	for _, tt := range tests {
		if got := tt.status.Label(); got != tt.want {
			t.Errorf("Label(%s) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestPriorityColor(t *testing.T) {
	if PriorityUrgent.Color() == PriorityNormal.Color() {
		t.Error("urgent and normal must map to distinct colors")
	}
	// Unknown priorities fall back to the normal color so cards always render.
	if Priority("??").Color() != PriorityNormal.Color() {
		t.Error("unknown priority should use the normal color")
	}
}

func TestPriorityValid(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent} {
		if !p.Valid() {
			t.Errorf("%s should be valid", p)
		}
	}
	if Priority("asap").Valid() {
		t.Error("asap should not be valid")
	}
}

func TestOrderStages(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	accepted := created.Add(2 * time.Minute)
	preparing := created.Add(3 * time.Minute)
	ready := created.Add(15 * time.Minute)

	o := Order{CreatedAt: created, AcceptedAt: &accepted, PreparingAt: &preparing, ReadyAt: &ready}
	st := o.Stages(created.Add(time.Hour))

	if st.ToAccept == nil || *st.ToAccept != 2*time.Minute {
		t.Errorf("ToAccept = %v, want 2m", st.ToAccept)
	}
	if st.InPreparation == nil || *st.InPreparation != 12*time.Minute {
		t.Errorf("InPreparation = %v, want 12m", st.InPreparation)
	}
	if st.ToFinalize == nil || *st.ToFinalize != 15*time.Minute {
		t.Errorf("ToFinalize = %v, want 15m", st.ToFinalize)
	}
}

func TestOrderStagesInFlight(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	preparing := created.Add(5 * time.Minute)
	now := created.Add(9 * time.Minute)

	o := Order{CreatedAt: created, PreparingAt: &preparing}
	st := o.Stages(now)

	if st.ToAccept != nil {
		t.Error("ToAccept should be nil before acceptance")
	}
	if st.InPreparation == nil || *st.InPreparation != 4*time.Minute {
		t.Errorf("InPreparation = %v, want 4m", st.InPreparation)
	}
	if st.ToFinalize != nil {
		t.Error("ToFinalize should be nil before ready")
	}
}

func TestOrderElapsed(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	o := Order{CreatedAt: created}

	if got := o.Elapsed(created.Add(90 * time.Second)); got != 90*time.Second {
		t.Errorf("Elapsed = %v, want 90s", got)
	}
	if got := o.Elapsed(created.Add(-time.Minute)); got != 0 {
		t.Errorf("Elapsed before creation = %v, want 0", got)
	}
	if got := (Order{}).Elapsed(created); got != 0 {
		t.Errorf("Elapsed with zero CreatedAt = %v, want 0", got)
	}
}

func TestOrderClientInfo(t *testing.T) {
	table := 7
	name := "Ana"

	tests := []struct {
		name  string
		order Order
		want  string
	}{
		{
			name:  "by table with location",
			order: Order{Identification: IdentifyByTable, TableNumber: &table, CustomerLocation: "patio"},
			want:  "Table 7 · patio",
		},
		{
			name:  "by name",
			order: Order{Identification: IdentifyByName, CustomerName: &name},
			want:  "Ana",
		},
		{
			name:  "table identification without number falls back to name",
			order: Order{Identification: IdentifyByTable, CustomerName: &name},
			want:  "Ana",
		},
		{
			name:  "nothing known",
			order: Order{},
			want:  "Walk-in",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.order.ClientInfo(); got != tt.want {
				t.Errorf("ClientInfo() = %q, want %q", got, tt.want)
			}
		})
	}
}

package models

import (
	"errors"
	"testing"
	"time"

	"github.com/bahariworks/procurement_backend/utils"
)

// NOTE: These tests are intentionally DB-free. The transition rule and the
// delivery-state derivation are pure; the locking around them is covered by
// the regression tests (INTEGRATION_TESTS=1).

func TestValidateShipmentTransition_ForwardOnly(t *testing.T) {
	cases := []struct {
		from, to ShipmentStatus
		ok       bool
	}{
		{ShipmentStatusPending, ShipmentStatusPrepared, true},
		{ShipmentStatusPending, ShipmentStatusShipped, true},
		{ShipmentStatusPending, ShipmentStatusDelivered, true},
		{ShipmentStatusPrepared, ShipmentStatusShipped, true},
		{ShipmentStatusShipped, ShipmentStatusDelivered, true},
		{ShipmentStatusDelivered, ShipmentStatusReceived, true},

		// No going back.
		{ShipmentStatusPrepared, ShipmentStatusPending, false},
		{ShipmentStatusShipped, ShipmentStatusPrepared, false},
		{ShipmentStatusDelivered, ShipmentStatusShipped, false},
		{ShipmentStatusReceived, ShipmentStatusDelivered, false},

		// Equal rank only for in-transit pings.
		{ShipmentStatusShipped, ShipmentStatusShipped, true},
		{ShipmentStatusPending, ShipmentStatusPending, false},
		{ShipmentStatusPrepared, ShipmentStatusPrepared, false},
		{ShipmentStatusDelivered, ShipmentStatusDelivered, false},
		{ShipmentStatusReceived, ShipmentStatusReceived, false},
	}
	for _, c := range cases {
		err := ValidateShipmentTransition(c.from, c.to)
		if c.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", c.from, c.to, err)
		}
		if !c.ok && err == nil {
			t.Errorf("%s -> %s: expected rejection", c.from, c.to)
		}
	}
}

func TestValidateShipmentTransition_AbsorbingStates(t *testing.T) {
	live := []ShipmentStatus{
		ShipmentStatusPending, ShipmentStatusPrepared, ShipmentStatusShipped,
		ShipmentStatusDelivered, ShipmentStatusReceived,
	}
	for _, from := range live {
		if err := ValidateShipmentTransition(from, ShipmentStatusCancelled); err != nil {
			t.Errorf("%s -> Cancelled: unexpected error %v", from, err)
		}
		if err := ValidateShipmentTransition(from, ShipmentStatusReturned); err != nil {
			t.Errorf("%s -> Returned: unexpected error %v", from, err)
		}
	}

	// Once absorbed, every transition is rejected, even to another
	// absorbing state.
	all := append(live, ShipmentStatusReturned, ShipmentStatusCancelled)
	for _, from := range []ShipmentStatus{ShipmentStatusReturned, ShipmentStatusCancelled} {
		for _, to := range all {
			err := ValidateShipmentTransition(from, to)
			var transitionErr *utils.InvalidStatusTransitionError
			if !errors.As(err, &transitionErr) {
				t.Errorf("%s -> %s: expected InvalidStatusTransitionError, got %v", from, to, err)
			}
		}
	}
}

func TestValidateShipmentTransition_UnknownStatus(t *testing.T) {
	if err := ValidateShipmentTransition(ShipmentStatusPending, ShipmentStatus("Lost")); err == nil {
		t.Fatal("expected rejection of unknown status")
	}
}

func TestNextDeliveryStatus(t *testing.T) {
	cases := []struct {
		name                               string
		quantity, activeShipped, delivered int
		want                               DeliveryStatus
	}{
		{"nothing shipped", 10, 0, 0, DeliveryStatusPending},
		{"partial", 10, 4, 0, DeliveryStatusPartiallyShipped},
		{"full quantity on the road", 10, 10, 0, DeliveryStatusShipped},
		{"over-shipped counts as shipped", 10, 12, 0, DeliveryStatusShipped},
		{"partially delivered still shipped", 10, 10, 6, DeliveryStatusShipped},
		{"fully delivered", 10, 10, 10, DeliveryStatusDelivered},
		{"cancelled shipments released", 10, 0, 0, DeliveryStatusPending},
	}
	for _, c := range cases {
		if got := NextDeliveryStatus(c.quantity, c.activeShipped, c.delivered); got != c.want {
			t.Errorf("%s: got %s, want %s", c.name, got, c.want)
		}
	}
}

func TestGenerateInspectionNumber_Deterministic(t *testing.T) {
	date := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	got := GenerateInspectionNumber(date, 42)
	want := "BA/INSP/20260315/000042"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	// Same inputs, same number: concurrent triggers cannot disagree.
	if again := GenerateInspectionNumber(date, 42); again != got {
		t.Fatalf("number not deterministic: %q vs %q", got, again)
	}
}

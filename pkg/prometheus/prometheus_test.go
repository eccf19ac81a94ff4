package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/zoobzio/beacon"
	"github.com/zoobzio/beacon/beacontest"
)

func newProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(prometheus.NewRegistry(), "beacon")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg, "beacon"); err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := New(reg, "beacon"); err == nil {
		t.Error("expected error registering the same collectors twice")
	}
}

func TestProvider_Counters(t *testing.T) {
	p := newProvider(t)

	p.OnStateChange(beacon.StateCreated, beacon.StateActive)
	p.OnSetterSkipped(beacon.FieldOffset)
	p.OnEventDelivered(beacon.EventClick)
	p.OnEventDelivered(beacon.EventClick)
	p.OnDeclarationReceived()

	if v := testutil.ToFloat64(p.transitions.WithLabelValues("created", "active")); v != 1 {
		t.Errorf("expected 1 transition, got %v", v)
	}
	if v := testutil.ToFloat64(p.skipped.WithLabelValues(beacon.FieldOffset)); v != 1 {
		t.Errorf("expected 1 skip, got %v", v)
	}
	if v := testutil.ToFloat64(p.events.WithLabelValues(beacon.EventClick)); v != 2 {
		t.Errorf("expected 2 clicks, got %v", v)
	}
	if v := testutil.ToFloat64(p.declarations); v != 1 {
		t.Errorf("expected 1 declaration, got %v", v)
	}
}

func TestProvider_Histograms(t *testing.T) {
	p := newProvider(t)

	p.OnCreateSuccess(10 * time.Millisecond)
	p.OnCreateFailure(20 * time.Millisecond)
	p.OnSetterSuccess(beacon.FieldTitle, time.Millisecond)
	p.OnSetterFailure(beacon.FieldTitle, time.Millisecond)
	p.OnDeclarationFailure("validate", time.Millisecond)

	if n := testutil.CollectAndCount(p.creates); n != 2 {
		t.Errorf("expected 2 create series, got %d", n)
	}
	if n := testutil.CollectAndCount(p.setters); n != 2 {
		t.Errorf("expected 2 setter series, got %d", n)
	}
	if n := testutil.CollectAndCount(p.declarationFailure); n != 1 {
		t.Errorf("expected 1 failure series, got %d", n)
	}
}

func TestProvider_BindingGauge(t *testing.T) {
	p := newProvider(t)

	p.OnBindingStateChange(beacon.BindingLoading, beacon.BindingHealthy)
	p.OnBindingStateChange(beacon.BindingHealthy, beacon.BindingDegraded)

	if v := testutil.ToFloat64(p.bindings.WithLabelValues("healthy")); v != 0 {
		t.Errorf("expected 0 healthy, got %v", v)
	}
	if v := testutil.ToFloat64(p.bindings.WithLabelValues("degraded")); v != 1 {
		t.Errorf("expected 1 degraded, got %v", v)
	}
}

func TestProvider_WiredIntoMarker(t *testing.T) {
	p := newProvider(t)
	m, _ := beacontest.NewTestMarker(t, "depot")
	m.Metrics(p)

	if err := m.Apply(context.Background(), beacon.Spec{Position: &beacon.LngLat{Lng: 1, Lat: 2}}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if v := testutil.ToFloat64(p.transitions.WithLabelValues("uninitialized", "created")); v != 1 {
		t.Errorf("expected creation transition, got %v", v)
	}
	if v := testutil.ToFloat64(p.transitions.WithLabelValues("created", "active")); v != 1 {
		t.Errorf("expected activation transition, got %v", v)
	}
	if n := testutil.CollectAndCount(p.creates); n != 1 {
		t.Errorf("expected a create observation, got %d series", n)
	}
}

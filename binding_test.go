package beacon_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/beacon"
	"github.com/zoobzio/beacon/beacontest"
	"github.com/zoobzio/clockz"
)

const depotJSON = `{"marker": {"position": {"lng": 116.397, "lat": 39.908}, "title": "%s"}}`

func doc(title string) []byte {
	return []byte(strings.Replace(depotJSON, "%s", title, 1))
}

type countingMetrics struct {
	beacon.NoOpMetricsProvider
	received atomic.Int32
	failures atomic.Int32
}

func (m *countingMetrics) OnDeclarationReceived() { m.received.Add(1) }
func (m *countingMetrics) OnDeclarationFailure(_ string, _ time.Duration) {
	m.failures.Add(1)
}

func TestBinding_AppliesInitialDeclaration(t *testing.T) {
	ctx := context.Background()
	m, sdk := beacontest.NewTestMarker(t, "depot")
	b, ch := beacontest.NewTestBinding(t, m)

	ch <- doc("HQ")
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	beacontest.RequireBindingState(t, b, beacon.BindingHealthy)
	if len(sdk.Creates()) != 1 {
		t.Fatalf("expected 1 create, got %d", len(sdk.Creates()))
	}
	if got := sdk.Creates()[0][beacon.FieldTitle]; got != "HQ" {
		t.Errorf("expected title HQ, got %v", got)
	}
	decl, ok := b.Current()
	if !ok {
		t.Fatal("expected a current declaration")
	}
	if *decl.Marker.Title != "HQ" {
		t.Errorf("expected current title HQ, got %q", *decl.Marker.Title)
	}
}

func TestBinding_RollbackOnValidationFailure(t *testing.T) {
	ctx := context.Background()
	m, sdk := beacontest.NewTestMarker(t, "depot")
	b, ch := beacontest.NewTestBinding(t, m)

	ch <- doc("HQ")
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ch <- []byte(`{"marker": {"position": {"lng": 500, "lat": 0}}}`)
	b.Process(ctx)

	beacontest.RequireBindingState(t, b, beacon.BindingDegraded)
	if b.LastError() == nil {
		t.Error("expected a validation error")
	}
	decl, _ := b.Current()
	if *decl.Marker.Title != "HQ" {
		t.Errorf("expected previous declaration to be kept, got %q", *decl.Marker.Title)
	}
	if n := len(sdk.Remote().CallsTo("SetPosition")); n != 0 {
		t.Errorf("expected no SetPosition calls, got %d", n)
	}
}

func TestBinding_RecoverFromDegraded(t *testing.T) {
	ctx := context.Background()
	m, sdk := beacontest.NewTestMarker(t, "depot")
	b, ch := beacontest.NewTestBinding(t, m)

	ch <- doc("HQ")
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	ch <- []byte(`{not json`)
	b.Process(ctx)
	beacontest.RequireBindingState(t, b, beacon.BindingDegraded)

	ch <- doc("Warehouse")
	b.Process(ctx)

	beacontest.RequireBindingState(t, b, beacon.BindingHealthy)
	if b.LastError() != nil {
		t.Errorf("expected error to clear on recovery, got %v", b.LastError())
	}
	if n := b.ErrorCount(); n != 1 {
		t.Errorf("expected the failure to stay counted after recovery, got %d", n)
	}
	calls := sdk.Remote().CallsTo("SetTitle")
	if len(calls) != 1 || calls[0].Args[0] != "Warehouse" {
		t.Errorf("expected SetTitle(Warehouse), got %v", calls)
	}
}

func TestBinding_EmptyOnInitialFailure(t *testing.T) {
	ctx := context.Background()
	m, _ := beacontest.NewTestMarker(t, "depot")
	b, ch := beacontest.NewTestBinding(t, m)

	ch <- []byte(`{not json`)
	if err := b.Start(ctx); err == nil {
		t.Fatal("expected initial decode error")
	}
	beacontest.RequireBindingState(t, b, beacon.BindingEmpty)
	if _, ok := b.Current(); ok {
		t.Error("expected no current declaration")
	}
}

func TestBinding_CannotStartTwice(t *testing.T) {
	ctx := context.Background()
	m, _ := beacontest.NewTestMarker(t, "depot")
	b, ch := beacontest.NewTestBinding(t, m)

	ch <- doc("HQ")
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := b.Start(ctx); err == nil {
		t.Error("expected error on second Start")
	}
}

func TestBinding_ApplyFailsOnDestroyedMarker(t *testing.T) {
	ctx := context.Background()
	m, _ := beacontest.NewTestMarker(t, "depot")
	b, ch := beacontest.NewTestBinding(t, m)
	if err := m.Destroy(ctx); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	ch <- doc("HQ")
	err := b.Start(ctx)
	if !errors.Is(err, beacon.ErrDestroyed) {
		t.Errorf("expected ErrDestroyed, got %v", err)
	}
}

func TestBinding_YAMLCodecAndInfoWindows(t *testing.T) {
	ctx := context.Background()
	m, _ := beacontest.NewTestMarker(t, "depot")
	ch := make(chan []byte, 2)

	var built []*beacontest.InfoWindow
	b := beacon.NewBinding(beacon.NewSyncChannelWatcher(ch), m).
		SyncMode().
		Codec(beacon.YAMLCodec{}).
		InfoWindows(func(spec beacon.InfoWindowSpec) beacon.InfoWindow {
			iw := beacontest.NewInfoWindow(spec)
			built = append(built, iw)
			return iw
		})

	ch <- []byte(`
marker:
  position: {lng: 116.397, lat: 39.908}
  icon: https://example.com/pin.png
infoWindows:
  - content: "<b>Depot</b>"
    anchor: bottom-center
`)
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if len(built) != 1 {
		t.Fatalf("expected 1 info window, got %d", len(built))
	}
	if built[0].Host() != m.Handle() {
		t.Error("expected the info window to be bound to the marker")
	}
	if icon, _ := m.Values()[beacon.FieldIcon].(beacon.Icon); icon.Image != "https://example.com/pin.png" {
		t.Errorf("expected icon shorthand to decode, got %+v", icon)
	}
}

func TestBinding_Debounce_CoalescesRapidChanges(t *testing.T) {
	clock := clockz.NewFakeClock()
	ch := make(chan []byte, 10)
	m, sdk := beacontest.NewTestMarker(t, "depot")
	metrics := &countingMetrics{}

	ch <- doc("v1")
	b := beacon.NewBinding(beacon.NewChannelWatcher(ch), m).
		Debounce(100 * time.Millisecond).
		Clock(clock).
		Metrics(metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ch <- doc("v2")
	ch <- doc("v3")
	ch <- doc("v4")
	time.Sleep(10 * time.Millisecond)

	if n := len(sdk.Remote().CallsTo("SetTitle")); n != 0 {
		t.Errorf("expected no setter while debouncing, got %d", n)
	}

	clock.Advance(150 * time.Millisecond)
	clock.BlockUntilReady()

	if !beacontest.WaitFor(t, time.Second, func() bool {
		return len(sdk.Remote().CallsTo("SetTitle")) == 1
	}) {
		t.Fatalf("expected a single coalesced SetTitle, got %d", len(sdk.Remote().CallsTo("SetTitle")))
	}
	if got := sdk.Remote().CallsTo("SetTitle")[0].Args[0]; got != "v4" {
		t.Errorf("expected latest title v4, got %v", got)
	}
	if metrics.received.Load() != 4 {
		t.Errorf("expected 4 received declarations, got %d", metrics.received.Load())
	}
}

func TestBinding_StopsWithContext(t *testing.T) {
	ch := make(chan []byte, 1)
	m, _ := beacontest.NewTestMarker(t, "depot")
	stopped := make(chan beacon.BindingState, 1)

	ch <- doc("HQ")
	b := beacon.NewBinding(beacon.NewChannelWatcher(ch), m).
		OnStop(func(s beacon.BindingState) { stopped <- s })

	ctx, cancel := context.WithCancel(context.Background())
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()

	select {
	case s := <-stopped:
		if s != beacon.BindingHealthy {
			t.Errorf("expected final state healthy, got %s", s)
		}
	case <-time.After(time.Second):
		t.Fatal("expected OnStop after cancellation")
	}
}

func TestBinding_StartupTimeout(t *testing.T) {
	m, _ := beacontest.NewTestMarker(t, "depot")
	b := beacon.NewBinding(beacon.NewChannelWatcher(make(chan []byte)), m).
		StartupTimeout(20 * time.Millisecond)

	err := b.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "startup timeout") {
		t.Errorf("expected startup timeout, got %v", err)
	}
}

// Package beacontest provides test utilities and helpers for beacon markers:
// a recording in-memory SDK, a recording info window, and wait helpers.
package beacontest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/beacon"
)

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}

// WaitForState waits until the marker reaches the expected state or timeout occurs.
func WaitForState(t *testing.T, m *beacon.Marker, expected beacon.State, timeout time.Duration) bool {
	t.Helper()
	return WaitFor(t, timeout, func() bool {
		return m.State() == expected
	})
}

// RequireState fails the test immediately if the marker is not in the expected state.
func RequireState(t *testing.T, m *beacon.Marker, expected beacon.State) {
	t.Helper()
	if got := m.State(); got != expected {
		t.Fatalf("expected state %s, got %s", expected, got)
	}
}

// RequireBindingState fails the test immediately if the binding is not in
// the expected state.
func RequireBindingState(t *testing.T, b *beacon.Binding, expected beacon.BindingState) {
	t.Helper()
	if got := b.State(); got != expected {
		t.Fatalf("expected binding state %s, got %s", expected, got)
	}
}

// NewTestMarker creates a sync-mode marker over a fresh recording SDK and
// destroys it when the test ends.
func NewTestMarker(t *testing.T, name string) (*beacon.Marker, *SDK) {
	t.Helper()
	sdk := NewSDK()
	m := beacon.New(name, sdk).SyncMode()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = m.Destroy(ctx) //nolint:errcheck // Best-effort cleanup
	})
	return m, sdk
}

// NewTestBinding creates a sync-mode binding for m fed by the returned channel.
func NewTestBinding(t *testing.T, m *beacon.Marker) (*beacon.Binding, chan<- []byte) {
	t.Helper()
	ch := make(chan []byte, 10)
	b := beacon.NewBinding(beacon.NewSyncChannelWatcher(ch), m).SyncMode()
	return b, ch
}

// InfoWindow is a recording beacon.InfoWindow.
type InfoWindow struct {
	Spec beacon.InfoWindowSpec

	mu    sync.Mutex
	host  *beacon.Handle[beacon.Remote]
	opens int
}

// NewInfoWindow creates an unbound recording info window.
func NewInfoWindow(spec beacon.InfoWindowSpec) *InfoWindow {
	return &InfoWindow{Spec: spec}
}

// SetHost records the host handle.
func (w *InfoWindow) SetHost(h *beacon.Handle[beacon.Remote]) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.host = h
}

// Open records an open on the current host.
func (w *InfoWindow) Open(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.host == nil {
		return beacon.ErrNotCreated
	}
	w.opens++
	return nil
}

// Host returns the current host handle, or nil.
func (w *InfoWindow) Host() *beacon.Handle[beacon.Remote] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.host
}

// Opens returns how many times the window was opened.
func (w *InfoWindow) Opens() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.opens
}

var _ beacon.InfoWindow = (*InfoWindow)(nil)

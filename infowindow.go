package beacon

import (
	"context"
	"fmt"

	"github.com/zoobzio/capitan"
)

// SetInfoWindows declares the marker's child info windows. A marker hosts at
// most one: when more are given the first is bound, the rest are ignored and
// a ConfigurationError is recorded and signalled. Passing none detaches the
// current info window.
//
// The bound window is pointed at the marker's handle as soon as one exists,
// and opens on click unless openInfoWindow is declared false.
func (m *Marker) SetInfoWindows(ctx context.Context, windows ...InfoWindow) {
	if len(windows) > 1 {
		err := &ConfigurationError{
			Marker: m.name,
			Reason: fmt.Sprintf("a marker hosts at most one info window, got %d", len(windows)),
		}
		m.errs.record(err)
		capitan.Emit(ctx, ConfigError,
			KeyMarker.Field(m.name),
			KeyError.Field(err.Error()),
			KeyCount.Field(len(windows)),
		)
	}

	var next InfoWindow
	if len(windows) > 0 {
		next = windows[0]
	}

	m.mu.Lock()
	if m.State() == StateDestroyed {
		m.mu.Unlock()
		return
	}
	prev := m.infoWindow
	m.infoWindow = next
	h := m.resolver.Handle()
	m.mu.Unlock()

	if prev != nil && prev != next {
		prev.SetHost(nil)
	}
	if next != nil && h != nil {
		next.SetHost(h)
	}
}

// InfoWindow returns the bound info window, or nil.
func (m *Marker) InfoWindow() InfoWindow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.infoWindow
}

// OpenInfoWindow opens the bound info window on the marker.
func (m *Marker) OpenInfoWindow(ctx context.Context) error {
	iw := m.InfoWindow()
	if iw == nil {
		return nil
	}
	if m.Handle() == nil {
		return ErrNotCreated
	}
	return iw.Open(ctx)
}

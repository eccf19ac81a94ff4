package wsbridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/zoobzio/beacon"
)

// laneInfoWindow orders info window operations on the host marker's handle.
const laneInfoWindow = "infoWindow"

// InfoWindow is a beacon.InfoWindow opened by the map host.
type InfoWindow struct {
	bridge *Bridge
	spec   beacon.InfoWindowSpec

	mu   sync.Mutex
	host *beacon.Handle[beacon.Remote]
}

// NewInfoWindow creates an info window for spec. It opens once bound to a
// marker created by b.
func (b *Bridge) NewInfoWindow(spec beacon.InfoWindowSpec) *InfoWindow {
	return &InfoWindow{bridge: b, spec: spec}
}

// SetHost binds the info window to its host marker's handle.
func (w *InfoWindow) SetHost(h *beacon.Handle[beacon.Remote]) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.host = h
}

// Open opens the info window on its host marker once the marker exists.
func (w *InfoWindow) Open(ctx context.Context) error {
	w.mu.Lock()
	h := w.host
	w.mu.Unlock()
	if h == nil {
		return beacon.ErrNotCreated
	}
	op := h.Enqueue(laneInfoWindow, func(r beacon.Remote) error {
		m, ok := r.(*RemoteMarker)
		if !ok || m.bridge != w.bridge {
			return fmt.Errorf("remote %T was not created by this bridge", r)
		}
		_, err := w.bridge.call(context.WithoutCancel(ctx), MethodOpenInfoWindow, m.id, InfoWindowArgs{
			Marker:   m.id,
			Content:  w.spec.Content,
			Offset:   w.spec.Offset,
			Anchor:   w.spec.Anchor,
			IsCustom: w.spec.IsCustom,
		})
		return err
	})
	return op.Wait(ctx)
}

var _ beacon.InfoWindow = (*InfoWindow)(nil)

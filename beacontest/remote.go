package beacontest

import (
	"context"
	"sync"

	"github.com/zoobzio/beacon"
)

// Remote is a recording beacon.Remote. Setters store their value so getters
// read it back; FailOn makes a method return an error.
type Remote struct {
	mu      sync.Mutex
	options beacon.Options
	props   map[string]any
	calls   []Call
	fail    map[string]error
}

func newRemote(opts beacon.Options) *Remote {
	props := make(map[string]any, len(opts))
	for k, v := range opts {
		props[k] = v
	}
	return &Remote{options: opts, props: props, fail: make(map[string]error)}
}

// Options returns the option set the remote was created with.
func (r *Remote) Options() beacon.Options {
	return r.options
}

// FailOn makes method return err from now on.
func (r *Remote) FailOn(method string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[method] = err
}

// Calls returns every recorded call in order.
func (r *Remote) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsTo returns the recorded calls to method in order.
func (r *Remote) CallsTo(method string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Prop returns the stored value of a property.
func (r *Remote) Prop(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.props[name]
	return v, ok
}

func (r *Remote) record(method string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Method: method, Args: args})
	return r.fail[method]
}

func (r *Remote) set(method, prop string, v any) error {
	if err := r.record(method, v); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.props[prop] = v
	return nil
}

func prop[V any](r *Remote, method, name string) (V, error) {
	var zero V
	if err := r.record(method); err != nil {
		return zero, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.props[name].(V)
	if !ok {
		return zero, nil
	}
	return v, nil
}

// SetPosition implements beacon.Remote.
func (r *Remote) SetPosition(_ context.Context, p beacon.LngLat) error {
	return r.set("SetPosition", beacon.FieldPosition, p)
}

// SetOffset implements beacon.Remote.
func (r *Remote) SetOffset(_ context.Context, offset any) error {
	return r.set("SetOffset", beacon.FieldOffset, offset)
}

// SetIcon implements beacon.Remote.
func (r *Remote) SetIcon(_ context.Context, icon any) error {
	return r.set("SetIcon", beacon.FieldIcon, icon)
}

// SetShadow implements beacon.Remote.
func (r *Remote) SetShadow(_ context.Context, shadow any) error {
	return r.set("SetShadow", beacon.FieldShadow, shadow)
}

// SetLabel implements beacon.Remote.
func (r *Remote) SetLabel(_ context.Context, label any) error {
	return r.set("SetLabel", beacon.FieldLabel, label)
}

// SetTitle implements beacon.Remote.
func (r *Remote) SetTitle(_ context.Context, title string) error {
	return r.set("SetTitle", beacon.FieldTitle, title)
}

// SetContent implements beacon.Remote.
func (r *Remote) SetContent(_ context.Context, content string) error {
	return r.set("SetContent", beacon.FieldContent, content)
}

// SetExtData implements beacon.Remote.
func (r *Remote) SetExtData(_ context.Context, data map[string]any) error {
	return r.set("SetExtData", beacon.FieldExtData, data)
}

// SetClickable implements beacon.Remote.
func (r *Remote) SetClickable(_ context.Context, clickable bool) error {
	return r.set("SetClickable", beacon.FieldClickable, clickable)
}

// SetDraggable implements beacon.Remote.
func (r *Remote) SetDraggable(_ context.Context, draggable bool) error {
	return r.set("SetDraggable", beacon.FieldDraggable, draggable)
}

// SetCursor implements beacon.Remote.
func (r *Remote) SetCursor(_ context.Context, cursor string) error {
	return r.set("SetCursor", beacon.FieldCursor, cursor)
}

// SetAnimation implements beacon.Remote.
func (r *Remote) SetAnimation(_ context.Context, animation string) error {
	return r.set("SetAnimation", beacon.FieldAnimation, animation)
}

// SetAngle implements beacon.Remote.
func (r *Remote) SetAngle(_ context.Context, angle float64) error {
	return r.set("SetAngle", beacon.FieldAngle, angle)
}

// SetZIndex implements beacon.Remote.
func (r *Remote) SetZIndex(_ context.Context, z int) error {
	return r.set("SetZIndex", beacon.FieldZIndex, z)
}

// SetShape implements beacon.Remote.
func (r *Remote) SetShape(_ context.Context, shape beacon.Shape) error {
	return r.set("SetShape", beacon.FieldShape, shape)
}

// SetTop implements beacon.Remote.
func (r *Remote) SetTop(_ context.Context, top bool) error {
	return r.set("SetTop", beacon.FieldIsTop, top)
}

// Show implements beacon.Remote.
func (r *Remote) Show(_ context.Context) error {
	return r.set("Show", beacon.FieldVisible, true)
}

// Hide implements beacon.Remote.
func (r *Remote) Hide(_ context.Context) error {
	return r.set("Hide", beacon.FieldVisible, false)
}

// MoveTo implements beacon.Remote.
func (r *Remote) MoveTo(_ context.Context, p beacon.LngLat, speed float64) error {
	if err := r.record("MoveTo", p, speed); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.props[beacon.FieldPosition] = p
	return nil
}

// MoveAlong implements beacon.Remote.
func (r *Remote) MoveAlong(_ context.Context, path []beacon.LngLat, speed float64) error {
	if err := r.record("MoveAlong", path, speed); err != nil {
		return err
	}
	if len(path) > 0 {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.props[beacon.FieldPosition] = path[len(path)-1]
	}
	return nil
}

// StopMove implements beacon.Remote.
func (r *Remote) StopMove(_ context.Context) error   { return r.record("StopMove") }
// PauseMove implements beacon.Remote.
func (r *Remote) PauseMove(_ context.Context) error  { return r.record("PauseMove") }
// ResumeMove implements beacon.Remote.
func (r *Remote) ResumeMove(_ context.Context) error { return r.record("ResumeMove") }

// Position implements beacon.Remote.
func (r *Remote) Position(_ context.Context) (beacon.LngLat, error) {
	return prop[beacon.LngLat](r, "Position", beacon.FieldPosition)
}

// Offset implements beacon.Remote.
func (r *Remote) Offset(_ context.Context) (beacon.Pixel, error) {
	return prop[beacon.Pixel](r, "Offset", beacon.FieldOffset)
}

// Label implements beacon.Remote.
func (r *Remote) Label(_ context.Context) (beacon.Label, error) {
	return prop[beacon.Label](r, "Label", beacon.FieldLabel)
}

// Angle implements beacon.Remote.
func (r *Remote) Angle(_ context.Context) (float64, error) {
	return prop[float64](r, "Angle", beacon.FieldAngle)
}

// ZIndex implements beacon.Remote.
func (r *Remote) ZIndex(_ context.Context) (int, error) {
	return prop[int](r, "ZIndex", beacon.FieldZIndex)
}

// Icon implements beacon.Remote.
func (r *Remote) Icon(_ context.Context) (beacon.Icon, error) {
	return prop[beacon.Icon](r, "Icon", beacon.FieldIcon)
}

// Content implements beacon.Remote.
func (r *Remote) Content(_ context.Context) (string, error) {
	return prop[string](r, "Content", beacon.FieldContent)
}

// Title implements beacon.Remote.
func (r *Remote) Title(_ context.Context) (string, error) {
	return prop[string](r, "Title", beacon.FieldTitle)
}

// Top implements beacon.Remote.
func (r *Remote) Top(_ context.Context) (bool, error) {
	return prop[bool](r, "Top", beacon.FieldIsTop)
}

// Shadow implements beacon.Remote.
func (r *Remote) Shadow(_ context.Context) (beacon.Icon, error) {
	return prop[beacon.Icon](r, "Shadow", beacon.FieldShadow)
}

// Shape implements beacon.Remote.
func (r *Remote) Shape(_ context.Context) (beacon.Shape, error) {
	return prop[beacon.Shape](r, "Shape", beacon.FieldShape)
}

// ExtData implements beacon.Remote.
func (r *Remote) ExtData(_ context.Context) (map[string]any, error) {
	return prop[map[string]any](r, "ExtData", beacon.FieldExtData)
}

// Animation implements beacon.Remote.
func (r *Remote) Animation(_ context.Context) (string, error) {
	return prop[string](r, "Animation", beacon.FieldAnimation)
}

// Clickable implements beacon.Remote.
func (r *Remote) Clickable(_ context.Context) (bool, error) {
	return prop[bool](r, "Clickable", beacon.FieldClickable)
}

// Draggable implements beacon.Remote.
func (r *Remote) Draggable(_ context.Context) (bool, error) {
	return prop[bool](r, "Draggable", beacon.FieldDraggable)
}

// MapID is the map every recording remote reports itself attached to.
const MapID = "map-1"

// Map implements beacon.Remote.
func (r *Remote) Map(_ context.Context) (string, error) {
	if err := r.record("Map"); err != nil {
		return "", err
	}
	return MapID, nil
}

var _ beacon.Remote = (*Remote)(nil)

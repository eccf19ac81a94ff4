package wsbridge

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/zoobzio/beacon"
)

// RemoteMarker is a marker living in the map host.
type RemoteMarker struct {
	bridge *Bridge
	id     string
}

// ID returns the marker's id in the host.
func (m *RemoteMarker) ID() string {
	return m.id
}

func (m *RemoteMarker) set(ctx context.Context, prop string, v any) error {
	_, err := m.bridge.call(ctx, MethodSet, m.id, SetArgs{Prop: prop, Value: v})
	return err
}

func (m *RemoteMarker) invoke(ctx context.Context, method string, args ...any) error {
	_, err := m.bridge.call(ctx, MethodCall, m.id, CallArgs{Method: method, Args: args})
	return err
}

func get[V any](ctx context.Context, m *RemoteMarker, prop string) (V, error) {
	var v V
	raw, err := m.bridge.call(ctx, MethodGet, m.id, GetArgs{Prop: prop})
	if err != nil {
		return v, err
	}
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decoding %s: %w", prop, err)
	}
	return v, nil
}

// SetPosition implements beacon.Remote.
func (m *RemoteMarker) SetPosition(ctx context.Context, p beacon.LngLat) error {
	return m.set(ctx, beacon.FieldPosition, p)
}

// SetOffset implements beacon.Remote.
func (m *RemoteMarker) SetOffset(ctx context.Context, offset any) error {
	return m.set(ctx, beacon.FieldOffset, offset)
}

// SetIcon implements beacon.Remote.
func (m *RemoteMarker) SetIcon(ctx context.Context, icon any) error {
	return m.set(ctx, beacon.FieldIcon, icon)
}

// SetShadow implements beacon.Remote.
func (m *RemoteMarker) SetShadow(ctx context.Context, shadow any) error {
	return m.set(ctx, beacon.FieldShadow, shadow)
}

// SetLabel implements beacon.Remote.
func (m *RemoteMarker) SetLabel(ctx context.Context, label any) error {
	return m.set(ctx, beacon.FieldLabel, label)
}

// SetTitle implements beacon.Remote.
func (m *RemoteMarker) SetTitle(ctx context.Context, title string) error {
	return m.set(ctx, beacon.FieldTitle, title)
}

// SetContent implements beacon.Remote.
func (m *RemoteMarker) SetContent(ctx context.Context, content string) error {
	return m.set(ctx, beacon.FieldContent, content)
}

// SetExtData implements beacon.Remote.
func (m *RemoteMarker) SetExtData(ctx context.Context, data map[string]any) error {
	return m.set(ctx, beacon.FieldExtData, data)
}

// SetClickable implements beacon.Remote.
func (m *RemoteMarker) SetClickable(ctx context.Context, clickable bool) error {
	return m.set(ctx, beacon.FieldClickable, clickable)
}

// SetDraggable implements beacon.Remote.
func (m *RemoteMarker) SetDraggable(ctx context.Context, draggable bool) error {
	return m.set(ctx, beacon.FieldDraggable, draggable)
}

// SetCursor implements beacon.Remote.
func (m *RemoteMarker) SetCursor(ctx context.Context, cursor string) error {
	return m.set(ctx, beacon.FieldCursor, cursor)
}

// SetAnimation implements beacon.Remote.
func (m *RemoteMarker) SetAnimation(ctx context.Context, animation string) error {
	return m.set(ctx, beacon.FieldAnimation, animation)
}

// SetAngle implements beacon.Remote.
func (m *RemoteMarker) SetAngle(ctx context.Context, angle float64) error {
	return m.set(ctx, beacon.FieldAngle, angle)
}

// SetZIndex implements beacon.Remote.
func (m *RemoteMarker) SetZIndex(ctx context.Context, z int) error {
	return m.set(ctx, beacon.FieldZIndex, z)
}

// SetShape implements beacon.Remote.
func (m *RemoteMarker) SetShape(ctx context.Context, shape beacon.Shape) error {
	return m.set(ctx, beacon.FieldShape, shape)
}

// SetTop implements beacon.Remote.
func (m *RemoteMarker) SetTop(ctx context.Context, top bool) error {
	return m.set(ctx, beacon.FieldIsTop, top)
}

// Show implements beacon.Remote.
func (m *RemoteMarker) Show(ctx context.Context) error {
	return m.invoke(ctx, "show")
}

// Hide implements beacon.Remote.
func (m *RemoteMarker) Hide(ctx context.Context) error {
	return m.invoke(ctx, "hide")
}

// MoveTo implements beacon.Remote.
func (m *RemoteMarker) MoveTo(ctx context.Context, p beacon.LngLat, speed float64) error {
	return m.invoke(ctx, "moveTo", p, speed)
}

// MoveAlong implements beacon.Remote.
func (m *RemoteMarker) MoveAlong(ctx context.Context, path []beacon.LngLat, speed float64) error {
	return m.invoke(ctx, "moveAlong", path, speed)
}

// StopMove implements beacon.Remote.
func (m *RemoteMarker) StopMove(ctx context.Context) error {
	return m.invoke(ctx, "stopMove")
}

// PauseMove implements beacon.Remote.
func (m *RemoteMarker) PauseMove(ctx context.Context) error {
	return m.invoke(ctx, "pauseMove")
}

// ResumeMove implements beacon.Remote.
func (m *RemoteMarker) ResumeMove(ctx context.Context) error {
	return m.invoke(ctx, "resumeMove")
}

// Position implements beacon.Remote.
func (m *RemoteMarker) Position(ctx context.Context) (beacon.LngLat, error) {
	return get[beacon.LngLat](ctx, m, beacon.FieldPosition)
}

// Offset implements beacon.Remote.
func (m *RemoteMarker) Offset(ctx context.Context) (beacon.Pixel, error) {
	return get[beacon.Pixel](ctx, m, beacon.FieldOffset)
}

// Label implements beacon.Remote.
func (m *RemoteMarker) Label(ctx context.Context) (beacon.Label, error) {
	return get[beacon.Label](ctx, m, beacon.FieldLabel)
}

// Angle implements beacon.Remote.
func (m *RemoteMarker) Angle(ctx context.Context) (float64, error) {
	return get[float64](ctx, m, beacon.FieldAngle)
}

// ZIndex implements beacon.Remote.
func (m *RemoteMarker) ZIndex(ctx context.Context) (int, error) {
	return get[int](ctx, m, beacon.FieldZIndex)
}

// Icon implements beacon.Remote.
func (m *RemoteMarker) Icon(ctx context.Context) (beacon.Icon, error) {
	return get[beacon.Icon](ctx, m, beacon.FieldIcon)
}

// Content implements beacon.Remote.
func (m *RemoteMarker) Content(ctx context.Context) (string, error) {
	return get[string](ctx, m, beacon.FieldContent)
}

// Title implements beacon.Remote.
func (m *RemoteMarker) Title(ctx context.Context) (string, error) {
	return get[string](ctx, m, beacon.FieldTitle)
}

// Top implements beacon.Remote.
func (m *RemoteMarker) Top(ctx context.Context) (bool, error) {
	return get[bool](ctx, m, beacon.FieldIsTop)
}

// Shadow implements beacon.Remote.
func (m *RemoteMarker) Shadow(ctx context.Context) (beacon.Icon, error) {
	return get[beacon.Icon](ctx, m, beacon.FieldShadow)
}

// Shape implements beacon.Remote.
func (m *RemoteMarker) Shape(ctx context.Context) (beacon.Shape, error) {
	return get[beacon.Shape](ctx, m, beacon.FieldShape)
}

// ExtData implements beacon.Remote.
func (m *RemoteMarker) ExtData(ctx context.Context) (map[string]any, error) {
	return get[map[string]any](ctx, m, beacon.FieldExtData)
}

// Animation implements beacon.Remote.
func (m *RemoteMarker) Animation(ctx context.Context) (string, error) {
	return get[string](ctx, m, beacon.FieldAnimation)
}

// Clickable implements beacon.Remote.
func (m *RemoteMarker) Clickable(ctx context.Context) (bool, error) {
	return get[bool](ctx, m, beacon.FieldClickable)
}

// Draggable implements beacon.Remote.
func (m *RemoteMarker) Draggable(ctx context.Context) (bool, error) {
	return get[bool](ctx, m, beacon.FieldDraggable)
}

// Map reads the host-side id of the map the marker is on.
func (m *RemoteMarker) Map(ctx context.Context) (string, error) {
	return get[string](ctx, m, PropMap)
}

var _ beacon.Remote = (*RemoteMarker)(nil)

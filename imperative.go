package beacon

import "context"

// Imperative calls bypass the declaration diff. They share the per-field
// lanes with declarative updates, so an imperative setter and a later
// declared change to the same field apply in call order. Every call blocks
// until the remote side answers or ctx is done, and fails with ErrNotCreated
// before the remote object was requested.

// current returns the synchronizer, or nil before creation.
func (m *Marker) current() *synchronizer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sync
}

func (m *Marker) do(ctx context.Context, issue func(*synchronizer) *Op) error {
	s := m.current()
	if s == nil {
		return ErrNotCreated
	}
	return issue(s).Wait(ctx)
}

// get reads one property from the remote object on the field's lane.
func get[V any](ctx context.Context, m *Marker, field string, fn func(Remote, context.Context) (V, error)) (V, error) {
	var zero, out V
	s := m.current()
	if s == nil {
		return zero, ErrNotCreated
	}
	base := context.WithoutCancel(ctx)
	op := s.handle.Enqueue(field, func(r Remote) error {
		v, err := fn(r, base)
		out = v
		return err
	})
	if err := op.Wait(ctx); err != nil {
		return zero, err
	}
	return out, nil
}

// Show makes the marker visible.
func (m *Marker) Show(ctx context.Context) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setVisible(ctx, FieldVisible, true) })
}

// Hide hides the marker.
func (m *Marker) Hide(ctx context.Context) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setVisible(ctx, FieldHidden, false) })
}

// SetPosition moves the marker to p.
func (m *Marker) SetPosition(ctx context.Context, p LngLat) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setPosition(ctx, p) })
}

// SetOffset sets the pixel offset of the marker anchor.
func (m *Marker) SetOffset(ctx context.Context, p Pixel) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setOffset(ctx, p) })
}

// SetIcon replaces the marker icon.
func (m *Marker) SetIcon(ctx context.Context, icon Icon) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setIcon(ctx, icon) })
}

// SetShadow replaces the shadow image.
func (m *Marker) SetShadow(ctx context.Context, icon Icon) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setShadow(ctx, icon) })
}

// SetLabel sets the text label drawn next to the marker.
func (m *Marker) SetLabel(ctx context.Context, l Label) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setLabel(ctx, l) })
}

// SetTitle sets the hover title.
func (m *Marker) SetTitle(ctx context.Context, title string) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setTitle(ctx, title) })
}

// SetContent replaces the marker with custom HTML content.
func (m *Marker) SetContent(ctx context.Context, content string) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setContent(ctx, content) })
}

// SetExtData attaches user data to the remote object.
func (m *Marker) SetExtData(ctx context.Context, data map[string]any) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setExtData(ctx, data) })
}

// SetClickable toggles click handling.
func (m *Marker) SetClickable(ctx context.Context, clickable bool) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setClickable(ctx, clickable) })
}

// SetDraggable toggles dragging.
func (m *Marker) SetDraggable(ctx context.Context, draggable bool) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setDraggable(ctx, draggable) })
}

// SetCursor sets the hover cursor.
func (m *Marker) SetCursor(ctx context.Context, cursor string) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setCursor(ctx, cursor) })
}

// SetAnimation starts the named animation. AMAP_ANIMATION_NONE stops it.
func (m *Marker) SetAnimation(ctx context.Context, animation string) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setAnimation(ctx, animation) })
}

// SetAngle rotates the marker, in degrees.
func (m *Marker) SetAngle(ctx context.Context, angle float64) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setAngle(ctx, angle) })
}

// SetZIndex sets the stacking order.
func (m *Marker) SetZIndex(ctx context.Context, z int) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setZIndex(ctx, z) })
}

// SetShape sets the clickable area.
func (m *Marker) SetShape(ctx context.Context, shape Shape) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setShape(ctx, shape) })
}

// SetTop raises the marker above all others.
func (m *Marker) SetTop(ctx context.Context, top bool) error {
	return m.do(ctx, func(s *synchronizer) *Op { return s.setTop(ctx, top) })
}

// MoveTo animates the marker to p at speed km/h. Progress is reported
// through OnMoving and completion through OnMoveEnd.
func (m *Marker) MoveTo(ctx context.Context, p LngLat, speed float64) error {
	return m.do(ctx, func(s *synchronizer) *Op {
		return s.call(ctx, laneMove, "moveTo", func(ctx context.Context, r Remote) error {
			return r.MoveTo(ctx, p, speed)
		})
	})
}

// MoveAlong animates the marker along path at speed km/h. Completion is
// reported through OnMoveAlong.
func (m *Marker) MoveAlong(ctx context.Context, path []LngLat, speed float64) error {
	return m.do(ctx, func(s *synchronizer) *Op {
		return s.call(ctx, laneMove, "moveAlong", func(ctx context.Context, r Remote) error {
			return r.MoveAlong(ctx, path, speed)
		})
	})
}

// StopMove stops the running animation.
func (m *Marker) StopMove(ctx context.Context) error {
	return m.do(ctx, func(s *synchronizer) *Op {
		return s.call(ctx, laneMove, "stopMove", func(ctx context.Context, r Remote) error { return r.StopMove(ctx) })
	})
}

// PauseMove pauses the running animation.
func (m *Marker) PauseMove(ctx context.Context) error {
	return m.do(ctx, func(s *synchronizer) *Op {
		return s.call(ctx, laneMove, "pauseMove", func(ctx context.Context, r Remote) error { return r.PauseMove(ctx) })
	})
}

// ResumeMove resumes a paused animation.
func (m *Marker) ResumeMove(ctx context.Context) error {
	return m.do(ctx, func(s *synchronizer) *Op {
		return s.call(ctx, laneMove, "resumeMove", func(ctx context.Context, r Remote) error { return r.ResumeMove(ctx) })
	})
}

// Position reads the current position from the remote object.
func (m *Marker) Position(ctx context.Context) (LngLat, error) {
	return get(ctx, m, FieldPosition, Remote.Position)
}

// Offset reads the anchor offset.
func (m *Marker) Offset(ctx context.Context) (Pixel, error) {
	return get(ctx, m, FieldOffset, Remote.Offset)
}

// Label reads the text label.
func (m *Marker) Label(ctx context.Context) (Label, error) {
	return get(ctx, m, FieldLabel, Remote.Label)
}

// Angle reads the rotation angle.
func (m *Marker) Angle(ctx context.Context) (float64, error) {
	return get(ctx, m, FieldAngle, Remote.Angle)
}

// ZIndex reads the stacking order.
func (m *Marker) ZIndex(ctx context.Context) (int, error) {
	return get(ctx, m, FieldZIndex, Remote.ZIndex)
}

// Icon reads the icon.
func (m *Marker) Icon(ctx context.Context) (Icon, error) {
	return get(ctx, m, FieldIcon, Remote.Icon)
}

// Content reads the custom content.
func (m *Marker) Content(ctx context.Context) (string, error) {
	return get(ctx, m, FieldContent, Remote.Content)
}

// Title reads the hover title.
func (m *Marker) Title(ctx context.Context) (string, error) {
	return get(ctx, m, FieldTitle, Remote.Title)
}

// Top reports whether the marker is raised above all others.
func (m *Marker) Top(ctx context.Context) (bool, error) {
	return get(ctx, m, FieldIsTop, Remote.Top)
}

// Shadow reads the shadow image.
func (m *Marker) Shadow(ctx context.Context) (Icon, error) {
	return get(ctx, m, FieldShadow, Remote.Shadow)
}

// Shape reads the clickable area.
func (m *Marker) Shape(ctx context.Context) (Shape, error) {
	return get(ctx, m, FieldShape, Remote.Shape)
}

// ExtData reads the attached user data.
func (m *Marker) ExtData(ctx context.Context) (map[string]any, error) {
	return get(ctx, m, FieldExtData, Remote.ExtData)
}

// Animation reads the running animation name.
func (m *Marker) Animation(ctx context.Context) (string, error) {
	return get(ctx, m, FieldAnimation, Remote.Animation)
}

// Clickable reports whether clicks are handled.
func (m *Marker) Clickable(ctx context.Context) (bool, error) {
	return get(ctx, m, FieldClickable, Remote.Clickable)
}

// Draggable reports whether the marker can be dragged.
func (m *Marker) Draggable(ctx context.Context) (bool, error) {
	return get(ctx, m, FieldDraggable, Remote.Draggable)
}

// Map reads the id of the map the marker is attached to.
func (m *Marker) Map(ctx context.Context) (string, error) {
	return get(ctx, m, laneMap, Remote.Map)
}

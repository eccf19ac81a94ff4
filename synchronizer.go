package beacon

import (
	"context"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// laneVisibility serializes show/hide calls from both visibility inputs.
const laneVisibility = "visibility"

// synchronizer maps change filter emissions to remote setter calls. Each
// field has its own lane on the handle, so calls for one field apply in
// arrival order while distinct fields proceed independently.
type synchronizer struct {
	name    string
	handle  *Handle[Remote]
	icons   ValueFactory[Icon]
	pixels  ValueFactory[Pixel]
	labels  ValueFactory[Label]
	clock   clockz.Clock
	metrics MetricsProvider
	record  func(error)
}

// apply issues one setter per emitting recognized field.
func (s *synchronizer) apply(ctx context.Context, f *ChangeFilter) []*Op {
	var ops []*Op
	add := func(op *Op) { ops = append(ops, op) }

	Has[Icon](f, FieldIcon).Subscribe(func(v Icon) { add(s.setIcon(ctx, v)) })
	Has[Icon](f, FieldShadow).Subscribe(func(v Icon) { add(s.setShadow(ctx, v)) })
	Has[Label](f, FieldLabel).Subscribe(func(v Label) { add(s.setLabel(ctx, v)) })
	Has[string](f, FieldTitle).Subscribe(func(v string) { add(s.setTitle(ctx, v)) })
	Has[string](f, FieldContent).Subscribe(func(v string) { add(s.setContent(ctx, v)) })
	Has[map[string]any](f, FieldExtData).Subscribe(func(v map[string]any) { add(s.setExtData(ctx, v)) })
	Has[bool](f, FieldClickable).Subscribe(func(v bool) { add(s.setClickable(ctx, v)) })
	Has[bool](f, FieldDraggable).Subscribe(func(v bool) { add(s.setDraggable(ctx, v)) })
	Has[string](f, FieldCursor).Subscribe(func(v string) { add(s.setCursor(ctx, v)) })
	Has[float64](f, FieldAngle).Subscribe(func(v float64) { add(s.setAngle(ctx, v)) })
	Has[int](f, FieldZIndex).Subscribe(func(v int) { add(s.setZIndex(ctx, v)) })
	Has[Shape](f, FieldShape).Subscribe(func(v Shape) { add(s.setShape(ctx, v)) })
	NotEmpty[Pixel](f, FieldOffset).Subscribe(func(v Pixel) { add(s.setOffset(ctx, v)) })
	NotEmpty[LngLat](f, FieldPosition).Subscribe(func(v LngLat) { add(s.setPosition(ctx, v)) })
	return ops
}

// call enqueues fn on the field's lane and reports its outcome.
func (s *synchronizer) call(ctx context.Context, lane, field string, fn func(context.Context, Remote) error) *Op {
	ctx = context.WithoutCancel(ctx)
	start := s.clock.Now()
	return s.handle.Enqueue(lane, func(r Remote) error {
		err := fn(ctx, r)
		if err != nil {
			capitan.Emit(ctx, SetterFailed,
				KeyMarker.Field(s.name),
				KeyField.Field(field),
				KeyError.Field(err.Error()),
			)
			s.metrics.OnSetterFailure(field, s.clock.Since(start))
			s.record(err)
			return err
		}
		capitan.Emit(ctx, SetterApplied,
			KeyMarker.Field(s.name),
			KeyField.Field(field),
		)
		s.metrics.OnSetterSuccess(field, s.clock.Since(start))
		return nil
	})
}

func (s *synchronizer) set(ctx context.Context, field string, fn func(context.Context, Remote) error) *Op {
	return s.call(ctx, field, field, fn)
}

// skip reports a setter that was not issued because conversion was empty.
func (s *synchronizer) skip(ctx context.Context, field string) *Op {
	capitan.Emit(ctx, SetterSkipped,
		KeyMarker.Field(s.name),
		KeyField.Field(field),
		KeyError.Field(ErrConversionSkipped.Error()),
	)
	s.metrics.OnSetterSkipped(field)
	return settledOp(nil)
}

func (s *synchronizer) setOffset(ctx context.Context, v Pixel) *Op {
	native, ok := s.pixels.Create(v, FieldOffset)
	if !ok {
		return s.skip(ctx, FieldOffset)
	}
	return s.set(ctx, FieldOffset, func(ctx context.Context, r Remote) error { return r.SetOffset(ctx, native) })
}

func (s *synchronizer) setIcon(ctx context.Context, v Icon) *Op {
	native, ok := s.icons.Create(v, FieldIcon)
	if !ok {
		return s.skip(ctx, FieldIcon)
	}
	return s.set(ctx, FieldIcon, func(ctx context.Context, r Remote) error { return r.SetIcon(ctx, native) })
}

func (s *synchronizer) setShadow(ctx context.Context, v Icon) *Op {
	native, ok := s.icons.Create(v, FieldShadow)
	if !ok {
		return s.skip(ctx, FieldShadow)
	}
	return s.set(ctx, FieldShadow, func(ctx context.Context, r Remote) error { return r.SetShadow(ctx, native) })
}

func (s *synchronizer) setLabel(ctx context.Context, v Label) *Op {
	native, ok := s.labels.Create(v, FieldLabel)
	if !ok {
		return s.skip(ctx, FieldLabel)
	}
	return s.set(ctx, FieldLabel, func(ctx context.Context, r Remote) error { return r.SetLabel(ctx, native) })
}

func (s *synchronizer) setPosition(ctx context.Context, v LngLat) *Op {
	return s.set(ctx, FieldPosition, func(ctx context.Context, r Remote) error { return r.SetPosition(ctx, v) })
}

func (s *synchronizer) setTitle(ctx context.Context, v string) *Op {
	return s.set(ctx, FieldTitle, func(ctx context.Context, r Remote) error { return r.SetTitle(ctx, v) })
}

func (s *synchronizer) setContent(ctx context.Context, v string) *Op {
	return s.set(ctx, FieldContent, func(ctx context.Context, r Remote) error { return r.SetContent(ctx, v) })
}

func (s *synchronizer) setExtData(ctx context.Context, v map[string]any) *Op {
	return s.set(ctx, FieldExtData, func(ctx context.Context, r Remote) error { return r.SetExtData(ctx, v) })
}

func (s *synchronizer) setClickable(ctx context.Context, v bool) *Op {
	return s.set(ctx, FieldClickable, func(ctx context.Context, r Remote) error { return r.SetClickable(ctx, v) })
}

func (s *synchronizer) setDraggable(ctx context.Context, v bool) *Op {
	return s.set(ctx, FieldDraggable, func(ctx context.Context, r Remote) error { return r.SetDraggable(ctx, v) })
}

func (s *synchronizer) setCursor(ctx context.Context, v string) *Op {
	return s.set(ctx, FieldCursor, func(ctx context.Context, r Remote) error { return r.SetCursor(ctx, v) })
}

func (s *synchronizer) setAnimation(ctx context.Context, v string) *Op {
	return s.set(ctx, FieldAnimation, func(ctx context.Context, r Remote) error { return r.SetAnimation(ctx, v) })
}

func (s *synchronizer) setAngle(ctx context.Context, v float64) *Op {
	return s.set(ctx, FieldAngle, func(ctx context.Context, r Remote) error { return r.SetAngle(ctx, v) })
}

func (s *synchronizer) setZIndex(ctx context.Context, v int) *Op {
	return s.set(ctx, FieldZIndex, func(ctx context.Context, r Remote) error { return r.SetZIndex(ctx, v) })
}

func (s *synchronizer) setShape(ctx context.Context, v Shape) *Op {
	return s.set(ctx, FieldShape, func(ctx context.Context, r Remote) error { return r.SetShape(ctx, v) })
}

func (s *synchronizer) setTop(ctx context.Context, v bool) *Op {
	return s.set(ctx, FieldIsTop, func(ctx context.Context, r Remote) error { return r.SetTop(ctx, v) })
}

// setVisible routes both visibility inputs through one lane so the last
// applied call determines the final state.
func (s *synchronizer) setVisible(ctx context.Context, field string, visible bool) *Op {
	return s.call(ctx, laneVisibility, field, func(ctx context.Context, r Remote) error {
		if visible {
			return r.Show(ctx)
		}
		return r.Hide(ctx)
	})
}

package beacon

import "testing"

func TestDiff_FirstBatchCarriesSetFields(t *testing.T) {
	curr := Spec{Position: &LngLat{Lng: 1, Lat: 2}, Draggable: Ptr(true)}.Values()

	batch := Diff(nil, curr, true)

	fields := batch.Fields()
	if len(fields) != 2 || fields[0] != FieldPosition || fields[1] != FieldDraggable {
		t.Fatalf("expected [position draggable], got %v", fields)
	}
	for _, c := range batch {
		if !c.First {
			t.Errorf("expected %s to be marked first", c.Field)
		}
		if c.Previous != nil {
			t.Errorf("expected no previous value for %s, got %v", c.Field, c.Previous)
		}
	}
}

func TestDiff_SkipsUnchanged(t *testing.T) {
	prev := Spec{Title: Ptr("a"), ZIndex: Ptr(1)}.Values()
	curr := Spec{Title: Ptr("a"), ZIndex: Ptr(2)}.Values()

	batch := Diff(prev, curr, false)

	if len(batch) != 1 || batch[0].Field != FieldZIndex {
		t.Fatalf("expected only zIndex, got %v", batch.Fields())
	}
	if batch[0].Previous != 1 || batch[0].Current != 2 {
		t.Errorf("expected 1 -> 2, got %v -> %v", batch[0].Previous, batch[0].Current)
	}
}

func TestDiff_ClearedField(t *testing.T) {
	prev := Spec{Hidden: Ptr(true)}.Values()
	curr := Spec{}.Values()

	batch := Diff(prev, curr, false)

	if len(batch) != 1 || batch[0].Field != FieldHidden {
		t.Fatalf("expected cleared hidden, got %v", batch.Fields())
	}
	if batch[0].Current != nil {
		t.Errorf("expected nil current, got %v", batch[0].Current)
	}
}

func TestDiff_StructuralEquality(t *testing.T) {
	prev := Spec{ExtData: map[string]any{"id": 7}, Shape: &Shape{Type: "circle", Coords: []float64{1, 2, 3}}}.Values()
	curr := Spec{ExtData: map[string]any{"id": 7}, Shape: &Shape{Type: "circle", Coords: []float64{1, 2, 3}}}.Values()

	if batch := Diff(prev, curr, false); len(batch) != 0 {
		t.Errorf("expected equal maps and slices to produce no change, got %v", batch.Fields())
	}
}

func TestChangeFilter_RestrictsFields(t *testing.T) {
	curr := Spec{Title: Ptr("a"), Cursor: Ptr("pointer")}.Values()
	f := NewChangeFilter(Diff(nil, curr, true), FieldTitle)

	if _, ok := Has[string](f, FieldCursor).Value(); ok {
		t.Error("expected cursor outside the observed set not to emit")
	}
	if v, ok := Has[string](f, FieldTitle).Value(); !ok || v != "a" {
		t.Errorf("expected title 'a', got %q (%v)", v, ok)
	}
}

func TestHas_UndefinedDoesNotEmit(t *testing.T) {
	prev := Spec{Title: Ptr("a")}.Values()
	f := NewChangeFilter(Diff(prev, Values{}, false))

	if _, ok := Has[string](f, FieldTitle).Value(); ok {
		t.Error("expected a cleared field not to emit")
	}
	if !f.Changed(FieldTitle) {
		t.Error("expected cleared field to be reported as changed")
	}
}

func TestHas_WrongTypeDoesNotEmit(t *testing.T) {
	f := NewChangeFilter(Diff(nil, Values{FieldTitle: 42}, true))

	if _, ok := Has[string](f, FieldTitle).Value(); ok {
		t.Error("expected a value of the wrong type not to emit")
	}
}

func TestHas_SubscribeIsSynchronous(t *testing.T) {
	f := NewChangeFilter(Diff(nil, Spec{ZIndex: Ptr(9)}.Values(), true))

	got := 0
	Has[int](f, FieldZIndex).Subscribe(func(v int) { got = v })
	if got != 9 {
		t.Errorf("expected 9, got %d", got)
	}
}

func TestNotEmpty_SuppressesEmptyValues(t *testing.T) {
	curr := Values{
		FieldTitle:   "",
		FieldExtData: map[string]any{},
		FieldCursor:  "move",
	}
	f := NewChangeFilter(Diff(nil, curr, true))

	if _, ok := NotEmpty[string](f, FieldTitle).Value(); ok {
		t.Error("expected empty string to be suppressed")
	}
	if _, ok := NotEmpty[map[string]any](f, FieldExtData).Value(); ok {
		t.Error("expected empty map to be suppressed")
	}
	if v, ok := NotEmpty[string](f, FieldCursor).Value(); !ok || v != "move" {
		t.Errorf("expected cursor 'move', got %q (%v)", v, ok)
	}
}

func TestSpec_ValuesOmitsUnset(t *testing.T) {
	vals := Spec{Angle: Ptr(0.0)}.Values()

	if len(vals) != 1 {
		t.Fatalf("expected only angle, got %v", vals)
	}
	if vals[FieldAngle] != 0.0 {
		t.Errorf("expected explicit zero angle, got %v", vals[FieldAngle])
	}
}

func TestOptionsFor_RecognizedOnly(t *testing.T) {
	vals := Spec{Title: Ptr("a"), IsTop: Ptr(true), Hidden: Ptr(false)}.Values()

	opts := OptionsFor(vals)
	if len(opts) != 1 || opts[FieldTitle] != "a" {
		t.Errorf("expected only title in options, got %v", opts)
	}
}

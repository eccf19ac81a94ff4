package beacon

import "reflect"

// FieldChange records the change of one declared field in an update pass.
type FieldChange struct {
	Field string

	// Previous is the value from the prior pass. It is nil on the first batch
	// and when the field was unset before.
	Previous any

	// Current is the value in this pass. It is nil when the field was unset.
	Current any

	// First is true when this change belongs to the component's first batch.
	First bool
}

// Batch is the set of field changes delivered by one update pass, in
// declared-field order.
type Batch []FieldChange

// Fields returns the field names present in the batch.
func (b Batch) Fields() []string {
	out := make([]string, len(b))
	for i, c := range b {
		out[i] = c.Field
	}
	return out
}

// Diff computes the batch for an update pass from the previous and current
// field values. A field is included when it is set in either pass and its
// value differs, or when first is true and the field is set.
func Diff(prev, curr Values, first bool) Batch {
	var batch Batch
	for _, f := range allFields {
		c, inCurr := curr[f]
		p, inPrev := prev[f]
		if !inCurr && !inPrev {
			continue
		}
		if first {
			if inCurr {
				batch = append(batch, FieldChange{Field: f, Current: c, First: true})
			}
			continue
		}
		if inCurr && inPrev && same(p, c) {
			continue
		}
		batch = append(batch, FieldChange{Field: f, Previous: p, Current: c})
	}
	return batch
}

// same reports whether two declared values are identical. Comparable values
// use ==; slices and maps compare structurally.
func same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// ChangeFilter exposes per-field emissions over one batch, restricted to a
// declared set of fields.
type ChangeFilter struct {
	changes map[string]FieldChange
}

// NewChangeFilter builds a filter over batch. When fields is empty the full
// declared enumeration is observed; fields outside the observed set never emit.
func NewChangeFilter(batch Batch, fields ...string) *ChangeFilter {
	if len(fields) == 0 {
		fields = allFields
	}
	observed := make(map[string]bool, len(fields))
	for _, f := range fields {
		observed[f] = true
	}
	f := &ChangeFilter{changes: make(map[string]FieldChange, len(batch))}
	for _, c := range batch {
		if observed[c.Field] {
			f.changes[c.Field] = c
		}
	}
	return f
}

// Emission is a lazy notification for one field. It fires at most once,
// synchronously, when subscribed.
type Emission[V any] struct {
	value V
	ok    bool
}

// Subscribe invokes fn with the emitted value, if any.
func (e Emission[V]) Subscribe(fn func(V)) {
	if e.ok {
		fn(e.value)
	}
}

// Value returns the emitted value and whether the field emitted.
func (e Emission[V]) Value() (V, bool) {
	return e.value, e.ok
}

// Has emits the current value of field when it is present in the batch,
// defined, and either first or different from its previous value. Values of
// an unexpected type never emit.
func Has[V any](f *ChangeFilter, field string) Emission[V] {
	c, ok := f.changes[field]
	if !ok || c.Current == nil {
		return Emission[V]{}
	}
	if !c.First && same(c.Previous, c.Current) {
		return Emission[V]{}
	}
	v, ok := c.Current.(V)
	if !ok {
		return Emission[V]{}
	}
	return Emission[V]{value: v, ok: true}
}

// NotEmpty behaves like Has and additionally suppresses empty values: empty
// strings, slices and maps.
func NotEmpty[V any](f *ChangeFilter, field string) Emission[V] {
	e := Has[V](f, field)
	if !e.ok || empty(e.value) {
		return Emission[V]{}
	}
	return e
}

func empty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// Changed reports whether field is part of the observed batch, including a
// field that was cleared.
func (f *ChangeFilter) Changed(field string) bool {
	_, ok := f.changes[field]
	return ok
}

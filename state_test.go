package beacon

import "testing"

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateUninitialized: "uninitialized",
		StateCreated:       "created",
		StateActive:        "active",
		StateDestroyed:     "destroyed",
		State(999):         "unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

func TestHandleState_String(t *testing.T) {
	cases := map[HandleState]string{
		HandlePending:   "pending",
		HandleResolved:  "resolved",
		HandleFailed:    "failed",
		HandleReleased:  "released",
		HandleState(-1): "unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

func TestBindingState_String(t *testing.T) {
	cases := map[BindingState]string{
		BindingLoading:   "loading",
		BindingHealthy:   "healthy",
		BindingDegraded:  "degraded",
		BindingEmpty:     "empty",
		BindingState(42): "unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

func TestState_Values(t *testing.T) {
	// The zero value must be the initial state.
	var s State
	if s != StateUninitialized {
		t.Errorf("expected zero State to be uninitialized, got %s", s)
	}
	var h HandleState
	if h != HandlePending {
		t.Errorf("expected zero HandleState to be pending, got %s", h)
	}
	var b BindingState
	if b != BindingLoading {
		t.Errorf("expected zero BindingState to be loading, got %s", b)
	}
}

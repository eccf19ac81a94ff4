package beacon

import (
	"errors"
	"testing"
)

func TestErrorLog_ZeroSizeKeepsLast(t *testing.T) {
	l := newErrorLog(0)
	l.record(errors.New("first"))
	l.record(errors.New("second"))

	if l.history() != nil {
		t.Error("expected no history for size 0")
	}
	if err := l.last(); err == nil || err.Error() != "second" {
		t.Errorf("expected last error %q, got %v", "second", err)
	}
	if l.errors() != 2 {
		t.Errorf("expected 2 recorded, got %d", l.errors())
	}
}

func TestErrorLog_IgnoresNil(t *testing.T) {
	l := newErrorLog(2)
	l.record(nil)

	if l.last() != nil {
		t.Error("expected no last error")
	}
	if l.errors() != 0 {
		t.Errorf("expected 0 recorded, got %d", l.errors())
	}
}

func TestErrorLog_FillsWithoutWrapping(t *testing.T) {
	l := newErrorLog(3)
	l.record(errors.New("error1"))
	l.record(errors.New("error2"))

	errs := l.history()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(errs))
	}
	if errs[0].Error() != "error1" || errs[1].Error() != "error2" {
		t.Errorf("expected oldest first, got %v", errs)
	}
}

func TestErrorLog_WrapsAndEvictsOldest(t *testing.T) {
	l := newErrorLog(3)
	for _, msg := range []string{"error1", "error2", "error3", "error4"} {
		l.record(errors.New(msg))
	}

	errs := l.history()
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d", len(errs))
	}
	if errs[0].Error() != "error2" {
		t.Errorf("expected error2 first after wrap, got %q", errs[0])
	}
	if errs[2].Error() != "error4" {
		t.Errorf("expected error4 last, got %q", errs[2])
	}
}

func TestErrorLog_Reset(t *testing.T) {
	l := newErrorLog(3)
	l.record(errors.New("error1"))
	l.reset()

	if l.history() != nil {
		t.Error("expected nil history after reset")
	}
	if l.last() != nil {
		t.Error("expected nil last error after reset")
	}
	if l.errors() != 1 {
		t.Errorf("expected total to survive reset, got %d", l.errors())
	}

	l.record(errors.New("error2"))
	errs := l.history()
	if len(errs) != 1 || errs[0].Error() != "error2" {
		t.Errorf("expected [error2], got %v", errs)
	}
}

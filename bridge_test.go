package beacon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// stubSource records listeners for string targets.
type stubSource struct {
	mu        sync.Mutex
	next      int
	listeners map[ListenerID]func(Event)
	removed   int
	addErr    error
}

func newStubSource() *stubSource {
	return &stubSource{listeners: make(map[ListenerID]func(Event))}
}

func (s *stubSource) AddListener(_ context.Context, _ string, event string, fn func(Event)) (ListenerID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return "", s.addErr
	}
	s.next++
	id := ListenerID(fmt.Sprintf("%s-%d", event, s.next))
	s.listeners[id] = fn
	return id, nil
}

func (s *stubSource) RemoveListener(_ context.Context, id ListenerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, id)
	s.removed++
	return nil
}

func (s *stubSource) fire(e Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}

func (s *stubSource) counts() (listening, removed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners), s.removed
}

func TestEventStream_DeliversOnLaterTurn(t *testing.T) {
	ctx := context.Background()
	h := NewResolver[string]("m", &stubFactory{}).Create(ctx, nil)
	src := newStubSource()
	d := NewSyncDispatcher()

	var got []string
	sub := BindEvent[string](ctx, h, src, EventClick, d).Subscribe(func(e Event) {
		got = append(got, e.Name)
	})
	if err := sub.Registered().Wait(ctx); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	src.fire(Event{Name: EventClick})
	if len(got) != 0 {
		t.Fatal("expected delivery to wait for the dispatcher")
	}
	if d.Pending() != 1 {
		t.Errorf("expected 1 pending delivery, got %d", d.Pending())
	}
	d.Flush()
	if len(got) != 1 || got[0] != EventClick {
		t.Errorf("expected one click, got %v", got)
	}
}

func TestSubscription_CancelRemovesListenerOnce(t *testing.T) {
	ctx := context.Background()
	h := NewResolver[string]("m", &stubFactory{}).Create(ctx, nil)
	src := newStubSource()

	sub := BindEvent[string](ctx, h, src, EventMoving, NewSyncDispatcher()).Subscribe(func(Event) {})
	if err := sub.Registered().Wait(ctx); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	sub.Cancel()
	sub.Cancel()
	waitClosed(t, sub.Done(), "cancellation")

	listening, removed := src.counts()
	if listening != 0 {
		t.Errorf("expected no listeners left, got %d", listening)
	}
	if removed != 1 {
		t.Errorf("expected exactly 1 removal, got %d", removed)
	}
}

func TestSubscription_CancelBeforeResolutionIsNoop(t *testing.T) {
	ctx := context.Background()
	f := &stubFactory{gate: make(chan struct{})}
	h := NewResolver[string]("m", f).Create(ctx, nil)
	src := newStubSource()

	sub := BindEvent[string](ctx, h, src, EventClick, NewSyncDispatcher()).Subscribe(func(Event) {})
	sub.Cancel()

	close(f.gate)
	waitClosed(t, sub.Done(), "cancellation")

	listening, removed := src.counts()
	if listening != 0 || removed != 0 {
		t.Errorf("expected no registration and no removal, got %d listening, %d removed", listening, removed)
	}
}

func TestSubscription_GroupCancelsChildren(t *testing.T) {
	ctx := context.Background()
	h := NewResolver[string]("m", &stubFactory{}).Create(ctx, nil)
	src := newStubSource()
	d := NewSyncDispatcher()

	group := NewSubscription()
	for _, name := range []string{EventClick, EventMoving, EventMoveEnd, EventMoveAlong} {
		sub := BindEvent[string](ctx, h, src, name, d).Subscribe(func(Event) {})
		group.Add(sub)
		if err := sub.Registered().Wait(ctx); err != nil {
			t.Fatalf("registration failed: %v", err)
		}
	}

	group.Cancel()
	waitClosed(t, group.Done(), "group cancellation")

	_, removed := src.counts()
	if removed != 4 {
		t.Errorf("expected 4 removals, got %d", removed)
	}

	late := NewSubscription()
	group.Add(late)
	if !late.Cancelled() {
		t.Error("expected a child added to a cancelled group to be cancelled")
	}
}

func TestSubscription_RegistrationFailure(t *testing.T) {
	ctx := context.Background()
	h := NewResolver[string]("m", &stubFactory{}).Create(ctx, nil)
	src := newStubSource()
	src.addErr = errors.New("unsupported event")

	sub := BindEvent[string](ctx, h, src, "dragend", NewSyncDispatcher()).Subscribe(func(Event) {})
	if err := sub.Registered().Wait(ctx); err == nil {
		t.Fatal("expected registration error")
	}
	sub.Cancel()
	waitClosed(t, sub.Done(), "cancellation")

	if _, removed := src.counts(); removed != 0 {
		t.Errorf("expected no removal for a failed registration, got %d", removed)
	}
}

func TestDispatcher_RunDrainsInOrder(t *testing.T) {
	d := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	done := make(chan struct{})
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		d.Post(func() { order = append(order, i) })
	}
	d.Post(func() { close(done) })

	waitClosed(t, done, "dispatcher")
	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
}

func TestDispatcher_FlushRunsNestedPosts(t *testing.T) {
	d := NewSyncDispatcher()
	ran := 0
	d.Post(func() {
		ran++
		d.Post(func() { ran++ })
	})

	if n := d.Flush(); n != 2 {
		t.Errorf("expected 2 tasks flushed, got %d", n)
	}
	if ran != 2 {
		t.Errorf("expected 2 runs, got %d", ran)
	}
}

func TestDispatcher_SyncRunReturns(_ *testing.T) {
	NewSyncDispatcher().Run(context.Background())
}

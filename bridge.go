package beacon

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"
)

// Remote event names.
const (
	EventClick     = "click"
	EventMoving    = "moving"
	EventMoveEnd   = "moveend"
	EventMoveAlong = "movealong"
)

// Event is a notification fired by a remote object.
type Event struct {
	Name     string         `json:"name"`
	Position *LngLat        `json:"position,omitempty"`
	Pixel    *Pixel         `json:"pixel,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// ListenerID identifies a listener registration on the remote side.
type ListenerID string

// EventSource registers listeners for named events on remote objects.
type EventSource[T any] interface {
	AddListener(ctx context.Context, target T, event string, fn func(Event)) (ListenerID, error)
	RemoveListener(ctx context.Context, id ListenerID) error
}

// Subscription is a cancellation token. It may group child subscriptions;
// cancelling it cancels every child. Cancel is idempotent.
type Subscription struct {
	once      sync.Once
	cancelled atomic.Bool
	teardown  func(finish func())
	done      chan struct{}
	register  *Op

	mu       sync.Mutex
	children []*Subscription
}

// NewSubscription creates an empty Subscription, typically used as a group.
func NewSubscription() *Subscription {
	return &Subscription{done: make(chan struct{})}
}

// Add groups child under s. If s is already cancelled, child is cancelled
// immediately.
func (s *Subscription) Add(child *Subscription) {
	if child == nil {
		return
	}
	s.mu.Lock()
	if s.cancelled.Load() {
		s.mu.Unlock()
		child.Cancel()
		return
	}
	s.children = append(s.children, child)
	s.mu.Unlock()
}

// Cancelled reports whether Cancel has been called.
func (s *Subscription) Cancelled() bool {
	return s.cancelled.Load()
}

// Cancel releases the subscription and all of its children, exactly once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.mu.Lock()
		s.cancelled.Store(true)
		children := s.children
		s.children = nil
		s.mu.Unlock()

		for _, c := range children {
			c.Cancel()
		}

		finish := func() {
			go func() {
				for _, c := range children {
					<-c.done
				}
				close(s.done)
			}()
		}
		if s.teardown != nil {
			s.teardown(finish)
			return
		}
		finish()
	})
}

// Registered returns the listener registration outcome. For a group it is
// already settled.
func (s *Subscription) Registered() *Op {
	if s.register == nil {
		return settledOp(nil)
	}
	return s.register
}

// Done returns a channel that is closed once cancellation has completed for
// s and every child. A registration still waiting on a handle that never
// settles keeps it open.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// EventStream is a push stream of one named event from the object behind a
// handle.
type EventStream[T any] struct {
	ctx        context.Context
	handle     *Handle[T]
	source     EventSource[T]
	name       string
	dispatcher *Dispatcher
}

// BindEvent returns a stream of the named event. Nothing is registered on the
// remote side until Subscribe is called.
func BindEvent[T any](ctx context.Context, h *Handle[T], source EventSource[T], name string, d *Dispatcher) *EventStream[T] {
	return &EventStream[T]{
		ctx:        context.WithoutCancel(ctx),
		handle:     h,
		source:     source,
		name:       name,
		dispatcher: d,
	}
}

// Name returns the event name.
func (s *EventStream[T]) Name() string {
	return s.name
}

// Subscribe registers fn for the event once the handle resolves. Each firing
// is delivered through the dispatcher, never from within the remote
// callback. Cancelling the returned Subscription removes the listener once
// registration completed; if the handle never resolves it does nothing.
func (s *EventStream[T]) Subscribe(fn func(Event)) *Subscription {
	sub := NewSubscription()
	var id ListenerID

	op := s.handle.Enqueue("event:"+s.name, func(target T) error {
		if sub.Cancelled() {
			return nil
		}
		lid, err := s.source.AddListener(s.ctx, target, s.name, func(e Event) {
			s.dispatcher.Post(func() {
				if sub.Cancelled() {
					return
				}
				capitan.Emit(s.ctx, EventDelivered, KeyEvent.Field(s.name))
				fn(e)
			})
		})
		if err != nil {
			capitan.Emit(s.ctx, EventBindFailed,
				KeyEvent.Field(s.name),
				KeyError.Field(err.Error()),
			)
			return err
		}
		id = lid
		return nil
	})

	sub.register = op
	sub.teardown = func(finish func()) {
		go func() {
			<-op.Done()
			if op.Err() == nil && id != "" {
				if err := s.source.RemoveListener(s.ctx, id); err != nil {
					capitan.Emit(s.ctx, EventUnbindFailed,
						KeyEvent.Field(s.name),
						KeyError.Field(err.Error()),
					)
				}
			}
			finish()
		}()
	}
	return sub
}

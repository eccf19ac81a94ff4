package beacon

import (
	"context"
	"sync"
)

// Op is the eventual outcome of an operation chained off a Handle.
type Op struct {
	done chan struct{}
	err  error
}

func newOp() *Op {
	return &Op{done: make(chan struct{})}
}

// settledOp returns an Op that has already completed with err.
func settledOp(err error) *Op {
	op := newOp()
	op.finish(err)
	return op
}

func (o *Op) finish(err error) {
	o.err = err
	close(o.done)
}

// Done returns a channel that is closed once the operation settles.
func (o *Op) Done() <-chan struct{} {
	return o.done
}

// Err returns the operation's error. It is only meaningful after Done is closed.
func (o *Op) Err() error {
	select {
	case <-o.done:
		return o.err
	default:
		return nil
	}
}

// Wait blocks until the operation settles or ctx is done.
func (o *Op) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitAll waits for every op and returns the first error encountered.
func WaitAll(ctx context.Context, ops ...*Op) error {
	var first error
	for _, op := range ops {
		if op == nil {
			continue
		}
		if err := op.Wait(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type queued[T any] struct {
	fn func(T) error
	op *Op
}

type lane[T any] struct {
	ops     []queued[T]
	running bool
}

// Handle owns exactly one eventually-available remote object.
//
// Operations are chained off the handle with Enqueue. They never run before
// the object is delivered, and operations sharing a lane run one at a time in
// the order they were enqueued. Distinct lanes run concurrently.
//
// A Handle is written only by its Resolver. Everything else reads it.
type Handle[T any] struct {
	mu       sync.Mutex
	state    HandleState
	value    T
	err      error
	settled  chan struct{}
	released chan struct{}
	lanes    map[string]*lane[T]
	inflight sync.WaitGroup
	dispose  func(T)
}

func newHandle[T any](dispose func(T)) *Handle[T] {
	return &Handle[T]{
		state:    HandlePending,
		settled:  make(chan struct{}),
		released: make(chan struct{}),
		lanes:    make(map[string]*lane[T]),
		dispose:  dispose,
	}
}

// State returns the current state of the handle.
func (h *Handle[T]) State() HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Settled returns a channel that is closed once the factory call completes,
// successfully or not.
func (h *Handle[T]) Settled() <-chan struct{} {
	return h.settled
}

// Released returns a channel that is closed once a released handle has
// drained its queued operations and disposed of its object. It never closes
// if the factory call never completes.
func (h *Handle[T]) Released() <-chan struct{} {
	return h.released
}

// resolve delivers the remote object. If the handle was already released
// the object is disposed once queued operations drain.
func (h *Handle[T]) resolve(v T) {
	h.mu.Lock()
	h.value = v
	if h.state == HandlePending {
		h.state = HandleResolved
	}
	h.mu.Unlock()
	close(h.settled)
}

// fail records a creation failure. Every queued and future operation fails
// with err.
func (h *Handle[T]) fail(err error) {
	h.mu.Lock()
	h.err = err
	if h.state == HandlePending {
		h.state = HandleFailed
	}
	h.mu.Unlock()
	close(h.settled)
}

// Await blocks until the remote object is available.
func (h *Handle[T]) Await(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-h.settled:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == HandleReleased {
		return zero, ErrReleased
	}
	if h.err != nil {
		return zero, h.err
	}
	return h.value, nil
}

// Enqueue chains fn off the handle on the named lane. The returned Op settles
// with fn's result, with the creation error if the factory failed, or
// immediately with ErrReleased if the handle was already released.
func (h *Handle[T]) Enqueue(name string, fn func(T) error) *Op {
	h.mu.Lock()
	if h.state == HandleReleased {
		h.mu.Unlock()
		return settledOp(ErrReleased)
	}
	op := newOp()
	l := h.lanes[name]
	if l == nil {
		l = &lane[T]{}
		h.lanes[name] = l
	}
	l.ops = append(l.ops, queued[T]{fn: fn, op: op})
	if !l.running {
		l.running = true
		h.inflight.Add(1)
		go h.drain(l)
	}
	h.mu.Unlock()
	return op
}

func (h *Handle[T]) drain(l *lane[T]) {
	defer h.inflight.Done()
	<-h.settled
	for {
		h.mu.Lock()
		if len(l.ops) == 0 {
			l.running = false
			h.mu.Unlock()
			return
		}
		next := l.ops[0]
		l.ops[0] = queued[T]{}
		l.ops = l.ops[1:]
		v, err := h.value, h.err
		h.mu.Unlock()

		if err != nil {
			next.op.finish(err)
			continue
		}
		next.op.finish(next.fn(v))
	}
}

// release marks the handle released. Operations already queued still settle.
// Once the factory call completes and the queue drains, a delivered object
// is handed to dispose. release reports false if the handle was already
// released.
func (h *Handle[T]) release() bool {
	h.mu.Lock()
	if h.state == HandleReleased {
		h.mu.Unlock()
		return false
	}
	h.state = HandleReleased
	h.mu.Unlock()

	go func() {
		<-h.settled
		h.inflight.Wait()
		h.mu.Lock()
		v, err := h.value, h.err
		h.mu.Unlock()
		if err == nil && h.dispose != nil {
			h.dispose(v)
		}
		close(h.released)
	}()
	return true
}

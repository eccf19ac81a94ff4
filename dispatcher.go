package beacon

import (
	"context"
	"sync"
)

// Dispatcher runs posted tasks one at a time, in order, on a later turn than
// the one that posted them. Remote event callbacks post through a Dispatcher
// so subscribers never run inside the SDK's own call stack.
//
// In async mode Run drains the queue on its own goroutine. In sync mode tasks
// accumulate until Flush is called, which makes tests deterministic.
type Dispatcher struct {
	mu      sync.Mutex
	tasks   []func()
	wake    chan struct{}
	sync    bool
	running bool
}

// NewDispatcher creates an async Dispatcher. Call Run to start it.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{wake: make(chan struct{}, 1)}
}

// NewSyncDispatcher creates a Dispatcher whose tasks only run on Flush.
func NewSyncDispatcher() *Dispatcher {
	return &Dispatcher{wake: make(chan struct{}, 1), sync: true}
}

// Post queues fn. It never blocks.
func (d *Dispatcher) Post(fn func()) {
	d.mu.Lock()
	d.tasks = append(d.tasks, fn)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued tasks.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}

// Flush runs every queued task, including tasks posted while flushing, and
// returns how many ran.
func (d *Dispatcher) Flush() int {
	n := 0
	for {
		fn := d.next()
		if fn == nil {
			return n
		}
		fn()
		n++
	}
}

func (d *Dispatcher) next() func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.tasks) == 0 {
		return nil
	}
	fn := d.tasks[0]
	d.tasks[0] = nil
	d.tasks = d.tasks[1:]
	return fn
}

// Run drains the queue until ctx is done. It returns immediately for a sync
// Dispatcher or one that is already running.
func (d *Dispatcher) Run(ctx context.Context) {
	d.mu.Lock()
	if d.sync || d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	for {
		d.Flush()
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		}
	}
}

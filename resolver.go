package beacon

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"
)

// Factory creates and destroys remote objects of one kind.
type Factory[T any] interface {
	// Create builds a remote object from the full option set. It may block
	// until the remote side answers.
	Create(ctx context.Context, opts Options) (T, error)

	// Destroy disposes of a remote object previously returned by Create.
	Destroy(ctx context.Context, v T) error
}

// Resolver models a create-once, use-many asynchronous resource. The first
// Create call starts the factory call and returns a pending Handle; every
// later call returns the same Handle.
type Resolver[T any] struct {
	name    string
	factory Factory[T]

	mu     sync.Mutex
	handle *Handle[T]
	calls  atomic.Int32
}

// NewResolver creates a Resolver around factory. name identifies the owner in
// signals.
func NewResolver[T any](name string, factory Factory[T]) *Resolver[T] {
	return &Resolver[T]{name: name, factory: factory}
}

// Handle returns the handle, or nil if Create has not been called.
func (r *Resolver[T]) Handle() *Handle[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handle
}

// Calls returns how many times the factory's Create has been invoked.
func (r *Resolver[T]) Calls() int {
	return int(r.calls.Load())
}

// Create requests the remote object with opts. Only the first call reaches
// the factory. The factory call and the eventual dispose inherit ctx's
// values but not its cancellation.
func (r *Resolver[T]) Create(ctx context.Context, opts Options) *Handle[T] {
	r.mu.Lock()
	if r.handle != nil {
		h := r.handle
		r.mu.Unlock()
		return h
	}
	base := context.WithoutCancel(ctx)
	h := newHandle(func(v T) {
		if err := r.factory.Destroy(base, v); err != nil {
			capitan.Emit(base, HandleDisposeFailed,
				KeyMarker.Field(r.name),
				KeyError.Field(err.Error()),
			)
			return
		}
		capitan.Emit(base, HandleDisposed, KeyMarker.Field(r.name))
	})
	r.handle = h
	r.mu.Unlock()

	r.calls.Add(1)
	go func() {
		v, err := r.factory.Create(base, opts)
		if err != nil {
			capitan.Emit(base, HandleCreateFailed,
				KeyMarker.Field(r.name),
				KeyError.Field(err.Error()),
			)
			h.fail(creationFailed(err))
			return
		}
		h.resolve(v)
	}()
	return h
}

// Destroy releases the handle. It is safe while the handle is pending (the
// object is disposed once it arrives) and a no-op once failed or released.
// Destroy reports whether this call performed the release.
func (r *Resolver[T]) Destroy() bool {
	h := r.Handle()
	if h == nil {
		return false
	}
	return h.release()
}

package beacon

import "context"

// Watcher observes a declaration source and emits raw documents on a channel.
// Implementations must emit the current document immediately upon Watch()
// being called so a Binding can apply it on start.
type Watcher interface {
	// Watch begins observing the source. The channel is closed when ctx is
	// cancelled or the source fails unrecoverably.
	Watch(ctx context.Context) (<-chan []byte, error)
}

// WatcherFunc adapts a function to the Watcher interface.
type WatcherFunc func(ctx context.Context) (<-chan []byte, error)

// Watch calls f(ctx).
func (f WatcherFunc) Watch(ctx context.Context) (<-chan []byte, error) {
	return f(ctx)
}

// ChannelWatcher wraps an existing document channel as a Watcher.
// Useful for tests and for sources that already produce documents.
type ChannelWatcher struct {
	ch     <-chan []byte
	direct bool
}

// NewChannelWatcher creates a ChannelWatcher that relays documents through
// its own goroutine and stops relaying when the watch context ends.
func NewChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch}
}

// NewSyncChannelWatcher creates a ChannelWatcher that hands out ch itself.
// Pair it with a Binding in sync mode for deterministic tests.
func NewSyncChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch, direct: true}
}

// Watch returns a channel that emits the wrapped channel's documents.
func (w *ChannelWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	if w.direct {
		return w.ch, nil
	}
	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			var doc []byte
			var ok bool
			select {
			case <-ctx.Done():
				return
			case doc, ok = <-w.ch:
			}
			if !ok || !send(ctx, out, doc) {
				return
			}
		}
	}()
	return out, nil
}

// send delivers doc on out unless ctx ends first.
func send(ctx context.Context, out chan<- []byte, doc []byte) bool {
	select {
	case out <- doc:
		return true
	case <-ctx.Done():
		return false
	}
}

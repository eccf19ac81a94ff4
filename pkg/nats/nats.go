// Package nats provides a beacon.Watcher for marker declarations stored in
// a NATS JetStream key-value bucket.
package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/zoobzio/beacon"
)

// Watcher watches one key of a JetStream KV bucket.
type Watcher struct {
	kv  jetstream.KeyValue
	key string
}

// New creates a Watcher for key in kv.
func New(kv jetstream.KeyValue, key string) *Watcher {
	return &Watcher{kv: kv, key: key}
}

// Watch emits the key's current value, then every value put afterwards.
// Deletes and purges are ignored so the marker keeps its last declaration.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	kw, err := w.kv.Watch(ctx, w.key)
	if err != nil {
		return nil, fmt.Errorf("failed to watch key %s: %w", w.key, err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		defer kw.Stop() //nolint:errcheck // Nothing to do on stop failure

		var last uint64
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-kw.Updates():
				if !ok {
					return
				}
				// A nil entry marks the end of the initial values.
				if entry == nil || !isValue(entry.Operation()) {
					continue
				}
				if entry.Revision() <= last {
					continue
				}
				last = entry.Revision()
				if !send(ctx, out, entry.Value()) {
					return
				}
			}
		}
	}()

	return out, nil
}

// isValue reports whether op carries a value.
func isValue(op jetstream.KeyValueOp) bool {
	return op == jetstream.KeyValuePut
}

func send(ctx context.Context, out chan<- []byte, v []byte) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

var _ beacon.Watcher = (*Watcher)(nil)

// Package consul provides a beacon.Watcher for marker declarations stored in
// Consul KV, using blocking queries.
package consul

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/zoobzio/beacon"
	"github.com/zoobzio/clockz"
)

// DefaultRetryInterval is the pause after a failed blocking query.
const DefaultRetryInterval = time.Second

// Watcher watches a Consul KV key holding a marker declaration.
type Watcher struct {
	client   *api.Client
	key      string
	waitTime time.Duration
	retry    time.Duration
	clock    clockz.Clock
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithWaitTime bounds each blocking query. Zero uses the agent default.
func WithWaitTime(d time.Duration) Option {
	return func(w *Watcher) {
		w.waitTime = d
	}
}

// WithRetryInterval sets the pause after a failed query.
// Default: DefaultRetryInterval.
func WithRetryInterval(d time.Duration) Option {
	return func(w *Watcher) {
		w.retry = d
	}
}

// WithClock sets the clock used for retry pauses.
func WithClock(clock clockz.Clock) Option {
	return func(w *Watcher) {
		w.clock = clock
	}
}

// New creates a new Watcher for the given Consul KV key.
func New(client *api.Client, key string, opts ...Option) *Watcher {
	w := &Watcher{
		client: client,
		key:    key,
		retry:  DefaultRetryInterval,
		clock:  clockz.RealClock,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch emits the key's current value, then its value whenever the key's
// modify index advances. Deletes are ignored.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	kv := w.client.KV()

	pair, meta, err := kv.Get(w.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get initial value: %w", err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)

		lastIndex := meta.LastIndex
		var lastModify uint64
		if pair != nil {
			lastModify = pair.ModifyIndex
			if !send(ctx, out, pair.Value) {
				return
			}
		}

		for {
			if ctx.Err() != nil {
				return
			}

			opts := (&api.QueryOptions{
				WaitIndex: lastIndex,
				WaitTime:  w.waitTime,
			}).WithContext(ctx)

			pair, meta, err := kv.Get(w.key, opts)
			if err != nil {
				if ctx.Err() != nil || !w.pause(ctx) {
					return
				}
				continue
			}

			// A lower index means the agent's state was reset.
			if meta.LastIndex < lastIndex {
				lastIndex = 0
				continue
			}
			lastIndex = meta.LastIndex

			if pair == nil || pair.ModifyIndex == lastModify {
				continue
			}
			lastModify = pair.ModifyIndex
			if !send(ctx, out, pair.Value) {
				return
			}
		}
	}()

	return out, nil
}

// pause waits out the retry interval. It reports false if ctx ended first.
func (w *Watcher) pause(ctx context.Context) bool {
	timer := w.clock.NewTimer(w.retry)
	defer timer.Stop()
	select {
	case <-timer.C():
		return true
	case <-ctx.Done():
		return false
	}
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

// Package etcd provides a beacon.Watcher for marker declarations stored in
// etcd keys, using the native Watch API.
package etcd

import (
	"context"
	"fmt"

	"github.com/zoobzio/beacon"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Watcher watches an etcd key holding a marker declaration.
type Watcher struct {
	client *clientv3.Client
	key    string
}

// New creates a new Watcher for the given etcd key.
func New(client *clientv3.Client, key string) *Watcher {
	return &Watcher{
		client: client,
		key:    key,
	}
}

// Watch emits the key's current value, then its value after every put.
// Deletes are ignored. When the watched revision is compacted away the
// current value is read again and watching resumes from there.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	resp, err := w.client.Get(ctx, w.key)
	if err != nil {
		return nil, fmt.Errorf("failed to get initial value: %w", err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)

		if len(resp.Kvs) > 0 && !send(ctx, out, resp.Kvs[0].Value) {
			return
		}
		rev := resp.Header.Revision + 1

		for {
			next, ok := w.follow(ctx, out, rev)
			if !ok {
				return
			}
			resp, err := w.client.Get(ctx, w.key)
			if err != nil {
				return
			}
			if len(resp.Kvs) > 0 && !send(ctx, out, resp.Kvs[0].Value) {
				return
			}
			rev = max(next, resp.Header.Revision+1)
		}
	}()

	return out, nil
}

// follow relays puts from rev on. It returns the revision to resume from
// and true when the watch was compacted, or false when watching should stop.
func (w *Watcher) follow(ctx context.Context, out chan<- []byte, rev int64) (int64, bool) {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for resp := range w.client.Watch(watchCtx, w.key, clientv3.WithRev(rev)) {
		if resp.CompactRevision != 0 {
			return resp.CompactRevision, true
		}
		if resp.Err() != nil {
			continue
		}
		for _, event := range resp.Events {
			if event.Type != clientv3.EventTypePut {
				continue
			}
			if !send(ctx, out, event.Kv.Value) {
				return 0, false
			}
		}
	}
	return 0, false
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

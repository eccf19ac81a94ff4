// Package redis provides a beacon.Watcher for marker declarations stored in
// Redis keys, using keyspace notifications.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/zoobzio/beacon"
)

// Watcher watches a Redis key holding a marker declaration.
// Requires Redis to have keyspace notifications enabled:
//
//	CONFIG SET notify-keyspace-events KEA
//
// Or in redis.conf:
//
//	notify-keyspace-events KEA
type Watcher struct {
	client *redis.Client
	key    string
	db     int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDB sets the database number used for the keyspace channel.
// Default: the client's configured database.
func WithDB(db int) Option {
	return func(w *Watcher) {
		w.db = db
	}
}

// New creates a new Watcher for the given Redis key.
func New(client *redis.Client, key string, opts ...Option) *Watcher {
	w := &Watcher{
		client: client,
		key:    key,
		db:     client.Options().DB,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Channel returns the keyspace notification channel for the watched key.
func (w *Watcher) Channel() string {
	return fmt.Sprintf("__keyspace@%d__:%s", w.db, w.key)
}

// Watch emits the key's current value, then its value after every write.
// A missing key emits nothing until it is first written.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	pubsub := w.client.Subscribe(ctx, w.Channel())

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to keyspace notifications: %w", err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		defer pubsub.Close()

		val, err := w.client.Get(ctx, w.key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return
		}
		if err == nil && !send(ctx, out, val) {
			return
		}

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if !isWrite(msg.Payload) {
					continue
				}
				val, err := w.client.Get(ctx, w.key).Bytes()
				if err != nil {
					continue
				}
				if !send(ctx, out, val) {
					return
				}
			}
		}
	}()

	return out, nil
}

// isWrite reports whether a keyspace event replaces the key's value.
func isWrite(event string) bool {
	switch event {
	case "set", "mset", "setex", "psetex", "setnx", "setrange", "append", "rename_to", "restore":
		return true
	}
	return false
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

// Package zookeeper provides a beacon.Watcher for marker declarations stored
// in ZooKeeper nodes.
package zookeeper

import (
	"context"
	"errors"

	"github.com/go-zookeeper/zk"
	"github.com/zoobzio/beacon"
)

// Conn is the subset of *zk.Conn the Watcher uses.
type Conn interface {
	GetW(path string) ([]byte, *zk.Stat, <-chan zk.Event, error)
	ExistsW(path string) (bool, *zk.Stat, <-chan zk.Event, error)
}

// Watcher watches a ZooKeeper node holding a marker declaration.
type Watcher struct {
	conn Conn
	path string
}

// New creates a Watcher for the node at path.
func New(conn Conn, path string) *Watcher {
	return &Watcher{conn: conn, path: path}
}

// Watch emits the node's data, then its data after every change. A missing
// or empty node emits nothing until it is written. The channel closes when
// ctx ends or the connection fails.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	out := make(chan []byte)

	go func() {
		defer close(out)

		var version int32 = -1
		for {
			data, stat, events, err := w.conn.GetW(w.path)
			switch {
			case errors.Is(err, zk.ErrNoNode):
				version = -1
				if !w.awaitCreate(ctx) {
					return
				}
				continue
			case err != nil:
				return
			}

			if len(data) > 0 && stat.Version != version {
				version = stat.Version
				if !send(ctx, out, data) {
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-events:
			}
		}
	}()

	return out, nil
}

// awaitCreate blocks until the node exists. It reports false when ctx ends
// or the existence watch cannot be set.
func (w *Watcher) awaitCreate(ctx context.Context) bool {
	exists, _, events, err := w.conn.ExistsW(w.path)
	if err != nil {
		return false
	}
	if exists {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-events:
		return true
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

// Package postgres provides a beacon.Watcher for marker declarations stored
// in a PostgreSQL table, using LISTEN/NOTIFY.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zoobzio/beacon"
)

// Defaults.
const (
	DefaultTable   = "beacon_markers"
	DefaultChannel = "beacon_markers"
)

// Watcher watches one row of a declaration table. The table needs a text
// key column and a value column, and a trigger notifying the channel with
// the row's key:
//
//	CREATE TABLE beacon_markers (key text PRIMARY KEY, value bytea NOT NULL);
//
//	CREATE OR REPLACE FUNCTION beacon_markers_notify() RETURNS trigger AS $$
//	BEGIN
//	    PERFORM pg_notify('beacon_markers', NEW.key);
//	    RETURN NEW;
//	END;
//	$$ LANGUAGE plpgsql;
//
//	CREATE TRIGGER beacon_markers_notify
//	    AFTER INSERT OR UPDATE ON beacon_markers
//	    FOR EACH ROW EXECUTE FUNCTION beacon_markers_notify();
type Watcher struct {
	pool    *pgxpool.Pool
	key     string
	table   string
	channel string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithTable sets the declaration table. Default: DefaultTable.
func WithTable(table string) Option {
	return func(w *Watcher) {
		w.table = table
	}
}

// WithChannel sets the notification channel. Default: DefaultChannel.
func WithChannel(channel string) Option {
	return func(w *Watcher) {
		w.channel = channel
	}
}

// New creates a Watcher for the row identified by key.
func New(pool *pgxpool.Pool, key string, opts ...Option) *Watcher {
	w := &Watcher{
		pool:    pool,
		key:     key,
		table:   DefaultTable,
		channel: DefaultChannel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) listenSQL() string {
	return "LISTEN " + pgx.Identifier{w.channel}.Sanitize()
}

func (w *Watcher) selectSQL() string {
	return "SELECT value FROM " + pgx.Identifier{w.table}.Sanitize() + " WHERE key = $1"
}

// Watch emits the row's current value, then its value after every
// notification naming the key. A missing row emits nothing until inserted.
// A dedicated connection is held for LISTEN until ctx ends.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	if _, err := conn.Exec(ctx, w.listenSQL()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on channel %s: %w", w.channel, err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		defer conn.Release()

		value, err := w.fetch(ctx)
		if err != nil {
			return
		}
		if value != nil && !send(ctx, out, value) {
			return
		}

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				// The listening connection is gone.
				return
			}
			if n.Payload != w.key {
				continue
			}
			value, err := w.fetch(ctx)
			if err != nil {
				return
			}
			if value != nil && !send(ctx, out, value) {
				return
			}
		}
	}()

	return out, nil
}

// fetch reads the row's value. A missing row yields nil.
func (w *Watcher) fetch(ctx context.Context) ([]byte, error) {
	var value []byte
	err := w.pool.QueryRow(ctx, w.selectSQL(), w.key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
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

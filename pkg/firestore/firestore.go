// Package firestore provides a beacon.Watcher for marker declarations kept
// in Firestore documents, using realtime snapshot listeners.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/goccy/go-json"
	"github.com/zoobzio/beacon"
	"github.com/zoobzio/clockz"
)

// Defaults.
const (
	DefaultField         = "declaration"
	DefaultRetryInterval = time.Second
)

// Watcher watches one field of a Firestore document. The field may hold
// the encoded declaration as a string or bytes, or the declaration itself
// as a map, which is emitted as JSON.
type Watcher struct {
	client        *firestore.Client
	collection    string
	document      string
	field         string
	retryInterval time.Duration
	clock         clockz.Clock
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithField sets the document field holding the declaration.
// Default: DefaultField.
func WithField(field string) Option {
	return func(w *Watcher) {
		w.field = field
	}
}

// WithRetryInterval sets the pause before a failed listener is reopened.
func WithRetryInterval(d time.Duration) Option {
	return func(w *Watcher) {
		w.retryInterval = d
	}
}

// WithClock sets the clock used for retry pauses.
func WithClock(clock clockz.Clock) Option {
	return func(w *Watcher) {
		w.clock = clock
	}
}

// New creates a Watcher for collection/document.
func New(client *firestore.Client, collection, document string, opts ...Option) *Watcher {
	w := &Watcher{
		client:        client,
		collection:    collection,
		document:      document,
		field:         DefaultField,
		retryInterval: DefaultRetryInterval,
		clock:         clockz.RealClock,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch emits the field's current value, then its value after every
// document update. Missing documents and fields emit nothing. A failed
// listener is reopened after the retry interval.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	ref := w.client.Collection(w.collection).Doc(w.document)
	out := make(chan []byte)

	go func() {
		defer close(out)

		var last time.Time
		for {
			if !w.listen(ctx, ref, out, &last) {
				return
			}
			if !w.pause(ctx) {
				return
			}
		}
	}()

	return out, nil
}

// listen follows ref's snapshots until the listener fails. It reports
// false when ctx ended.
func (w *Watcher) listen(ctx context.Context, ref *firestore.DocumentRef, out chan<- []byte, last *time.Time) bool {
	it := ref.Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			return ctx.Err() == nil
		}
		if !snap.Exists() || !snap.UpdateTime.After(*last) {
			continue
		}
		*last = snap.UpdateTime

		value, ok, err := extract(snap.Data(), w.field)
		if err != nil || !ok {
			continue
		}
		select {
		case out <- value:
		case <-ctx.Done():
			return false
		}
	}
}

// extract returns the encoded declaration stored under field.
func extract(data map[string]any, field string) ([]byte, bool, error) {
	switch v := data[field].(type) {
	case []byte:
		return v, true, nil
	case string:
		return []byte(v), true, nil
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, false, fmt.Errorf("failed to encode field %s: %w", field, err)
		}
		return b, true, nil
	default:
		return nil, false, nil
	}
}

func (w *Watcher) pause(ctx context.Context) bool {
	t := w.clock.NewTimer(w.retryInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C():
		return true
	}
}

// Put stores an encoded declaration under the default field, creating the
// document if needed.
func Put(ctx context.Context, client *firestore.Client, collection, document string, declaration []byte) error {
	_, err := client.Collection(collection).Doc(document).Set(ctx, map[string]any{
		DefaultField: declaration,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to put declaration: %w", err)
	}
	return nil
}

var _ beacon.Watcher = (*Watcher)(nil)

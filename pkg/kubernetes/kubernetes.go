// Package kubernetes provides a beacon.Watcher for marker declarations kept
// in a ConfigMap or Secret data key.
package kubernetes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zoobzio/beacon"
	"github.com/zoobzio/clockz"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
)

// ResourceType specifies the kind of object holding the declaration.
type ResourceType int

const (
	// ConfigMap reads the declaration from a ConfigMap's data.
	ConfigMap ResourceType = iota
	// Secret reads the declaration from a Secret's data.
	Secret
)

func (r ResourceType) String() string {
	if r == Secret {
		return "secret"
	}
	return "configmap"
}

// DefaultRetryInterval is the pause before re-establishing a failed watch.
const DefaultRetryInterval = time.Second

// Watcher watches one data key of a ConfigMap or Secret.
type Watcher struct {
	client        kubernetes.Interface
	namespace     string
	name          string
	key           string
	resourceType  ResourceType
	retryInterval time.Duration
	clock         clockz.Clock
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithResourceType sets the object kind. Default: ConfigMap.
func WithResourceType(rt ResourceType) Option {
	return func(w *Watcher) {
		w.resourceType = rt
	}
}

// WithRetryInterval sets the pause before a failed watch is re-established.
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

// New creates a Watcher for key in the named object.
func New(client kubernetes.Interface, namespace, name, key string, opts ...Option) *Watcher {
	w := &Watcher{
		client:        client,
		namespace:     namespace,
		name:          name,
		key:           key,
		resourceType:  ConfigMap,
		retryInterval: DefaultRetryInterval,
		clock:         clockz.RealClock,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// errWatchClosed is returned when the API server ends a watch.
var errWatchClosed = errors.New("watch channel closed")

// Watch emits the key's current value, then its value whenever it changes.
// Updates that leave the key untouched, a missing key and deletions emit
// nothing. Failed watches are re-established after the retry interval.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	out := make(chan []byte)

	go func() {
		defer close(out)

		var last []byte
		for {
			err := w.follow(ctx, out, &last)
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, errWatchClosed) && !w.pause(ctx) {
				return
			}
		}
	}()

	return out, nil
}

// follow reads the object and then watches it until the watch fails.
func (w *Watcher) follow(ctx context.Context, out chan<- []byte, last *[]byte) error {
	obj, version, err := w.get(ctx)
	switch {
	case apierrors.IsNotFound(err):
		version = ""
	case err != nil:
		return err
	default:
		if !w.emit(ctx, out, obj, last) {
			return ctx.Err()
		}
	}

	wi, err := w.watch(ctx, version)
	if err != nil {
		return fmt.Errorf("failed to start watch: %w", err)
	}
	defer wi.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-wi.ResultChan():
			if !ok {
				return errWatchClosed
			}
			switch event.Type {
			case watch.Error:
				return apierrors.FromObject(event.Object)
			case watch.Added, watch.Modified:
				if !w.emit(ctx, out, event.Object, last) {
					return ctx.Err()
				}
			}
		}
	}
}

func (w *Watcher) get(ctx context.Context) (runtime.Object, string, error) {
	if w.resourceType == Secret {
		s, err := w.client.CoreV1().Secrets(w.namespace).Get(ctx, w.name, metav1.GetOptions{})
		if err != nil {
			return nil, "", err
		}
		return s, s.ResourceVersion, nil
	}
	cm, err := w.client.CoreV1().ConfigMaps(w.namespace).Get(ctx, w.name, metav1.GetOptions{})
	if err != nil {
		return nil, "", err
	}
	return cm, cm.ResourceVersion, nil
}

func (w *Watcher) watch(ctx context.Context, version string) (watch.Interface, error) {
	opts := metav1.ListOptions{
		FieldSelector:   "metadata.name=" + w.name,
		ResourceVersion: version,
	}
	if w.resourceType == Secret {
		return w.client.CoreV1().Secrets(w.namespace).Watch(ctx, opts)
	}
	return w.client.CoreV1().ConfigMaps(w.namespace).Watch(ctx, opts)
}

// value extracts the watched key. ok is false when the key is absent.
func (w *Watcher) value(obj runtime.Object) ([]byte, bool) {
	switch o := obj.(type) {
	case *corev1.ConfigMap:
		if v, ok := o.Data[w.key]; ok {
			return []byte(v), true
		}
		v, ok := o.BinaryData[w.key]
		return v, ok
	case *corev1.Secret:
		v, ok := o.Data[w.key]
		return v, ok
	}
	return nil, false
}

// emit sends obj's value unless it is absent or unchanged. It reports false
// when ctx ended.
func (w *Watcher) emit(ctx context.Context, out chan<- []byte, obj runtime.Object, last *[]byte) bool {
	if m, ok := obj.(metav1.Object); ok && m.GetName() != w.name {
		return true
	}
	v, ok := w.value(obj)
	if !ok || (*last != nil && bytes.Equal(v, *last)) {
		return true
	}
	*last = v
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
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

var _ beacon.Watcher = (*Watcher)(nil)

package beacontest

import (
	"context"
	"fmt"
	"sync"

	"github.com/zoobzio/beacon"
)

// Call is one recorded remote method invocation.
type Call struct {
	Method string
	Args   []any
}

type listener struct {
	target *Remote
	event  string
	fn     func(beacon.Event)
}

// SDK is an in-memory beacon.SDK that records every call.
//
// Create may be held open with Hold to exercise pending handles, and made to
// fail with FailCreate. Fire invokes registered listeners synchronously, the
// way a real SDK calls back from inside its own event loop.
type SDK struct {
	mu        sync.Mutex
	creates   []beacon.Options
	remotes   []*Remote
	destroyed []*Remote
	listeners map[beacon.ListenerID]listener
	added     int
	removed   []beacon.ListenerID
	createErr error
	listenErr error
	gate      chan struct{}
	nextID    int
}

// NewSDK creates an empty recording SDK.
func NewSDK() *SDK {
	return &SDK{listeners: make(map[beacon.ListenerID]listener)}
}

// FailCreate makes every later Create fail with err.
func (s *SDK) FailCreate(err error) *SDK {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createErr = err
	return s
}

// FailListen makes every later AddListener fail with err.
func (s *SDK) FailListen(err error) *SDK {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listenErr = err
	return s
}

// Hold blocks Create until the returned function is called.
func (s *SDK) Hold() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Create records opts and returns a new Remote.
func (s *SDK) Create(ctx context.Context, opts beacon.Options) (beacon.Remote, error) {
	s.mu.Lock()
	s.creates = append(s.creates, opts)
	gate, err := s.gate, s.createErr
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	r := newRemote(opts)
	s.mu.Lock()
	s.remotes = append(s.remotes, r)
	s.mu.Unlock()
	return r, nil
}

// Destroy records the disposal of r.
func (s *SDK) Destroy(_ context.Context, r beacon.Remote) error {
	rr, ok := r.(*Remote)
	if !ok {
		return fmt.Errorf("beacontest: foreign remote %T", r)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = append(s.destroyed, rr)
	return nil
}

// AddListener registers fn for event on target.
func (s *SDK) AddListener(_ context.Context, target beacon.Remote, event string, fn func(beacon.Event)) (beacon.ListenerID, error) {
	rr, ok := target.(*Remote)
	if !ok {
		return "", fmt.Errorf("beacontest: foreign remote %T", target)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listenErr != nil {
		return "", s.listenErr
	}
	s.nextID++
	id := beacon.ListenerID(fmt.Sprintf("listener-%d", s.nextID))
	s.listeners[id] = listener{target: rr, event: event, fn: fn}
	s.added++
	return id, nil
}

// RemoveListener drops a registration.
func (s *SDK) RemoveListener(_ context.Context, id beacon.ListenerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listeners[id]; !ok {
		return fmt.Errorf("beacontest: unknown listener %s", id)
	}
	delete(s.listeners, id)
	s.removed = append(s.removed, id)
	return nil
}

// Fire invokes every listener registered for event and returns how many ran.
func (s *SDK) Fire(event string, e beacon.Event) int {
	s.mu.Lock()
	var fns []func(beacon.Event)
	for _, l := range s.listeners {
		if l.event == event {
			fns = append(fns, l.fn)
		}
	}
	s.mu.Unlock()

	e.Name = event
	for _, fn := range fns {
		fn(e)
	}
	return len(fns)
}

// Creates returns the option sets passed to Create.
func (s *SDK) Creates() []beacon.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]beacon.Options(nil), s.creates...)
}

// Remote returns the most recently created remote, or nil.
func (s *SDK) Remote() *Remote {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.remotes) == 0 {
		return nil
	}
	return s.remotes[len(s.remotes)-1]
}

// Destroyed returns how many remotes were disposed.
func (s *SDK) Destroyed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.destroyed)
}

// Added returns how many listeners were ever registered.
func (s *SDK) Added() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.added
}

// Listeners returns how many listeners are currently registered.
func (s *SDK) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Removed returns how many listeners were removed.
func (s *SDK) Removed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.removed)
}

var _ beacon.SDK = (*SDK)(nil)

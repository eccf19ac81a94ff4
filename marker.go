package beacon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

const (
	laneLifecycle = "lifecycle"
	laneMove      = "move"
	laneMap       = "map"
)

// validate is the shared validator instance.
var validate = validator.New()

// Marker keeps a declared Spec consistent with one remote marker object.
//
// The remote object is created lazily on the first Apply carrying a
// recognized field. Later Applies issue exactly one setter per changed field.
// Once the object resolves, click, moving, moveend and movealong events are
// bound and OnReady fires. Destroy cancels every listener and releases the
// remote object.
//
// Instance configuration uses chainable methods and must happen before the
// first Apply.
type Marker struct {
	name       string
	sdk        SDK
	syncMode   bool
	dispatcher *Dispatcher
	clock      clockz.Clock
	metrics    MetricsProvider
	icons      ValueFactory[Icon]
	pixels     ValueFactory[Pixel]
	labels     ValueFactory[Label]
	errs       *errorLog

	onReady     func(Remote)
	onClick     func(Event)
	onMoving    func(Event)
	onMoveEnd   func(Event)
	onMoveAlong func(Event)

	state atomic.Int32

	mu         sync.Mutex
	values     Values
	applied    bool
	resolver   *Resolver[Remote]
	sync       *synchronizer
	ready      *Op
	events     *Subscription
	infoWindow InfoWindow
	external   bool
	stopRun    context.CancelFunc
}

// New creates a Marker named name whose remote object is built by sdk.
//
// Example:
//
//	m := beacon.New("depot", sdk).
//	    OnClick(func(e beacon.Event) { log.Printf("clicked at %v", e.Position) })
//
//	err := m.Apply(ctx, beacon.Spec{
//	    Position:  &beacon.LngLat{Lng: 116.39, Lat: 39.9},
//	    Draggable: beacon.Ptr(true),
//	})
func New(name string, sdk SDK) *Marker {
	m := &Marker{
		name:       name,
		sdk:        sdk,
		dispatcher: NewDispatcher(),
		clock:      clockz.RealClock,
		metrics:    NoOpMetricsProvider{},
		icons:      defaultIcons(),
		pixels:     Passthrough[Pixel](),
		labels:     Passthrough[Label](),
		errs:       newErrorLog(0),
		events:     NewSubscription(),
	}
	m.resolver = NewResolver[Remote](name, sdk)
	m.state.Store(int32(StateUninitialized))
	return m
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// SyncMode makes the marker deterministic for tests. Apply, Destroy and
// imperative calls wait for the remote calls they issue, and events are only
// delivered when the dispatcher is flushed.
func (m *Marker) SyncMode() *Marker {
	m.syncMode = true
	m.dispatcher = NewSyncDispatcher()
	return m
}

// DeliverWith sets the dispatcher that delivers events. The caller owns it
// and is responsible for running it.
func (m *Marker) DeliverWith(d *Dispatcher) *Marker {
	m.dispatcher = d
	m.external = true
	return m
}

// Clock sets a custom clock for latency measurements.
func (m *Marker) Clock(clock clockz.Clock) *Marker {
	m.clock = clock
	return m
}

// Metrics sets a metrics provider for observability integration.
func (m *Marker) Metrics(provider MetricsProvider) *Marker {
	m.metrics = provider
	return m
}

// ErrorHistorySize sets the number of recent errors to retain.
// Use 0 (default) to only retain the most recent error via LastError().
func (m *Marker) ErrorHistorySize(n int) *Marker {
	m.errs = newErrorLog(n)
	return m
}

// Icons sets the value factory for the icon and shadow fields.
func (m *Marker) Icons(f ValueFactory[Icon]) *Marker {
	m.icons = f
	return m
}

// Pixels sets the value factory for the offset field.
func (m *Marker) Pixels(f ValueFactory[Pixel]) *Marker {
	m.pixels = f
	return m
}

// Labels sets the value factory for the label field.
func (m *Marker) Labels(f ValueFactory[Label]) *Marker {
	m.labels = f
	return m
}

// OnReady sets the callback invoked with the remote object once it resolves.
func (m *Marker) OnReady(fn func(Remote)) *Marker {
	m.onReady = fn
	return m
}

// OnClick sets the click callback.
func (m *Marker) OnClick(fn func(Event)) *Marker {
	m.onClick = fn
	return m
}

// OnMoving sets the callback for animation progress events.
func (m *Marker) OnMoving(fn func(Event)) *Marker {
	m.onMoving = fn
	return m
}

// OnMoveEnd sets the callback for the end of a MoveTo animation.
func (m *Marker) OnMoveEnd(fn func(Event)) *Marker {
	m.onMoveEnd = fn
	return m
}

// OnMoveAlong sets the callback for the end of a MoveAlong animation.
func (m *Marker) OnMoveAlong(fn func(Event)) *Marker {
	m.onMoveAlong = fn
	return m
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

// Name returns the marker name.
func (m *Marker) Name() string {
	return m.name
}

// State returns the lifecycle state.
func (m *Marker) State() State {
	return State(m.state.Load())
}

// Values returns the last applied field values.
func (m *Marker) Values() Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(Values, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Handle returns the remote object's handle, or nil before creation.
func (m *Marker) Handle() *Handle[Remote] {
	return m.resolver.Handle()
}

// Dispatcher returns the dispatcher that delivers this marker's events.
func (m *Marker) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// Remote waits for and returns the remote object.
func (m *Marker) Remote(ctx context.Context) (Remote, error) {
	h := m.Handle()
	if h == nil {
		return nil, ErrNotCreated
	}
	return h.Await(ctx)
}

// LastError returns the last error encountered, or nil if no error occurred.
func (m *Marker) LastError() error {
	return m.errs.last()
}

// ErrorHistory returns the recent error history, oldest first.
// Returns nil if error history is not enabled (see ErrorHistorySize).
func (m *Marker) ErrorHistory() []error {
	return m.errs.history()
}

// ErrorCount returns how many errors the marker has recorded since it was
// configured. Unlike LastError it is not cleared by a later success.
func (m *Marker) ErrorCount() int64 {
	return m.errs.errors()
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Apply runs one change pass: spec is validated, diffed against the previous
// pass, and dispatched. The first pass carrying a recognized field creates
// the remote object from every recognized field; later passes issue one
// setter per changed field.
//
// A spec that fails validation is rejected and the previous values are kept.
// Setter failures are reported through signals and the error history, not
// returned.
func (m *Marker) Apply(ctx context.Context, spec Spec) error {
	if err := validate.Struct(spec); err != nil {
		m.errs.record(err)
		return fmt.Errorf("validation failed: %w", err)
	}

	m.mu.Lock()
	if m.State() == StateDestroyed {
		m.mu.Unlock()
		return ErrDestroyed
	}
	curr := spec.Values()
	batch := Diff(m.values, curr, !m.applied)
	m.values = curr
	m.applied = true

	var (
		ops     []*Op
		settled func()
	)
	switch {
	case m.sync != nil:
		f := NewChangeFilter(batch)
		ops = m.sync.apply(ctx, f)
		ops = append(ops, m.controls(ctx, f, curr)...)
	case hasRecognized(curr):
		ops, settled = m.create(ctx, curr)
	}
	m.mu.Unlock()

	if !m.syncMode {
		if settled != nil {
			go settled()
		}
		return nil
	}
	_ = WaitAll(ctx, ops...) //nolint:errcheck // Errors recorded per operation
	if settled != nil {
		settled()
	}
	return nil
}

// Ready blocks until the remote object is resolved and its events are bound.
// It returns the creation error if the factory failed.
func (m *Marker) Ready(ctx context.Context) error {
	m.mu.Lock()
	ready := m.ready
	m.mu.Unlock()
	if ready == nil {
		return ErrNotCreated
	}
	return ready.Wait(ctx)
}

// create requests the remote object. Callers hold m.mu. The returned func
// reports the creation outcome once it is known.
func (m *Marker) create(ctx context.Context, curr Values) ([]*Op, func()) {
	base := context.WithoutCancel(ctx)
	start := m.clock.Now()

	m.transition(ctx, StateCreated)
	if !m.external && !m.syncMode {
		runCtx, cancel := context.WithCancel(base)
		m.stopRun = cancel
		go m.dispatcher.Run(runCtx)
	}

	h := m.resolver.Create(ctx, OptionsFor(curr))
	m.sync = &synchronizer{
		name:    m.name,
		handle:  h,
		icons:   m.icons,
		pixels:  m.pixels,
		labels:  m.labels,
		clock:   m.clock,
		metrics: m.metrics,
		record:  m.errs.record,
	}
	capitan.Emit(ctx, MarkerCreated, KeyMarker.Field(m.name))

	ready := h.Enqueue(laneLifecycle, func(r Remote) error {
		return m.activate(base, r, start)
	})
	m.ready = ready
	settled := func() {
		<-ready.Done()
		if err := ready.Err(); errors.Is(err, ErrCreationFailed) {
			m.errs.record(err)
			m.metrics.OnCreateFailure(m.clock.Since(start))
		}
	}

	ops := []*Op{ready}
	if v, ok := curr[FieldIsTop].(bool); ok {
		ops = append(ops, m.sync.setTop(ctx, v))
	}
	if v, ok := curr[FieldAnimation].(string); ok && v != "" {
		ops = append(ops, m.sync.setAnimation(ctx, v))
	}
	if hidden, ok := curr[FieldHidden].(bool); ok && hidden {
		ops = append(ops, m.sync.setVisible(ctx, FieldHidden, false))
	}
	if m.infoWindow != nil {
		m.infoWindow.SetHost(h)
	}
	return ops, settled
}

// controls dispatches the control fields of a later pass. Callers hold m.mu.
func (m *Marker) controls(ctx context.Context, f *ChangeFilter, curr Values) []*Op {
	var ops []*Op
	Has[bool](f, FieldIsTop).Subscribe(func(v bool) {
		ops = append(ops, m.sync.setTop(ctx, v))
	})
	Has[string](f, FieldAnimation).Subscribe(func(v string) {
		ops = append(ops, m.sync.setAnimation(ctx, v))
	})
	visible := effectiveVisibility(curr)
	for _, field := range []string{FieldVisible, FieldHidden} {
		if f.Changed(field) {
			ops = append(ops, m.sync.setVisible(ctx, field, visible))
		}
	}
	return ops
}

// effectiveVisibility combines both visibility inputs: visible defaults to
// true and hidden always wins.
func effectiveVisibility(vals Values) bool {
	visible := true
	if v, ok := vals[FieldVisible].(bool); ok {
		visible = v
	}
	if h, ok := vals[FieldHidden].(bool); ok && h {
		return false
	}
	return visible
}

// activate runs once the remote object resolves. It binds the event streams
// exactly once, waits for their registration, then fires ready.
func (m *Marker) activate(ctx context.Context, r Remote, start time.Time) error {
	m.mu.Lock()
	if m.State() == StateDestroyed {
		m.mu.Unlock()
		return nil
	}
	m.metrics.OnCreateSuccess(m.clock.Since(start))
	h := m.resolver.Handle()
	handlers := map[string]func(Event){
		EventClick:     func(e Event) { m.handleClick(ctx, e) },
		EventMoving:    m.deliver(EventMoving, m.onMoving),
		EventMoveEnd:   m.deliver(EventMoveEnd, m.onMoveEnd),
		EventMoveAlong: m.deliver(EventMoveAlong, m.onMoveAlong),
	}
	var regs []*Op
	for _, name := range []string{EventClick, EventMoving, EventMoveEnd, EventMoveAlong} {
		sub := BindEvent(ctx, h, m.sdk, name, m.dispatcher).Subscribe(handlers[name])
		m.events.Add(sub)
		regs = append(regs, sub.Registered())
	}
	m.transition(ctx, StateActive)
	m.mu.Unlock()

	if err := WaitAll(ctx, regs...); err != nil {
		m.errs.record(err)
	}
	capitan.Emit(ctx, MarkerReady, KeyMarker.Field(m.name))
	if m.onReady != nil {
		m.dispatcher.Post(func() {
			if m.State() == StateActive {
				m.onReady(r)
			}
		})
	}
	return nil
}

func (m *Marker) deliver(name string, fn func(Event)) func(Event) {
	return func(e Event) {
		m.metrics.OnEventDelivered(name)
		if fn != nil {
			fn(e)
		}
	}
}

// handleClick opens the bound info window unless openInfoWindow is false,
// then forwards the event.
func (m *Marker) handleClick(ctx context.Context, e Event) {
	m.metrics.OnEventDelivered(EventClick)
	m.mu.Lock()
	open := true
	if v, ok := m.values[FieldOpenInfoWindow].(bool); ok {
		open = v
	}
	iw := m.infoWindow
	m.mu.Unlock()

	if open && iw != nil {
		if err := iw.Open(ctx); err != nil {
			m.errs.record(fmt.Errorf("open info window: %w", err))
		}
	}
	if m.onClick != nil {
		m.onClick(e)
	}
}

// Destroy tears the marker down from any state. Every event listener is
// cancelled and the remote object is released; queued operations still
// settle and a pending object is disposed once it arrives. Destroy is
// idempotent.
//
// In sync mode Destroy waits until listeners are removed and the remote
// object is disposed, or ctx is done.
func (m *Marker) Destroy(ctx context.Context) error {
	m.mu.Lock()
	if m.State() == StateDestroyed {
		m.mu.Unlock()
		return nil
	}
	m.transition(ctx, StateDestroyed)
	iw := m.infoWindow
	m.infoWindow = nil
	stop := m.stopRun
	m.mu.Unlock()

	m.events.Cancel()
	released := m.resolver.Destroy()
	if iw != nil {
		iw.SetHost(nil)
	}
	capitan.Emit(ctx, MarkerDestroyed, KeyMarker.Field(m.name))

	var err error
	if m.syncMode {
		err = m.awaitTeardown(ctx, released)
	}
	if stop != nil {
		stop()
	}
	return err
}

func (m *Marker) awaitTeardown(ctx context.Context, released bool) error {
	select {
	case <-m.events.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if !released {
		return nil
	}
	select {
	case <-m.resolver.Handle().Released():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transition moves the marker to next and reports the change.
func (m *Marker) transition(ctx context.Context, next State) {
	prev := State(m.state.Swap(int32(next)))
	if prev == next {
		return
	}
	capitan.Emit(ctx, MarkerStateChanged,
		KeyMarker.Field(m.name),
		KeyOldState.Field(prev.String()),
		KeyNewState.Field(next.String()),
	)
	m.metrics.OnStateChange(prev, next)
}

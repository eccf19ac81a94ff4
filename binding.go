package beacon

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultDebounce is the default debounce duration for declaration changes.
const DefaultDebounce = 100 * time.Millisecond

// InfoWindowSpec declares an info window hosted by a marker.
type InfoWindowSpec struct {
	Content  string `json:"content" yaml:"content" toml:"content" validate:"required"`
	Offset   *Pixel `json:"offset,omitempty" yaml:"offset,omitempty" toml:"offset,omitempty"`
	Anchor   string `json:"anchor,omitempty" yaml:"anchor,omitempty" toml:"anchor,omitempty" validate:"omitempty,oneof=top-left top-center top-right middle-left center middle-right bottom-left bottom-center bottom-right"`
	IsCustom bool   `json:"isCustom,omitempty" yaml:"isCustom,omitempty" toml:"isCustom,omitempty"`
}

// Declaration is a marker document as stored in a declaration source.
type Declaration struct {
	Marker      Spec             `json:"marker" yaml:"marker" toml:"marker"`
	InfoWindows []InfoWindowSpec `json:"infoWindows,omitempty" yaml:"infoWindows,omitempty" toml:"infoWindows,omitempty" validate:"dive"`
}

// Binding watches a declaration source and applies each document to a
// Marker. A document that fails to decode, validate or apply leaves the
// previously applied one in place and moves the Binding to a degraded state
// while it keeps watching for valid updates.
type Binding struct {
	watcher        Watcher
	marker         *Marker
	newInfoWindow  func(InfoWindowSpec) InfoWindow
	debounce       time.Duration
	startupTimeout time.Duration
	syncMode       bool
	clock          clockz.Clock
	codec          Codec
	metrics        MetricsProvider
	onStop         func(BindingState)

	state   atomic.Int32
	current atomic.Pointer[Declaration]
	errs    *errorLog

	mu      sync.Mutex
	started bool
	changes <-chan []byte
}

// NewBinding creates a Binding that applies documents from watcher to m.
//
// Example:
//
//	b := beacon.NewBinding(beacon.NewFileWatcher("depot.yaml"), marker).
//	    Codec(beacon.YAMLCodec{}).
//	    Debounce(200 * time.Millisecond)
//
//	if err := b.Start(ctx); err != nil {
//	    log.Printf("initial declaration failed: %v", err)
//	}
func NewBinding(watcher Watcher, m *Marker) *Binding {
	b := &Binding{
		watcher:  watcher,
		marker:   m,
		debounce: DefaultDebounce,
		clock:    clockz.RealClock,
		codec:    JSONCodec{},
		metrics:  NoOpMetricsProvider{},
		errs:     newErrorLog(0),
	}
	b.state.Store(int32(BindingLoading))
	return b
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Debounce sets the debounce duration for change processing.
// Documents arriving within this duration are coalesced into one update.
// Default: 100ms. Must be called before Start().
func (b *Binding) Debounce(d time.Duration) *Binding {
	b.debounce = d
	return b
}

// SyncMode processes documents only when Process is called, without
// debouncing or goroutines. Must be called before Start().
func (b *Binding) SyncMode() *Binding {
	b.syncMode = true
	return b
}

// Clock sets a custom clock for time operations.
// Use this with clockz.FakeClock for deterministic debounce testing.
func (b *Binding) Clock(clock clockz.Clock) *Binding {
	b.clock = clock
	return b
}

// Codec sets the codec for decoding documents. Default: JSONCodec.
func (b *Binding) Codec(codec Codec) *Binding {
	b.codec = codec
	return b
}

// StartupTimeout bounds how long Start waits for the first document.
// Default: no timeout.
func (b *Binding) StartupTimeout(d time.Duration) *Binding {
	b.startupTimeout = d
	return b
}

// Metrics sets a metrics provider for observability integration.
func (b *Binding) Metrics(provider MetricsProvider) *Binding {
	b.metrics = provider
	return b
}

// OnStop sets a callback invoked with the final state when watching stops.
func (b *Binding) OnStop(fn func(BindingState)) *Binding {
	b.onStop = fn
	return b
}

// ErrorHistorySize sets the number of recent errors to retain.
func (b *Binding) ErrorHistorySize(n int) *Binding {
	b.errs = newErrorLog(n)
	return b
}

// InfoWindows sets the constructor for declared info windows. Without it
// info window declarations are ignored.
func (b *Binding) InfoWindows(fn func(InfoWindowSpec) InfoWindow) *Binding {
	b.newInfoWindow = fn
	return b
}

// State returns the current state of the Binding.
func (b *Binding) State() BindingState {
	return BindingState(b.state.Load())
}

// Current returns the last applied declaration and true, or the zero value
// and false if none has been applied.
func (b *Binding) Current() (Declaration, bool) {
	ptr := b.current.Load()
	if ptr == nil {
		return Declaration{}, false
	}
	return *ptr, true
}

// LastError returns the last error encountered, or nil.
func (b *Binding) LastError() error {
	return b.errs.last()
}

// ErrorHistory returns the recent error history, oldest first.
func (b *Binding) ErrorHistory() []error {
	return b.errs.history()
}

// ErrorCount returns how many declarations have failed in total.
func (b *Binding) ErrorCount() int64 {
	return b.errs.errors()
}

// Start begins watching. It blocks until the first document is processed
// (successfully or not), then keeps watching asynchronously. If the first
// document fails Start returns the error but the Binding keeps watching.
//
// In sync mode Start only processes the first document; use Process for
// the following ones. Start can only be called once.
func (b *Binding) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return errors.New("binding already started")
	}
	b.started = true
	b.mu.Unlock()

	capitan.Emit(ctx, BindingStarted,
		KeyMarker.Field(b.marker.Name()),
		KeyDebounce.Field(b.debounce),
	)

	changes, err := b.watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	startupCtx := ctx
	if b.startupTimeout > 0 {
		var cancel context.CancelFunc
		startupCtx, cancel = b.clock.WithTimeout(ctx, b.startupTimeout)
		defer cancel()
	}

	var initialErr error
	select {
	case <-startupCtx.Done():
		if b.startupTimeout > 0 && errors.Is(startupCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("startup timeout: no declaration within %v", b.startupTimeout)
		}
		return startupCtx.Err()
	case raw, ok := <-changes:
		if !ok {
			return errors.New("watcher closed before emitting initial declaration")
		}
		b.received(ctx)
		initialErr = b.process(ctx, raw)
	}

	if b.syncMode {
		b.changes = changes
		return initialErr
	}
	go b.watch(ctx, changes)
	return initialErr
}

// Process reads and processes the next document from the watcher. It is
// only available in sync mode and reports false when nothing is pending.
func (b *Binding) Process(ctx context.Context) bool {
	if !b.syncMode {
		return false
	}
	select {
	case raw, ok := <-b.changes:
		if !ok {
			return false
		}
		b.received(ctx)
		_ = b.process(ctx, raw) //nolint:errcheck // Errors recorded in the error log
		return true
	default:
		return false
	}
}

func (b *Binding) received(ctx context.Context) {
	capitan.Emit(ctx, DeclarationReceived, KeyMarker.Field(b.marker.Name()))
	b.metrics.OnDeclarationReceived()
}

// process decodes, validates and applies a single document.
func (b *Binding) process(ctx context.Context, raw []byte) error {
	start := b.clock.Now()

	var decl Declaration
	if err := b.codec.Unmarshal(raw, &decl); err != nil {
		err = fmt.Errorf("decode failed: %w", err)
		capitan.Emit(ctx, DeclarationDecodeFailed,
			KeyMarker.Field(b.marker.Name()),
			KeyError.Field(err.Error()),
		)
		return b.fail(ctx, "decode", start, err)
	}
	if err := validate.Struct(decl); err != nil {
		err = fmt.Errorf("validation failed: %w", err)
		capitan.Emit(ctx, DeclarationValidationFailed,
			KeyMarker.Field(b.marker.Name()),
			KeyError.Field(err.Error()),
		)
		return b.fail(ctx, "validate", start, err)
	}
	if err := b.apply(ctx, decl); err != nil {
		err = fmt.Errorf("apply failed: %w", err)
		capitan.Emit(ctx, DeclarationApplyFailed,
			KeyMarker.Field(b.marker.Name()),
			KeyError.Field(err.Error()),
		)
		return b.fail(ctx, "apply", start, err)
	}

	b.current.Store(&decl)
	b.errs.reset()
	b.transition(ctx, BindingHealthy)
	capitan.Emit(ctx, DeclarationApplied, KeyMarker.Field(b.marker.Name()))
	return nil
}

// apply hands the marker spec to the marker and rebuilds info windows when
// their declaration changed.
func (b *Binding) apply(ctx context.Context, decl Declaration) error {
	if err := b.marker.Apply(ctx, decl.Marker); err != nil {
		return err
	}
	if b.newInfoWindow == nil {
		return nil
	}
	var prev []InfoWindowSpec
	if p := b.current.Load(); p != nil {
		prev = p.InfoWindows
	}
	if b.current.Load() != nil && reflect.DeepEqual(prev, decl.InfoWindows) {
		return nil
	}
	windows := make([]InfoWindow, 0, len(decl.InfoWindows))
	for _, spec := range decl.InfoWindows {
		windows = append(windows, b.newInfoWindow(spec))
	}
	b.marker.SetInfoWindows(ctx, windows...)
	return nil
}

func (b *Binding) fail(ctx context.Context, stage string, start time.Time, err error) error {
	b.errs.record(err)
	b.transition(ctx, b.failureState())
	b.metrics.OnDeclarationFailure(stage, b.clock.Since(start))
	return err
}

// failureState is empty until a declaration has been applied, degraded after.
func (b *Binding) failureState() BindingState {
	if b.current.Load() == nil {
		return BindingEmpty
	}
	return BindingDegraded
}

func (b *Binding) transition(ctx context.Context, next BindingState) {
	prev := BindingState(b.state.Swap(int32(next)))
	if prev == next {
		return
	}
	capitan.Emit(ctx, BindingStateChanged,
		KeyMarker.Field(b.marker.Name()),
		KeyOldState.Field(prev.String()),
		KeyNewState.Field(next.String()),
	)
	b.metrics.OnBindingStateChange(prev, next)
}

// watch processes documents with debouncing until ctx ends or the watcher
// closes.
func (b *Binding) watch(ctx context.Context, changes <-chan []byte) {
	defer func() {
		final := b.State()
		capitan.Emit(ctx, BindingStopped,
			KeyMarker.Field(b.marker.Name()),
			KeyState.Field(final.String()),
		)
		if b.onStop != nil {
			b.onStop(final)
		}
	}()

	var (
		timer   clockz.Timer
		pending []byte
	)
	for {
		var fire <-chan time.Time
		if timer != nil {
			fire = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case raw, ok := <-changes:
			if !ok {
				if pending != nil {
					_ = b.process(ctx, pending) //nolint:errcheck // Errors recorded in the error log
				}
				return
			}
			b.received(ctx)
			pending = raw
			if timer == nil {
				timer = b.clock.NewTimer(b.debounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C():
				default:
				}
			}
			timer.Reset(b.debounce)

		case <-fire:
			if pending != nil {
				_ = b.process(ctx, pending) //nolint:errcheck // Errors recorded in the error log
				pending = nil
			}
		}
	}
}

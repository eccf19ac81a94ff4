package beacon

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on marker and binding events.
type MetricsProvider interface {
	// OnStateChange is called when a marker transitions between states.
	OnStateChange(from, to State)

	// OnCreateSuccess is called when the remote object resolves. Duration
	// spans the factory call.
	OnCreateSuccess(duration time.Duration)

	// OnCreateFailure is called when the factory rejects creation.
	OnCreateFailure(duration time.Duration)

	// OnSetterSuccess is called when a remote setter completes.
	// Duration includes the time spent queued behind the field's lane.
	OnSetterSuccess(field string, duration time.Duration)

	// OnSetterFailure is called when a remote setter returns an error.
	OnSetterFailure(field string, duration time.Duration)

	// OnSetterSkipped is called when a value factory produced nothing.
	OnSetterSkipped(field string)

	// OnEventDelivered is called when a remote event reaches its subscriber.
	OnEventDelivered(event string)

	// OnBindingStateChange is called when a Binding transitions between states.
	OnBindingStateChange(from, to BindingState)

	// OnDeclarationReceived is called when raw data is received from a watcher.
	OnDeclarationReceived()

	// OnDeclarationFailure is called when a declaration fails.
	// Stage is "decode", "validate", or "apply".
	OnDeclarationFailure(stage string, duration time.Duration)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnStateChange(_, _ State)                       {}
func (NoOpMetricsProvider) OnCreateSuccess(_ time.Duration)                {}
func (NoOpMetricsProvider) OnCreateFailure(_ time.Duration)                {}
func (NoOpMetricsProvider) OnSetterSuccess(_ string, _ time.Duration)      {}
func (NoOpMetricsProvider) OnSetterFailure(_ string, _ time.Duration)      {}
func (NoOpMetricsProvider) OnSetterSkipped(_ string)                       {}
func (NoOpMetricsProvider) OnEventDelivered(_ string)                      {}
func (NoOpMetricsProvider) OnBindingStateChange(_, _ BindingState)         {}
func (NoOpMetricsProvider) OnDeclarationReceived()                         {}
func (NoOpMetricsProvider) OnDeclarationFailure(_ string, _ time.Duration) {}

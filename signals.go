package beacon

import "github.com/zoobzio/capitan"

// Marker lifecycle signals.
var (
	// MarkerCreated is emitted when the remote object is requested.
	MarkerCreated = capitan.NewSignal(
		"beacon.marker.created",
		"Remote marker creation requested",
	)

	// MarkerReady is emitted when the handle resolves and events are bound.
	MarkerReady = capitan.NewSignal(
		"beacon.marker.ready",
		"Remote marker ready",
	)

	// MarkerDestroyed is emitted when a marker is torn down.
	MarkerDestroyed = capitan.NewSignal(
		"beacon.marker.destroyed",
		"Marker destroyed",
	)

	// MarkerStateChanged is emitted when a marker transitions between states.
	MarkerStateChanged = capitan.NewSignal(
		"beacon.marker.state.changed",
		"Marker state transition",
	)
)

// Handle signals.
var (
	// HandleCreateFailed is emitted when the remote factory rejects creation.
	HandleCreateFailed = capitan.NewSignal(
		"beacon.handle.create.failed",
		"Remote object creation failed",
	)

	// HandleDisposed is emitted when a released handle's object is destroyed.
	HandleDisposed = capitan.NewSignal(
		"beacon.handle.disposed",
		"Remote object disposed",
	)

	// HandleDisposeFailed is emitted when destroying the remote object fails.
	HandleDisposeFailed = capitan.NewSignal(
		"beacon.handle.dispose.failed",
		"Remote object dispose failed",
	)
)

// Synchronization signals.
var (
	// SetterApplied is emitted when a remote setter completes.
	SetterApplied = capitan.NewSignal(
		"beacon.setter.applied",
		"Remote setter applied",
	)

	// SetterFailed is emitted when a remote setter returns an error.
	SetterFailed = capitan.NewSignal(
		"beacon.setter.failed",
		"Remote setter failed",
	)

	// SetterSkipped is emitted when a value factory produced nothing.
	SetterSkipped = capitan.NewSignal(
		"beacon.setter.skipped",
		"Remote setter skipped",
	)

	// EventDelivered is emitted when a remote event reaches a subscriber.
	EventDelivered = capitan.NewSignal(
		"beacon.event.delivered",
		"Remote event delivered",
	)

	// EventBindFailed is emitted when a listener cannot be registered.
	EventBindFailed = capitan.NewSignal(
		"beacon.event.bind.failed",
		"Remote listener registration failed",
	)

	// EventUnbindFailed is emitted when a listener cannot be removed.
	EventUnbindFailed = capitan.NewSignal(
		"beacon.event.unbind.failed",
		"Remote listener removal failed",
	)

	// ConfigError is emitted for declarations that cannot be honoured in full.
	ConfigError = capitan.NewSignal(
		"beacon.config.error",
		"Marker configuration error",
	)
)

// Binding signals.
var (
	// BindingStarted is emitted when a Binding begins watching.
	BindingStarted = capitan.NewSignal(
		"beacon.binding.started",
		"Binding watching started",
	)

	// BindingStopped is emitted when a Binding stops watching.
	BindingStopped = capitan.NewSignal(
		"beacon.binding.stopped",
		"Binding watching stopped",
	)

	// BindingStateChanged is emitted when a Binding transitions between states.
	BindingStateChanged = capitan.NewSignal(
		"beacon.binding.state.changed",
		"Binding state transition",
	)

	// DeclarationReceived is emitted when raw data arrives from the watcher.
	DeclarationReceived = capitan.NewSignal(
		"beacon.binding.declaration.received",
		"Raw declaration received from watcher",
	)

	// DeclarationDecodeFailed is emitted when a declaration cannot be decoded.
	DeclarationDecodeFailed = capitan.NewSignal(
		"beacon.binding.decode.failed",
		"Declaration decode failed",
	)

	// DeclarationValidationFailed is emitted when a declaration fails validation.
	DeclarationValidationFailed = capitan.NewSignal(
		"beacon.binding.validation.failed",
		"Declaration validation failed",
	)

	// DeclarationApplyFailed is emitted when applying a declaration fails.
	DeclarationApplyFailed = capitan.NewSignal(
		"beacon.binding.apply.failed",
		"Declaration apply failed",
	)

	// DeclarationApplied is emitted when a declaration is applied.
	DeclarationApplied = capitan.NewSignal(
		"beacon.binding.apply.succeeded",
		"Declaration applied",
	)
)

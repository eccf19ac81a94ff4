package beacon

// State represents the lifecycle state of a Marker.
type State int32

const (
	// StateUninitialized indicates no recognized field has been declared yet
	// and no remote object has been requested.
	StateUninitialized State = iota

	// StateCreated indicates the remote object has been requested and the
	// handle is still pending.
	StateCreated

	// StateActive indicates the handle resolved, events are bound and later
	// declarations are applied through setters.
	StateActive

	// StateDestroyed is terminal. The handle is released and every event
	// subscription is cancelled.
	StateDestroyed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// HandleState represents the state of a Handle.
type HandleState int32

const (
	// HandlePending indicates the remote object has not been delivered yet.
	HandlePending HandleState = iota

	// HandleResolved indicates the remote object is available.
	HandleResolved

	// HandleFailed indicates creation of the remote object failed.
	HandleFailed

	// HandleReleased is terminal. No further operations may be issued.
	HandleReleased
)

// String returns the string representation of the handle state.
func (s HandleState) String() string {
	switch s {
	case HandlePending:
		return "pending"
	case HandleResolved:
		return "resolved"
	case HandleFailed:
		return "failed"
	case HandleReleased:
		return "released"
	default:
		return "unknown"
	}
}

// BindingState represents the state of a Binding.
type BindingState int32

const (
	// BindingLoading indicates the Binding has not processed any declaration.
	BindingLoading BindingState = iota

	// BindingHealthy indicates the last declaration was applied.
	BindingHealthy

	// BindingDegraded indicates the last declaration failed. The previously
	// applied declaration remains in effect.
	BindingDegraded

	// BindingEmpty indicates the initial declaration failed and nothing has
	// been applied yet. The Binding keeps watching for a valid declaration.
	BindingEmpty
)

// String returns the string representation of the binding state.
func (s BindingState) String() string {
	switch s {
	case BindingLoading:
		return "loading"
	case BindingHealthy:
		return "healthy"
	case BindingDegraded:
		return "degraded"
	case BindingEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

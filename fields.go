package beacon

import "github.com/zoobzio/capitan"

// Field keys for beacon events.
var (
	// KeyMarker is the name of the marker the event concerns.
	KeyMarker = capitan.NewStringKey("marker")

	// KeyField is the declared field a setter targets.
	KeyField = capitan.NewStringKey("field")

	// KeyEvent is the remote event name.
	KeyEvent = capitan.NewStringKey("event")

	// KeyState is the current state.
	KeyState = capitan.NewStringKey("state")

	// KeyOldState is the previous state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the new state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyDebounce is the configured binding debounce duration.
	KeyDebounce = capitan.NewDurationKey("debounce")

	// KeyCount is a generic count, e.g. the number of declared info windows.
	KeyCount = capitan.NewIntKey("count")

	// KeyLayer is the index of a composed source layer.
	KeyLayer = capitan.NewIntKey("layer")
)

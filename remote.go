package beacon

import "context"

// Remote is the imperative API of a remote marker object. Values typed any
// are SDK-native value objects produced by a ValueFactory.
type Remote interface {
	// Setters.
	SetPosition(ctx context.Context, p LngLat) error
	SetOffset(ctx context.Context, offset any) error
	SetIcon(ctx context.Context, icon any) error
	SetShadow(ctx context.Context, shadow any) error
	SetLabel(ctx context.Context, label any) error
	SetTitle(ctx context.Context, title string) error
	SetContent(ctx context.Context, content string) error
	SetExtData(ctx context.Context, data map[string]any) error
	SetClickable(ctx context.Context, clickable bool) error
	SetDraggable(ctx context.Context, draggable bool) error
	SetCursor(ctx context.Context, cursor string) error
	SetAnimation(ctx context.Context, animation string) error
	SetAngle(ctx context.Context, angle float64) error
	SetZIndex(ctx context.Context, z int) error
	SetShape(ctx context.Context, shape Shape) error
	SetTop(ctx context.Context, top bool) error
	Show(ctx context.Context) error
	Hide(ctx context.Context) error

	// Animations.
	MoveTo(ctx context.Context, p LngLat, speed float64) error
	MoveAlong(ctx context.Context, path []LngLat, speed float64) error
	StopMove(ctx context.Context) error
	PauseMove(ctx context.Context) error
	ResumeMove(ctx context.Context) error

	// Getters.
	Position(ctx context.Context) (LngLat, error)
	Offset(ctx context.Context) (Pixel, error)
	Label(ctx context.Context) (Label, error)
	Angle(ctx context.Context) (float64, error)
	ZIndex(ctx context.Context) (int, error)
	Icon(ctx context.Context) (Icon, error)
	Content(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Top(ctx context.Context) (bool, error)
	Shadow(ctx context.Context) (Icon, error)
	Shape(ctx context.Context) (Shape, error)
	ExtData(ctx context.Context) (map[string]any, error)
	Animation(ctx context.Context) (string, error)
	Clickable(ctx context.Context) (bool, error)
	Draggable(ctx context.Context) (bool, error)

	// Map returns the id of the map the object is attached to.
	Map(ctx context.Context) (string, error)
}

// SDK is the map SDK collaborator for markers: it creates and destroys
// remote markers and registers listeners on them.
type SDK interface {
	Factory[Remote]
	EventSource[Remote]
}

// InfoWindow is a child of a marker that opens anchored to it.
type InfoWindow interface {
	// SetHost points the info window at its host marker's handle. A nil
	// handle detaches it.
	SetHost(h *Handle[Remote])

	// Open shows the info window on its host.
	Open(ctx context.Context) error
}

package beacon

// Recognized field names. These are eligible for the bulk create call and
// for per-field setter dispatch.
const (
	FieldPosition     = "position"
	FieldOffset       = "offset"
	FieldIcon         = "icon"
	FieldContent      = "content"
	FieldTopWhenClick = "topWhenClick"
	FieldBubble       = "bubble"
	FieldDraggable    = "draggable"
	FieldRaiseOnDrag  = "raiseOnDrag"
	FieldCursor       = "cursor"
	FieldVisible      = "visible"
	FieldZIndex       = "zIndex"
	FieldAngle        = "angle"
	FieldAutoRotation = "autoRotation"
	FieldShadow       = "shadow"
	FieldTitle        = "title"
	FieldClickable    = "clickable"
	FieldShape        = "shape"
	FieldExtData      = "extData"
	FieldLabel        = "label"
)

// Control field names. These are not part of the create options.
const (
	FieldIsTop          = "isTop"
	FieldAnimation      = "animation"
	FieldHidden         = "hidden"
	FieldOpenInfoWindow = "openInfoWindow"
)

// RecognizedFields lists the recognized fields in declaration order.
var RecognizedFields = []string{
	FieldPosition,
	FieldOffset,
	FieldIcon,
	FieldContent,
	FieldTopWhenClick,
	FieldBubble,
	FieldDraggable,
	FieldRaiseOnDrag,
	FieldCursor,
	FieldVisible,
	FieldZIndex,
	FieldAngle,
	FieldAutoRotation,
	FieldShadow,
	FieldTitle,
	FieldClickable,
	FieldShape,
	FieldExtData,
	FieldLabel,
}

// ControlFields lists the control fields in declaration order.
var ControlFields = []string{
	FieldIsTop,
	FieldAnimation,
	FieldHidden,
	FieldOpenInfoWindow,
}

// allFields is the full declared enumeration, recognized fields first.
var allFields = append(append([]string{}, RecognizedFields...), ControlFields...)

var recognized = func() map[string]bool {
	m := make(map[string]bool, len(RecognizedFields))
	for _, f := range RecognizedFields {
		m[f] = true
	}
	return m
}()

// Spec is the declarative description of a marker. Nil fields are unset:
// they are omitted from the create options and never trigger a setter.
type Spec struct {
	Position     *LngLat        `json:"position,omitempty" yaml:"position,omitempty" toml:"position,omitempty" validate:"omitempty"`
	Offset       *Pixel         `json:"offset,omitempty" yaml:"offset,omitempty" toml:"offset,omitempty"`
	Icon         *Icon          `json:"icon,omitempty" yaml:"icon,omitempty" toml:"icon,omitempty" validate:"omitempty"`
	Content      *string        `json:"content,omitempty" yaml:"content,omitempty" toml:"content,omitempty"`
	TopWhenClick *bool          `json:"topWhenClick,omitempty" yaml:"topWhenClick,omitempty" toml:"topWhenClick,omitempty"`
	Bubble       *bool          `json:"bubble,omitempty" yaml:"bubble,omitempty" toml:"bubble,omitempty"`
	Draggable    *bool          `json:"draggable,omitempty" yaml:"draggable,omitempty" toml:"draggable,omitempty"`
	RaiseOnDrag  *bool          `json:"raiseOnDrag,omitempty" yaml:"raiseOnDrag,omitempty" toml:"raiseOnDrag,omitempty"`
	Cursor       *string        `json:"cursor,omitempty" yaml:"cursor,omitempty" toml:"cursor,omitempty" validate:"omitempty,max=64"`
	Visible      *bool          `json:"visible,omitempty" yaml:"visible,omitempty" toml:"visible,omitempty"`
	ZIndex       *int           `json:"zIndex,omitempty" yaml:"zIndex,omitempty" toml:"zIndex,omitempty"`
	Angle        *float64       `json:"angle,omitempty" yaml:"angle,omitempty" toml:"angle,omitempty" validate:"omitempty,min=-360,max=360"`
	AutoRotation *bool          `json:"autoRotation,omitempty" yaml:"autoRotation,omitempty" toml:"autoRotation,omitempty"`
	Shadow       *Icon          `json:"shadow,omitempty" yaml:"shadow,omitempty" toml:"shadow,omitempty" validate:"omitempty"`
	Title        *string        `json:"title,omitempty" yaml:"title,omitempty" toml:"title,omitempty"`
	Clickable    *bool          `json:"clickable,omitempty" yaml:"clickable,omitempty" toml:"clickable,omitempty"`
	Shape        *Shape         `json:"shape,omitempty" yaml:"shape,omitempty" toml:"shape,omitempty" validate:"omitempty"`
	ExtData      map[string]any `json:"extData,omitempty" yaml:"extData,omitempty" toml:"extData,omitempty"`
	Label        *Label         `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty" validate:"omitempty"`

	IsTop          *bool   `json:"isTop,omitempty" yaml:"isTop,omitempty" toml:"isTop,omitempty"`
	Animation      *string `json:"animation,omitempty" yaml:"animation,omitempty" toml:"animation,omitempty" validate:"omitempty,oneof=AMAP_ANIMATION_NONE AMAP_ANIMATION_DROP AMAP_ANIMATION_BOUNCE"`
	Hidden         *bool   `json:"hidden,omitempty" yaml:"hidden,omitempty" toml:"hidden,omitempty"`
	OpenInfoWindow *bool   `json:"openInfoWindow,omitempty" yaml:"openInfoWindow,omitempty" toml:"openInfoWindow,omitempty"`
}

// Values maps declared field names to their current, dereferenced values.
// Unset fields are absent.
type Values map[string]any

// Options is the option set handed to the remote factory on creation. Only
// recognized fields appear; unset fields are omitted.
type Options map[string]any

// Values flattens the spec into its set fields.
func (s Spec) Values() Values {
	v := make(Values, len(allFields))
	put(v, FieldPosition, s.Position)
	put(v, FieldOffset, s.Offset)
	put(v, FieldIcon, s.Icon)
	put(v, FieldContent, s.Content)
	put(v, FieldTopWhenClick, s.TopWhenClick)
	put(v, FieldBubble, s.Bubble)
	put(v, FieldDraggable, s.Draggable)
	put(v, FieldRaiseOnDrag, s.RaiseOnDrag)
	put(v, FieldCursor, s.Cursor)
	put(v, FieldVisible, s.Visible)
	put(v, FieldZIndex, s.ZIndex)
	put(v, FieldAngle, s.Angle)
	put(v, FieldAutoRotation, s.AutoRotation)
	put(v, FieldShadow, s.Shadow)
	put(v, FieldTitle, s.Title)
	put(v, FieldClickable, s.Clickable)
	put(v, FieldShape, s.Shape)
	if s.ExtData != nil {
		v[FieldExtData] = s.ExtData
	}
	put(v, FieldLabel, s.Label)
	put(v, FieldIsTop, s.IsTop)
	put(v, FieldAnimation, s.Animation)
	put(v, FieldHidden, s.Hidden)
	put(v, FieldOpenInfoWindow, s.OpenInfoWindow)
	return v
}

func put[V any](vals Values, field string, p *V) {
	if p != nil {
		vals[field] = *p
	}
}

// OptionsFor collects the recognized fields of vals into an option set.
func OptionsFor(vals Values) Options {
	opts := make(Options, len(RecognizedFields))
	for _, f := range RecognizedFields {
		if v, ok := vals[f]; ok {
			opts[f] = v
		}
	}
	return opts
}

// hasRecognized reports whether vals carries at least one recognized field.
func hasRecognized(vals Values) bool {
	for f := range vals {
		if recognized[f] {
			return true
		}
	}
	return false
}

// Ptr returns a pointer to v. It is a convenience for building Specs.
func Ptr[V any](v V) *V {
	return &v
}

// Overlay returns s with every field set in top replacing its own.
func (s Spec) Overlay(top Spec) Spec {
	s.Position = over(s.Position, top.Position)
	s.Offset = over(s.Offset, top.Offset)
	s.Icon = over(s.Icon, top.Icon)
	s.Content = over(s.Content, top.Content)
	s.TopWhenClick = over(s.TopWhenClick, top.TopWhenClick)
	s.Bubble = over(s.Bubble, top.Bubble)
	s.Draggable = over(s.Draggable, top.Draggable)
	s.RaiseOnDrag = over(s.RaiseOnDrag, top.RaiseOnDrag)
	s.Cursor = over(s.Cursor, top.Cursor)
	s.Visible = over(s.Visible, top.Visible)
	s.ZIndex = over(s.ZIndex, top.ZIndex)
	s.Angle = over(s.Angle, top.Angle)
	s.AutoRotation = over(s.AutoRotation, top.AutoRotation)
	s.Shadow = over(s.Shadow, top.Shadow)
	s.Title = over(s.Title, top.Title)
	s.Clickable = over(s.Clickable, top.Clickable)
	s.Shape = over(s.Shape, top.Shape)
	if top.ExtData != nil {
		s.ExtData = top.ExtData
	}
	s.Label = over(s.Label, top.Label)
	s.IsTop = over(s.IsTop, top.IsTop)
	s.Animation = over(s.Animation, top.Animation)
	s.Hidden = over(s.Hidden, top.Hidden)
	s.OpenInfoWindow = over(s.OpenInfoWindow, top.OpenInfoWindow)
	return s
}

func over[V any](base, top *V) *V {
	if top != nil {
		return top
	}
	return base
}

package beacon

import (
	"bytes"
	"errors"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// LngLat is a geographic position.
type LngLat struct {
	Lng float64 `json:"lng" yaml:"lng" toml:"lng" validate:"min=-180,max=180"`
	Lat float64 `json:"lat" yaml:"lat" toml:"lat" validate:"min=-90,max=90"`
}

// Pixel is a screen offset in pixels.
type Pixel struct {
	X float64 `json:"x" yaml:"x" toml:"x"`
	Y float64 `json:"y" yaml:"y" toml:"y"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width" yaml:"width" toml:"width" validate:"min=0"`
	Height float64 `json:"height" yaml:"height" toml:"height" validate:"min=0"`
}

// Icon describes a marker or shadow image.
//
// In JSON and YAML an icon may also be declared as a bare image URL.
type Icon struct {
	Image       string `json:"image" yaml:"image" toml:"image"`
	Size        Size   `json:"size" yaml:"size" toml:"size"`
	ImageOffset Pixel  `json:"imageOffset" yaml:"imageOffset" toml:"imageOffset"`
	ImageSize   Size   `json:"imageSize" yaml:"imageSize" toml:"imageSize"`
}

type iconFields Icon

// UnmarshalJSON accepts either an image URL string or an icon object.
func (i *Icon) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '"' {
		var image string
		if err := json.Unmarshal(trimmed, &image); err != nil {
			return err
		}
		*i = Icon{Image: image}
		return nil
	}
	var f iconFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*i = Icon(f)
	return nil
}

// UnmarshalYAML accepts either an image URL scalar or an icon mapping.
func (i *Icon) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*i = Icon{Image: node.Value}
		return nil
	case yaml.MappingNode:
		var f iconFields
		if err := node.Decode(&f); err != nil {
			return err
		}
		*i = Icon(f)
		return nil
	default:
		return errors.New("icon must be a string or a mapping")
	}
}

// Label is text attached to a marker.
type Label struct {
	Content   string `json:"content" yaml:"content" toml:"content"`
	Offset    Pixel  `json:"offset" yaml:"offset" toml:"offset"`
	Direction string `json:"direction" yaml:"direction" toml:"direction" validate:"omitempty,oneof=top right bottom left center"`
}

// Shape is the clickable area of a marker.
type Shape struct {
	Type   string    `json:"type" yaml:"type" toml:"type" validate:"oneof=circle poly rect"`
	Coords []float64 `json:"coords" yaml:"coords" toml:"coords" validate:"min=3"`
}

// ValueFactory converts a declared value into the SDK-native value object
// passed to a setter. Returning false signals there is nothing to apply and
// the setter is skipped. Implementations must be pure and synchronous.
type ValueFactory[V any] interface {
	Create(v V, label string) (any, bool)
}

// ValueFactoryFunc adapts a function to the ValueFactory interface.
type ValueFactoryFunc[V any] func(v V, label string) (any, bool)

// Create calls f(v, label).
func (f ValueFactoryFunc[V]) Create(v V, label string) (any, bool) {
	return f(v, label)
}

// Passthrough returns a ValueFactory that hands declared values to the
// remote object unchanged.
func Passthrough[V any]() ValueFactory[V] {
	return ValueFactoryFunc[V](func(v V, _ string) (any, bool) {
		return v, true
	})
}

// defaultIcons passes icons through, skipping those without an image.
func defaultIcons() ValueFactory[Icon] {
	return ValueFactoryFunc[Icon](func(v Icon, _ string) (any, bool) {
		if v.Image == "" {
			return nil, false
		}
		return v, true
	})
}

package wsbridge

import "github.com/zoobzio/beacon"

// Value is a typed value object as understood by the map host.
type Value struct {
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
	Data  any    `json:"data"`
}

// Pixels builds Pixel value objects for offsets.
func Pixels() beacon.ValueFactory[beacon.Pixel] {
	return beacon.ValueFactoryFunc[beacon.Pixel](func(p beacon.Pixel, field string) (any, bool) {
		return Value{Type: "Pixel", Field: field, Data: [2]float64{p.X, p.Y}}, true
	})
}

// Icons builds Icon value objects. Icons without an image are skipped.
func Icons() beacon.ValueFactory[beacon.Icon] {
	return beacon.ValueFactoryFunc[beacon.Icon](func(i beacon.Icon, field string) (any, bool) {
		if i.Image == "" {
			return nil, false
		}
		return Value{Type: "Icon", Field: field, Data: i}, true
	})
}

// Labels builds label value objects.
func Labels() beacon.ValueFactory[beacon.Label] {
	return beacon.ValueFactoryFunc[beacon.Label](func(l beacon.Label, field string) (any, bool) {
		return Value{Type: "Label", Field: field, Data: l}, true
	})
}

package wsbridge

import (
	"github.com/goccy/go-json"
	"github.com/zoobzio/beacon"
)

// Frame types.
const (
	// FrameCall is sent to the host to invoke a method.
	FrameCall = "call"

	// FrameReply answers a call, carrying either a result or an error.
	FrameReply = "reply"

	// FrameEvent is sent by the host when a registered listener fires.
	FrameEvent = "event"
)

// Host methods.
const (
	MethodCreate         = "marker.create"
	MethodDestroy        = "marker.destroy"
	MethodSet            = "marker.set"
	MethodGet            = "marker.get"
	MethodCall           = "marker.call"
	MethodAddListener    = "event.add"
	MethodRemoveListener = "event.remove"
	MethodOpenInfoWindow = "infowindow.open"
)

// PropMap is the marker.get property naming the marker's map.
const PropMap = "map"

// Frame is one JSON message exchanged with the map host.
type Frame struct {
	Type     string          `json:"type"`
	ID       string          `json:"id,omitempty"`
	Method   string          `json:"method,omitempty"`
	Target   string          `json:"target,omitempty"`
	Args     json.RawMessage `json:"args,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	Listener string          `json:"listener,omitempty"`
	Event    *beacon.Event   `json:"event,omitempty"`
}

// CreateArgs are the arguments of marker.create.
type CreateArgs struct {
	Options beacon.Options `json:"options"`
}

// SetArgs are the arguments of marker.set.
type SetArgs struct {
	Prop  string `json:"prop"`
	Value any    `json:"value,omitempty"`
}

// GetArgs are the arguments of marker.get.
type GetArgs struct {
	Prop string `json:"prop"`
}

// CallArgs are the arguments of marker.call.
type CallArgs struct {
	Method string `json:"method"`
	Args   []any  `json:"args,omitempty"`
}

// ListenerArgs are the arguments of event.add and event.remove.
type ListenerArgs struct {
	Listener string `json:"listener"`
	Event    string `json:"event,omitempty"`
}

// InfoWindowArgs are the arguments of infowindow.open.
type InfoWindowArgs struct {
	Marker   string        `json:"marker"`
	Content  string        `json:"content"`
	Offset   *beacon.Pixel `json:"offset,omitempty"`
	Anchor   string        `json:"anchor,omitempty"`
	IsCustom bool          `json:"isCustom,omitempty"`
}

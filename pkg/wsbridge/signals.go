package wsbridge

import "github.com/zoobzio/capitan"

// KeyHost is the host claim of a map host connection.
var KeyHost = capitan.NewStringKey("host")

// Host connection signals.
var (
	// HostConnected is emitted when a map host connection is accepted.
	HostConnected = capitan.NewSignal(
		"beacon.wsbridge.host.connected",
		"Map host connected",
	)

	// HostDisconnected is emitted when a map host connection ends.
	HostDisconnected = capitan.NewSignal(
		"beacon.wsbridge.host.disconnected",
		"Map host disconnected",
	)

	// HostRejected is emitted when a connection attempt fails authentication.
	HostRejected = capitan.NewSignal(
		"beacon.wsbridge.host.rejected",
		"Map host rejected",
	)

	// FrameDropped is emitted for frames that cannot be decoded or matched.
	FrameDropped = capitan.NewSignal(
		"beacon.wsbridge.frame.dropped",
		"Frame dropped",
	)
)

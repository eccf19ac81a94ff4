/*
Package beacon keeps a declarative map marker in sync with a marker object
owned by a remote map SDK.

A Marker is declared with a Spec. The remote object is created lazily, the
first time a declaration carries a recognized field, and from then on every
declaration is diffed against the previous one and only changed fields are
pushed through the matching remote setter. Remote events are bridged back to
callbacks, and Destroy tears down listeners and the remote object exactly
once, whatever state creation is in.

# Basic Usage

	m := beacon.New("depot", sdk).
	    OnReady(func(r beacon.Remote) { log.Println("marker ready") }).
	    OnClick(func(e beacon.Event) { log.Printf("clicked at %+v", e.Position) })

	err := m.Apply(ctx, beacon.Spec{
	    Position: &beacon.LngLat{Lng: 116.397, Lat: 39.908},
	    Title:    beacon.Ptr("Depot"),
	})

	// Later declarations only touch what changed.
	err = m.Apply(ctx, beacon.Spec{
	    Position: &beacon.LngLat{Lng: 116.397, Lat: 39.908},
	    Title:    beacon.Ptr("Depot (closed)"),
	    Hidden:   beacon.Ptr(true),
	})

	defer m.Destroy(ctx)

# Handles and Ordering

Remote creation is asynchronous. Operations issued before the object exists
are queued on its Handle and run once it resolves, in arrival order per
field. Operations on different fields are independent. After release no new
operation runs, and an object that arrives after release is destroyed on
arrival.

# Events

Click, moving, moveend and movealong are bound when the handle resolves and
delivered on a later turn of the marker's Dispatcher, never from inside the
SDK's own callback. Nothing is delivered after Destroy.

# Declaration Sources

A Binding feeds a Marker from a Watcher, decoding documents with a Codec:

	b := beacon.NewBinding(beacon.NewFileWatcher("depot.yaml"), m).
	    Codec(beacon.YAMLCodec{})

	if err := b.Start(ctx); err != nil {
	    log.Printf("initial declaration failed: %v", err)
	}

Invalid documents leave the last good declaration in place. Compose layers
several watchers into one declaration, later layers overriding earlier ones
field by field. Watchers for Redis, etcd, Consul, NATS, ZooKeeper, Postgres,
Kubernetes and Firestore live under pkg/.

# Observability

Every lifecycle step emits a capitan signal (see signals.go) carrying the
marker name and, where relevant, the field, event or error. A
MetricsProvider can be attached with Metrics.

# Testing

SyncMode runs event delivery inline on Dispatcher().Flush and makes Apply
wait for the remote calls it issues. The beacontest package provides a
recording SDK and helpers built on it.
*/
package beacon

package firestore

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/zoobzio/beacon"
	"github.com/zoobzio/beacon/beacontest"
)

// setupFirestore connects to the emulator at FIRESTORE_EMULATOR_HOST,
// skipping the test when it is unset. The client library routes to the
// emulator on its own when the variable is present.
func setupFirestore(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	client, err := firestore.NewClient(context.Background(), "beacon-test")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func receive(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case data, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return string(data)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for value")
	}
	return ""
}

func TestExtract(t *testing.T) {
	cases := []struct {
		name string
		data map[string]any
		want string
		ok   bool
	}{
		{"bytes", map[string]any{"declaration": []byte(`{"marker": {}}`)}, `{"marker": {}}`, true},
		{"string", map[string]any{"declaration": `{"marker": {}}`}, `{"marker": {}}`, true},
		{"map", map[string]any{"declaration": map[string]any{"marker": map[string]any{"title": "Depot"}}}, `{"marker":{"title":"Depot"}}`, true},
		{"missing", map[string]any{"other": "x"}, "", false},
		{"number", map[string]any{"declaration": int64(7)}, "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok, err := extract(c.data, DefaultField)
			if err != nil {
				t.Fatalf("extract failed: %v", err)
			}
			if ok != c.ok {
				t.Fatalf("expected ok %v, got %v", c.ok, ok)
			}
			if string(got) != c.want {
				t.Errorf("expected %s, got %s", c.want, got)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	w := New(nil, "markers", "depot")
	if w.field != DefaultField || w.retryInterval != DefaultRetryInterval {
		t.Errorf("expected defaults, got field %q retry %v", w.field, w.retryInterval)
	}
	w = New(nil, "markers", "depot", WithField("doc"), WithRetryInterval(time.Millisecond))
	if w.field != "doc" || w.retryInterval != time.Millisecond {
		t.Errorf("expected options applied, got field %q retry %v", w.field, w.retryInterval)
	}
}

func TestWatcher_EmitsInitialValueAndChanges(t *testing.T) {
	client := setupFirestore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	doc := t.Name()
	if err := Put(ctx, client, "markers", doc, []byte(`{"marker": {"title": "v1"}}`)); err != nil {
		t.Fatal(err)
	}

	ch, err := New(client, "markers", doc).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if got := receive(t, ch); got != `{"marker": {"title": "v1"}}` {
		t.Errorf("expected initial value, got %q", got)
	}

	if err := Put(ctx, client, "markers", doc, []byte(`{"marker": {"title": "v2"}}`)); err != nil {
		t.Fatal(err)
	}
	if got := receive(t, ch); got != `{"marker": {"title": "v2"}}` {
		t.Errorf("expected changed value, got %q", got)
	}
}

func TestWatcher_DrivesBinding(t *testing.T) {
	client := setupFirestore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	doc := t.Name()
	if err := Put(ctx, client, "markers", doc, []byte(`{"marker": {"position": {"lng": 1, "lat": 2}, "title": "HQ"}}`)); err != nil {
		t.Fatal(err)
	}

	m, sdk := beacontest.NewTestMarker(t, "depot")
	b := beacon.NewBinding(New(client, "markers", doc), m).Debounce(10 * time.Millisecond)
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := Put(ctx, client, "markers", doc, []byte(`{"marker": {"position": {"lng": 1, "lat": 2}, "title": "Warehouse"}}`)); err != nil {
		t.Fatal(err)
	}
	if !beacontest.WaitFor(t, 10*time.Second, func() bool {
		r := sdk.Remote()
		return r != nil && len(r.CallsTo("SetTitle")) == 1
	}) {
		t.Fatal("expected SetTitle after the document changed")
	}
}

package consul

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/consul/api"
	"github.com/zoobzio/beacon"
	"github.com/zoobzio/beacon/beacontest"
)

// fakeKV serves the subset of the Consul KV HTTP API used by blocking
// queries on a single key.
type fakeKV struct {
	mu      sync.Mutex
	index   uint64
	value   []byte
	exists  bool
	changed chan struct{}
	fail    int
}

func newFakeKV() *fakeKV {
	return &fakeKV{index: 1, changed: make(chan struct{})}
}

func (f *fakeKV) put(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index++
	f.value = []byte(v)
	f.exists = true
	close(f.changed)
	f.changed = make(chan struct{})
}

func (f *fakeKV) failNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = n
}

func (f *fakeKV) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/v1/kv/")

	f.mu.Lock()
	if f.fail > 0 {
		f.fail--
		f.mu.Unlock()
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}
	wait, _ := strconv.ParseUint(r.URL.Query().Get("index"), 10, 64)
	changed := f.changed
	blocked := wait != 0 && wait >= f.index
	f.mu.Unlock()

	if blocked {
		select {
		case <-changed:
		case <-time.After(100 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("X-Consul-Index", strconv.FormatUint(f.index, 10))
	w.Header().Set("X-Consul-LastContact", "0")
	w.Header().Set("X-Consul-KnownLeader", "true")
	if !f.exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	pairs := []*api.KVPair{{Key: key, Value: f.value, ModifyIndex: f.index, CreateIndex: 1}}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pairs) //nolint:errcheck // Test server
}

func setupConsul(t *testing.T) (*api.Client, *fakeKV) {
	t.Helper()
	kv := newFakeKV()
	srv := httptest.NewServer(kv)
	t.Cleanup(srv.Close)

	client, err := api.NewClient(&api.Config{Address: strings.TrimPrefix(srv.URL, "http://")})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client, kv
}

func next(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case data, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return string(data)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for value")
	}
	return ""
}

func TestWatcher_EmitsInitialValue(t *testing.T) {
	client, kv := setupConsul(t)
	kv.put(`{"marker": {"title": "Depot"}}`)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ch, err := New(client, "markers/depot").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if got := next(t, ch); got != `{"marker": {"title": "Depot"}}` {
		t.Errorf("expected initial value, got %q", got)
	}
}

func TestWatcher_EmitsOnChange(t *testing.T) {
	client, kv := setupConsul(t)
	kv.put("v1")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ch, err := New(client, "markers/depot").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	next(t, ch)

	kv.put("v2")
	if got := next(t, ch); got != "v2" {
		t.Errorf("expected v2, got %q", got)
	}
}

func TestWatcher_NonexistentKey(t *testing.T) {
	client, kv := setupConsul(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ch, err := New(client, "markers/depot").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	kv.put("created")
	if got := next(t, ch); got != "created" {
		t.Errorf("expected created, got %q", got)
	}
}

func TestWatcher_RetriesAfterError(t *testing.T) {
	client, kv := setupConsul(t)
	kv.put("v1")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ch, err := New(client, "markers/depot", WithRetryInterval(10*time.Millisecond)).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	next(t, ch)

	kv.failNext(2)
	kv.put("v2")
	if got := next(t, ch); got != "v2" {
		t.Errorf("expected v2 after retry, got %q", got)
	}
}

func TestWatcher_InitialError(t *testing.T) {
	client, kv := setupConsul(t)
	kv.failNext(1)

	if _, err := New(client, "markers/depot").Watch(context.Background()); err == nil {
		t.Error("expected error when the initial read fails")
	}
}

func TestWatcher_DrivesBinding(t *testing.T) {
	client, kv := setupConsul(t)
	kv.put(`{"marker": {"position": {"lng": 1, "lat": 2}, "title": "v1"}}`)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m, sdk := beacontest.NewTestMarker(t, "depot")
	b := beacon.NewBinding(New(client, "markers/depot"), m).Debounce(10 * time.Millisecond)
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	kv.put(`{"marker": {"position": {"lng": 1, "lat": 2}, "title": "v2"}}`)
	if !beacontest.WaitFor(t, 5*time.Second, func() bool {
		return len(sdk.Remote().CallsTo("SetTitle")) == 1
	}) {
		t.Fatal("expected the update to reach the marker")
	}
}

func TestWatcher_ClosesOnContextCancel(t *testing.T) {
	client, kv := setupConsul(t)
	kv.put("v1")

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := New(client, "markers/depot").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	next(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for channel close")
	}
}

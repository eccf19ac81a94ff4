package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zoobzio/beacon"
	"github.com/zoobzio/beacon/beacontest"
)

// setupRedis connects to the server at BEACON_REDIS_ADDR, skipping the test
// when it is unset.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("BEACON_REDIS_ADDR")
	if addr == "" {
		t.Skip("BEACON_REDIS_ADDR not set")
	}
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	if err := client.ConfigSet(ctx, "notify-keyspace-events", "KEA").Err(); err != nil {
		t.Fatalf("failed to enable keyspace notifications: %v", err)
	}
	return client
}

func testKey(t *testing.T) string {
	return "beacon:test:" + t.Name()
}

func TestWatcher_Channel(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0", DB: 3})
	defer client.Close()

	if ch := New(client, "markers:depot").Channel(); ch != "__keyspace@3__:markers:depot" {
		t.Errorf("expected client db in channel, got %q", ch)
	}
	if ch := New(client, "markers:depot", WithDB(0)).Channel(); ch != "__keyspace@0__:markers:depot" {
		t.Errorf("expected overridden db in channel, got %q", ch)
	}
}

func TestIsWrite(t *testing.T) {
	for _, e := range []string{"set", "setex", "append", "rename_to"} {
		if !isWrite(e) {
			t.Errorf("expected %q to be a write", e)
		}
	}
	for _, e := range []string{"del", "expire", "expired", "rename_from"} {
		if isWrite(e) {
			t.Errorf("expected %q not to be a write", e)
		}
	}
}

func TestWatcher_EmitsInitialValue(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key := testKey(t)
	value := []byte(`{"marker": {"title": "Depot"}}`)
	if err := client.Set(ctx, key, value, 0).Err(); err != nil {
		t.Fatalf("failed to set initial value: %v", err)
	}

	ch, err := New(client, key).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	select {
	case data := <-ch:
		if string(data) != string(value) {
			t.Errorf("expected %q, got %q", value, data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for initial value")
	}
}

func TestWatcher_EmitsOnChange(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key := testKey(t)
	updated := []byte(`{"marker": {"title": "v2"}}`)
	if err := client.Set(ctx, key, `{"marker": {"title": "v1"}}`, 0).Err(); err != nil {
		t.Fatalf("failed to set initial value: %v", err)
	}

	ch, err := New(client, key).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for initial value")
	}

	if err := client.Set(ctx, key, updated, 0).Err(); err != nil {
		t.Fatalf("failed to update value: %v", err)
	}
	select {
	case data := <-ch:
		if string(data) != string(updated) {
			t.Errorf("expected %q, got %q", updated, data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for update")
	}
}

func TestWatcher_DrivesBinding(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key := testKey(t)
	doc := `{"marker": {"position": {"lng": 1, "lat": 2}, "title": "Depot"}}`
	if err := client.Set(ctx, key, doc, 0).Err(); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}

	m, sdk := beacontest.NewTestMarker(t, "depot")
	b := beacon.NewBinding(New(client, key), m).Debounce(10 * time.Millisecond)
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if len(sdk.Creates()) != 1 {
		t.Fatalf("expected 1 create, got %d", len(sdk.Creates()))
	}
	if b.State() != beacon.BindingHealthy {
		t.Errorf("expected healthy, got %s", b.State())
	}
}

func TestWatcher_ClosesOnContextCancel(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	key := testKey(t)
	if err := client.Set(ctx, key, []byte("value"), 0).Err(); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}

	ch, err := New(client, key).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	<-ch

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

// Package wsbridge implements beacon.SDK over a websocket connection to a
// browser page hosting the map SDK.
//
// The page (the map host) connects to GET /ws with a host token minted by
// IssueToken, then answers call frames and sends event frames for the
// listeners it was asked to register. One host is served at a time; a new
// connection replaces the previous one.
package wsbridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/zoobzio/beacon"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// Defaults.
const (
	DefaultCallTimeout    = 10 * time.Second
	DefaultConnectTimeout = 30 * time.Second
	DefaultPingInterval   = 30 * time.Second
)

// ErrDisconnected is returned for calls cut short by the host going away.
var ErrDisconnected = errors.New("map host disconnected")

// HostError is an error reported by the map host for a call.
type HostError struct {
	Method  string
	Message string
}

func (e *HostError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}

// Bridge is a beacon.SDK backed by a websocket map host.
type Bridge struct {
	secret         []byte
	origins        []string
	callTimeout    time.Duration
	connectTimeout time.Duration
	pingInterval   time.Duration
	clock          clockz.Clock
	upgrader       websocket.Upgrader

	mu        sync.Mutex
	conn      *conn
	ready     chan struct{}
	pending   map[string]chan Frame
	listeners map[beacon.ListenerID]func(beacon.Event)
}

// New creates a Bridge that accepts hosts presenting tokens signed with
// secret.
func New(secret []byte) *Bridge {
	b := &Bridge{
		secret:         secret,
		origins:        []string{"*"},
		callTimeout:    DefaultCallTimeout,
		connectTimeout: DefaultConnectTimeout,
		pingInterval:   DefaultPingInterval,
		clock:          clockz.RealClock,
		ready:          make(chan struct{}),
		pending:        make(map[string]chan Frame),
		listeners:      make(map[beacon.ListenerID]func(beacon.Event)),
	}
	b.upgrader = websocket.Upgrader{CheckOrigin: b.checkOrigin}
	return b
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Origins restricts the browser origins allowed to connect. Default: any.
func (b *Bridge) Origins(origins ...string) *Bridge {
	b.origins = origins
	return b
}

// CallTimeout bounds each call to the host. Default: 10s.
func (b *Bridge) CallTimeout(d time.Duration) *Bridge {
	b.callTimeout = d
	return b
}

// ConnectTimeout bounds how long Create waits for a host to connect.
// Default: 30s.
func (b *Bridge) ConnectTimeout(d time.Duration) *Bridge {
	b.connectTimeout = d
	return b
}

// PingInterval sets the keepalive ping interval. Zero disables pings.
// Default: 30s.
func (b *Bridge) PingInterval(d time.Duration) *Bridge {
	b.pingInterval = d
	return b
}

// Clock sets the clock used for timeouts and pings.
func (b *Bridge) Clock(clock clockz.Clock) *Bridge {
	b.clock = clock
	return b
}

// Routes returns the bridge's HTTP surface: GET /ws.
func (b *Bridge) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: b.origins,
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Authorization"},
	}))
	r.Get("/ws", b.ServeWS)
	return r
}

// Host returns the name of the connected host, or "" if none.
func (b *Bridge) Host() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return ""
	}
	return b.conn.host
}

// Connected reports whether a host is connected.
func (b *Bridge) Connected() bool {
	return b.Host() != ""
}

// ServeWS authenticates and upgrades a map host connection. The token is
// read from the "token" query parameter or a bearer Authorization header.
func (b *Bridge) ServeWS(w http.ResponseWriter, r *http.Request) {
	host, err := ParseToken(b.secret, token(r))
	if err != nil {
		capitan.Emit(r.Context(), HostRejected, beacon.KeyError.Field(err.Error()))
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the response.
		return
	}

	c := &conn{ws: ws, host: host, done: make(chan struct{})}
	b.attach(r.Context(), c)
	go b.keepalive(c)
	b.read(r.Context(), c)
}

func token(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func (b *Bridge) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range b.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// attach makes c the current connection, closing any previous one.
func (b *Bridge) attach(ctx context.Context, c *conn) {
	b.mu.Lock()
	prev := b.conn
	b.conn = c
	if prev == nil {
		close(b.ready)
	}
	b.mu.Unlock()

	if prev != nil {
		prev.close()
	}
	capitan.Emit(ctx, HostConnected, KeyHost.Field(c.host))
}

// detach clears c if it is still the current connection.
func (b *Bridge) detach(ctx context.Context, c *conn) {
	c.close()
	b.mu.Lock()
	if b.conn == c {
		b.conn = nil
		b.ready = make(chan struct{})
	}
	b.mu.Unlock()
	capitan.Emit(ctx, HostDisconnected, KeyHost.Field(c.host))
}

// read dispatches frames from c until it fails.
func (b *Bridge) read(ctx context.Context, c *conn) {
	defer b.detach(ctx, c)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			capitan.Emit(ctx, FrameDropped,
				KeyHost.Field(c.host),
				beacon.KeyError.Field(err.Error()),
			)
			continue
		}
		switch f.Type {
		case FrameReply:
			b.mu.Lock()
			reply, ok := b.pending[f.ID]
			b.mu.Unlock()
			if !ok {
				continue
			}
			select {
			case reply <- f:
			default:
			}
		case FrameEvent:
			b.mu.Lock()
			fn, ok := b.listeners[beacon.ListenerID(f.Listener)]
			b.mu.Unlock()
			if !ok {
				continue
			}
			var e beacon.Event
			if f.Event != nil {
				e = *f.Event
			}
			fn(e)
		default:
			capitan.Emit(ctx, FrameDropped,
				KeyHost.Field(c.host),
				beacon.KeyError.Field("unexpected frame type "+f.Type),
			)
		}
	}
}

// keepalive pings c until it closes.
func (b *Bridge) keepalive(c *conn) {
	if b.pingInterval <= 0 {
		return
	}
	for {
		timer := b.clock.NewTimer(b.pingInterval)
		select {
		case <-c.done:
			timer.Stop()
			return
		case <-timer.C():
		}
		if err := c.ping(b.clock.Now().Add(b.callTimeout)); err != nil {
			c.close()
			return
		}
	}
}

// waitConn returns the current connection, waiting for one if needed.
func (b *Bridge) waitConn(ctx context.Context) (*conn, error) {
	for {
		b.mu.Lock()
		c, ready := b.conn, b.ready
		b.mu.Unlock()
		if c != nil {
			return c, nil
		}
		select {
		case <-ready:
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for map host: %w", ctx.Err())
		}
	}
}

// call invokes method on the host and returns its raw result.
func (b *Bridge) call(ctx context.Context, method, target string, args any) (json.RawMessage, error) {
	if b.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = b.clock.WithTimeout(ctx, b.callTimeout)
		defer cancel()
	}
	c, err := b.waitConn(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encoding %s arguments: %w", method, err)
	}
	id := ulid.Make().String()
	reply := make(chan Frame, 1)
	b.mu.Lock()
	b.pending[id] = reply
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	if err := c.write(Frame{Type: FrameCall, ID: id, Method: method, Target: target, Args: raw}); err != nil {
		return nil, fmt.Errorf("sending %s: %w", method, err)
	}

	select {
	case f := <-reply:
		if f.Error != "" {
			return nil, &HostError{Method: method, Message: f.Error}
		}
		return f.Result, nil
	case <-c.done:
		return nil, ErrDisconnected
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", method, ctx.Err())
	}
}

// Create asks the host to create a marker. It waits up to the connect
// timeout for a host to be connected.
func (b *Bridge) Create(ctx context.Context, opts beacon.Options) (beacon.Remote, error) {
	if b.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = b.clock.WithTimeout(ctx, b.connectTimeout)
		defer cancel()
	}
	if _, err := b.waitConn(ctx); err != nil {
		return nil, err
	}
	m := &RemoteMarker{bridge: b, id: ulid.Make().String()}
	if _, err := b.call(ctx, MethodCreate, m.id, CreateArgs{Options: opts}); err != nil {
		return nil, err
	}
	return m, nil
}

// Destroy asks the host to remove a marker created by this bridge.
func (b *Bridge) Destroy(ctx context.Context, r beacon.Remote) error {
	m, ok := r.(*RemoteMarker)
	if !ok || m.bridge != b {
		return fmt.Errorf("remote %T was not created by this bridge", r)
	}
	_, err := b.call(ctx, MethodDestroy, m.id, nil)
	return err
}

// AddListener registers fn for event on a marker created by this bridge.
func (b *Bridge) AddListener(ctx context.Context, target beacon.Remote, event string, fn func(beacon.Event)) (beacon.ListenerID, error) {
	m, ok := target.(*RemoteMarker)
	if !ok || m.bridge != b {
		return "", fmt.Errorf("remote %T was not created by this bridge", target)
	}
	id := beacon.ListenerID(ulid.Make().String())
	b.mu.Lock()
	b.listeners[id] = fn
	b.mu.Unlock()

	if _, err := b.call(ctx, MethodAddListener, m.id, ListenerArgs{Listener: string(id), Event: event}); err != nil {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
		return "", err
	}
	return id, nil
}

// RemoveListener unregisters a listener. The callback is dropped even if
// the host cannot be reached.
func (b *Bridge) RemoveListener(ctx context.Context, id beacon.ListenerID) error {
	b.mu.Lock()
	_, ok := b.listeners[id]
	delete(b.listeners, id)
	b.mu.Unlock()
	if !ok {
		return nil
	}
	_, err := b.call(ctx, MethodRemoveListener, "", ListenerArgs{Listener: string(id)})
	return err
}

// Listeners returns the number of registered listeners.
func (b *Bridge) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// conn is one host connection. gorilla/websocket allows a single concurrent
// writer, so writes are serialized.
type conn struct {
	ws   *websocket.Conn
	host string

	wmu  sync.Mutex
	once sync.Once
	done chan struct{}
}

func (c *conn) write(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *conn) ping(deadline time.Time) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, deadline)
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

var _ beacon.SDK = (*Bridge)(nil)

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	gcfirestore "cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/go-zookeeper/zk"
	"github.com/hashicorp/consul/api"
	"github.com/jackc/pgx/v5/pgxpool"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/zoobzio/beacon"
	"github.com/zoobzio/beacon/internal/config"
	"github.com/zoobzio/beacon/pkg/consul"
	"github.com/zoobzio/beacon/pkg/etcd"
	"github.com/zoobzio/beacon/pkg/firestore"
	"github.com/zoobzio/beacon/pkg/kubernetes"
	"github.com/zoobzio/beacon/pkg/nats"
	"github.com/zoobzio/beacon/pkg/postgres"
	"github.com/zoobzio/beacon/pkg/prometheus"
	"github.com/zoobzio/beacon/pkg/redis"
	"github.com/zoobzio/beacon/pkg/wsbridge"
	"github.com/zoobzio/beacon/pkg/zookeeper"
	clientv3 "go.etcd.io/etcd/client/v3"
	k8s "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	metricsNamespace = "beacon"
	dialTimeout      = 10 * time.Second
)

// daemon owns the bridge, the source clients and one marker per configured
// declaration.
type daemon struct {
	cfg      config.Config
	log      zerolog.Logger
	bridge   *wsbridge.Bridge
	registry *promclient.Registry
	metrics  *prometheus.Provider
	srv      *http.Server

	redis  *goredis.Client
	etcd   *clientv3.Client
	consul *api.Client
	natsc  *natsgo.Conn
	kv     jetstream.KeyValue
	zk     *zk.Conn
	pg     *pgxpool.Pool
	k8s    k8s.Interface
	fs     *gcfirestore.Client

	markers []*entry
	wg      sync.WaitGroup
}

// entry is one configured marker and the binding feeding it.
type entry struct {
	cfg     config.Marker
	marker  *beacon.Marker
	binding *beacon.Binding
}

func newDaemon(ctx context.Context, cfg config.Config, log zerolog.Logger) (*daemon, error) {
	registry := promclient.NewRegistry()
	provider, err := prometheus.New(registry, metricsNamespace)
	if err != nil {
		return nil, err
	}

	bridge := wsbridge.New([]byte(cfg.Secret)).Origins(cfg.Origins...)
	if cfg.CallTimeout > 0 {
		bridge.CallTimeout(cfg.CallTimeout.Std())
	}
	if cfg.ConnectTimeout > 0 {
		bridge.ConnectTimeout(cfg.ConnectTimeout.Std())
	}

	d := &daemon{
		cfg:      cfg,
		log:      log,
		bridge:   bridge,
		registry: registry,
		metrics:  provider,
	}
	if err := d.dial(ctx); err != nil {
		d.close()
		return nil, err
	}

	for _, mc := range cfg.Markers {
		w, err := d.watcher(mc)
		if err != nil {
			d.close()
			return nil, err
		}
		d.markers = append(d.markers, d.bind(mc, w))
	}

	d.srv = &http.Server{Addr: cfg.Addr, Handler: d.routes()}
	return d, nil
}

// dial opens the clients needed by the configured sources.
func (d *daemon) dial(ctx context.Context) error {
	if d.cfg.Uses(config.SourceRedis) {
		d.redis = goredis.NewClient(&goredis.Options{
			Addr:     d.cfg.Redis.Addr,
			Password: d.cfg.Redis.Password,
			DB:       d.cfg.Redis.DB,
		})
	}
	if d.cfg.Uses(config.SourceEtcd) {
		c, err := clientv3.New(clientv3.Config{Endpoints: d.cfg.Etcd.Endpoints})
		if err != nil {
			return fmt.Errorf("etcd: %w", err)
		}
		d.etcd = c
	}
	if d.cfg.Uses(config.SourceConsul) {
		cc := api.DefaultConfig()
		if d.cfg.Consul.Addr != "" {
			cc.Address = d.cfg.Consul.Addr
		}
		cc.Token = d.cfg.Consul.Token
		c, err := api.NewClient(cc)
		if err != nil {
			return fmt.Errorf("consul: %w", err)
		}
		d.consul = c
	}
	if d.cfg.Uses(config.SourceNats) {
		if err := d.dialNats(ctx); err != nil {
			return fmt.Errorf("nats: %w", err)
		}
	}
	if d.cfg.Uses(config.SourceZookeeper) {
		conn, events, err := zk.Connect(d.cfg.Zookeeper.Servers, d.cfg.Zookeeper.SessionTimeout.Std(), zk.WithLogInfo(false))
		if err != nil {
			return fmt.Errorf("zookeeper: %w", err)
		}
		d.zk = conn
		go func() {
			for ev := range events {
				if ev.Type == zk.EventSession {
					d.log.Debug().Str("state", ev.State.String()).Msg("zookeeper session")
				}
			}
		}()
	}
	if d.cfg.Uses(config.SourcePostgres) {
		pool, err := pgxpool.New(ctx, d.cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		d.pg = pool
	}
	if d.cfg.Uses(config.SourceKubernetes) {
		rc, err := clientcmd.BuildConfigFromFlags("", d.cfg.Kubernetes.Kubeconfig)
		if err != nil {
			return fmt.Errorf("kubernetes: %w", err)
		}
		c, err := k8s.NewForConfig(rc)
		if err != nil {
			return fmt.Errorf("kubernetes: %w", err)
		}
		d.k8s = c
	}
	if d.cfg.Uses(config.SourceFirestore) {
		c, err := gcfirestore.NewClient(ctx, d.cfg.Firestore.Project)
		if err != nil {
			return fmt.Errorf("firestore: %w", err)
		}
		d.fs = c
	}
	return nil
}

func (d *daemon) dialNats(ctx context.Context) error {
	nc, err := natsgo.Connect(d.cfg.Nats.URL, natsgo.Name("beacond"))
	if err != nil {
		return err
	}
	d.natsc = nc
	js, err := jetstream.New(nc)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	kv, err := js.KeyValue(ctx, d.cfg.Nats.Bucket)
	if err != nil {
		return fmt.Errorf("bucket %s: %w", d.cfg.Nats.Bucket, err)
	}
	d.kv = kv
	return nil
}

func (d *daemon) watcher(mc config.Marker) (beacon.Watcher, error) {
	switch mc.Source {
	case config.SourceFile:
		return beacon.NewFileWatcher(mc.Path), nil
	case config.SourceRedis:
		return redis.New(d.redis, mc.Key), nil
	case config.SourceEtcd:
		return etcd.New(d.etcd, mc.Key), nil
	case config.SourceConsul:
		return consul.New(d.consul, mc.Key), nil
	case config.SourceNats:
		return nats.New(d.kv, mc.Key), nil
	case config.SourceZookeeper:
		return zookeeper.New(d.zk, mc.Key), nil
	case config.SourcePostgres:
		var opts []postgres.Option
		if d.cfg.Postgres.Table != "" {
			opts = append(opts, postgres.WithTable(d.cfg.Postgres.Table))
		}
		if d.cfg.Postgres.Channel != "" {
			opts = append(opts, postgres.WithChannel(d.cfg.Postgres.Channel))
		}
		return postgres.New(d.pg, mc.Key, opts...), nil
	case config.SourceKubernetes:
		secret, name, key, err := config.KubernetesKey(mc.Key)
		if err != nil {
			return nil, fmt.Errorf("marker %q: %w", mc.Name, err)
		}
		var opts []kubernetes.Option
		if secret {
			opts = append(opts, kubernetes.WithResourceType(kubernetes.Secret))
		}
		return kubernetes.New(d.k8s, d.cfg.Kubernetes.Namespace, name, key, opts...), nil
	case config.SourceFirestore:
		coll, doc, err := config.FirestoreKey(mc.Key)
		if err != nil {
			return nil, fmt.Errorf("marker %q: %w", mc.Name, err)
		}
		var opts []firestore.Option
		if d.cfg.Firestore.Field != "" {
			opts = append(opts, firestore.WithField(d.cfg.Firestore.Field))
		}
		return firestore.New(d.fs, coll, doc, opts...), nil
	default:
		return nil, fmt.Errorf("marker %q: unknown source %q", mc.Name, mc.Source)
	}
}

func (d *daemon) bind(mc config.Marker, w beacon.Watcher) *entry {
	m := beacon.New(mc.Name, d.bridge).
		Metrics(d.metrics).
		Icons(wsbridge.Icons()).
		Pixels(wsbridge.Pixels()).
		Labels(wsbridge.Labels())

	b := beacon.NewBinding(w, m).
		Codec(codecFor(mc)).
		Metrics(d.metrics).
		InfoWindows(func(spec beacon.InfoWindowSpec) beacon.InfoWindow {
			return d.bridge.NewInfoWindow(spec)
		})
	if mc.Debounce > 0 {
		b.Debounce(mc.Debounce.Std())
	}
	return &entry{cfg: mc, marker: m, binding: b}
}

func codecFor(mc config.Marker) beacon.Codec {
	switch mc.Format {
	case "json":
		return beacon.JSONCodec{}
	case "yaml":
		return beacon.YAMLCodec{}
	case "toml":
		return beacon.TOMLCodec{}
	}
	if mc.Source == config.SourceFile {
		return beacon.CodecFor(mc.Path)
	}
	return beacon.JSONCodec{}
}

func (d *daemon) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Mount("/", d.bridge.Routes())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/markers", d.serveMarkers)
	r.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))
	return r
}

// markerStatus is the /markers view of one marker.
type markerStatus struct {
	Name      string `json:"name"`
	Source    string `json:"source"`
	State     string `json:"state"`
	Binding   string `json:"binding"`
	LastError string `json:"lastError,omitempty"`
	Errors    int64  `json:"errors"`
}

type status struct {
	Host    string         `json:"host,omitempty"`
	Markers []markerStatus `json:"markers"`
}

func (d *daemon) status() status {
	s := status{Host: d.bridge.Host(), Markers: make([]markerStatus, 0, len(d.markers))}
	for _, e := range d.markers {
		ms := markerStatus{
			Name:    e.cfg.Name,
			Source:  e.cfg.Source,
			State:   e.marker.State().String(),
			Binding: e.binding.State().String(),
			Errors:  e.binding.ErrorCount() + e.marker.ErrorCount(),
		}
		if err := e.binding.LastError(); err != nil {
			ms.LastError = err.Error()
		} else if err := e.marker.LastError(); err != nil {
			ms.LastError = err.Error()
		}
		s.Markers = append(s.Markers, ms)
	}
	return s
}

func (d *daemon) serveMarkers(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(d.status()); err != nil {
		d.log.Error().Err(err).Msg("encode marker status")
	}
}

// start begins watching every declaration. Each binding starts on its own
// goroutine so a source without an initial document does not hold up the
// others. Initial failures are logged; the binding keeps watching.
func (d *daemon) start(ctx context.Context) {
	for _, e := range d.markers {
		d.wg.Add(1)
		go func(e *entry) {
			defer d.wg.Done()
			if err := e.binding.Start(ctx); err != nil && ctx.Err() == nil {
				d.log.Warn().Err(err).Str("marker", e.cfg.Name).Msg("initial declaration failed")
			}
		}(e)
	}
}

// listen serves HTTP until shutdown.
func (d *daemon) listen() error {
	if err := d.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// shutdown stops the HTTP server and destroys every marker.
func (d *daemon) shutdown(ctx context.Context) error {
	var errs []error
	if err := d.srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("graceful shutdown: %w", err))
	}
	for _, e := range d.markers {
		if err := e.marker.Destroy(ctx); err != nil {
			errs = append(errs, fmt.Errorf("destroy %s: %w", e.cfg.Name, err))
		}
	}
	return errors.Join(errs...)
}

// close releases the source clients once the bindings are done with them.
func (d *daemon) close() {
	d.wg.Wait()
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.etcd != nil {
		_ = d.etcd.Close()
	}
	if d.natsc != nil {
		d.natsc.Close()
	}
	if d.zk != nil {
		d.zk.Close()
	}
	if d.pg != nil {
		d.pg.Close()
	}
	if d.fs != nil {
		_ = d.fs.Close()
	}
}

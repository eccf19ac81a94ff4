// Package config loads the beacond daemon configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Declaration sources.
const (
	SourceFile       = "file"
	SourceRedis      = "redis"
	SourceEtcd       = "etcd"
	SourceConsul     = "consul"
	SourceNats       = "nats"
	SourceZookeeper  = "zookeeper"
	SourcePostgres   = "postgres"
	SourceKubernetes = "kubernetes"
	SourceFirestore  = "firestore"
)

// Config holds runtime parameters for beacond.
// Zero values are replaced by defaults in Load.
type Config struct {
	Addr     string   `json:"addr" yaml:"addr" toml:"addr" validate:"required"`
	Secret   string   `json:"secret" yaml:"secret" toml:"secret" validate:"required,min=16"`
	LogLevel string   `json:"log_level" yaml:"log_level" toml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	Pretty   bool     `json:"pretty" yaml:"pretty" toml:"pretty"`
	Origins  []string `json:"origins" yaml:"origins" toml:"origins"`

	// CallTimeout bounds a single call to the map host.
	CallTimeout Duration `json:"call_timeout" yaml:"call_timeout" toml:"call_timeout"`
	// ConnectTimeout bounds how long marker creation waits for a host.
	ConnectTimeout Duration `json:"connect_timeout" yaml:"connect_timeout" toml:"connect_timeout"`

	Redis      Redis      `json:"redis" yaml:"redis" toml:"redis"`
	Etcd       Etcd       `json:"etcd" yaml:"etcd" toml:"etcd"`
	Consul     Consul     `json:"consul" yaml:"consul" toml:"consul"`
	Nats       Nats       `json:"nats" yaml:"nats" toml:"nats"`
	Zookeeper  Zookeeper  `json:"zookeeper" yaml:"zookeeper" toml:"zookeeper"`
	Postgres   Postgres   `json:"postgres" yaml:"postgres" toml:"postgres"`
	Kubernetes Kubernetes `json:"kubernetes" yaml:"kubernetes" toml:"kubernetes"`
	Firestore  Firestore  `json:"firestore" yaml:"firestore" toml:"firestore"`

	Markers []Marker `json:"markers" yaml:"markers" toml:"markers" validate:"dive"`
}

// Marker declares one marker and where its declaration comes from.
//
// Key names the declaration within its source: a redis or NATS key, an etcd
// or consul key, a ZooKeeper path, a postgres row key, "name/dataKey" or
// "secret/name/dataKey" for kubernetes and "collection/document" for
// firestore.
type Marker struct {
	Name     string   `json:"name" yaml:"name" toml:"name" validate:"required"`
	Source   string   `json:"source" yaml:"source" toml:"source" validate:"required,oneof=file redis etcd consul nats zookeeper postgres kubernetes firestore"`
	Path     string   `json:"path" yaml:"path" toml:"path" validate:"required_if=Source file"`
	Key      string   `json:"key" yaml:"key" toml:"key" validate:"required_unless=Source file"`
	Format   string   `json:"format" yaml:"format" toml:"format" validate:"omitempty,oneof=json yaml toml"`
	Debounce Duration `json:"debounce" yaml:"debounce" toml:"debounce"`
}

// Redis configures the redis client shared by redis sources.
type Redis struct {
	Addr     string `json:"addr" yaml:"addr" toml:"addr"`
	Password string `json:"password" yaml:"password" toml:"password"`
	DB       int    `json:"db" yaml:"db" toml:"db"`
}

// Etcd configures the etcd client shared by etcd sources.
type Etcd struct {
	Endpoints []string `json:"endpoints" yaml:"endpoints" toml:"endpoints"`
}

// Consul configures the consul client shared by consul sources.
type Consul struct {
	Addr  string `json:"addr" yaml:"addr" toml:"addr"`
	Token string `json:"token" yaml:"token" toml:"token"`
}

// Nats configures the NATS connection and KV bucket shared by nats sources.
type Nats struct {
	URL    string `json:"url" yaml:"url" toml:"url"`
	Bucket string `json:"bucket" yaml:"bucket" toml:"bucket"`
}

// Zookeeper configures the ZooKeeper ensemble shared by zookeeper sources.
type Zookeeper struct {
	Servers        []string `json:"servers" yaml:"servers" toml:"servers"`
	SessionTimeout Duration `json:"session_timeout" yaml:"session_timeout" toml:"session_timeout"`
}

// Postgres configures the pool shared by postgres sources.
type Postgres struct {
	DSN     string `json:"dsn" yaml:"dsn" toml:"dsn"`
	Table   string `json:"table" yaml:"table" toml:"table"`
	Channel string `json:"channel" yaml:"channel" toml:"channel"`
}

// Kubernetes configures the API client shared by kubernetes sources. An
// empty Kubeconfig means in-cluster configuration.
type Kubernetes struct {
	Kubeconfig string `json:"kubeconfig" yaml:"kubeconfig" toml:"kubeconfig"`
	Namespace  string `json:"namespace" yaml:"namespace" toml:"namespace"`
}

// Firestore configures the client shared by firestore sources.
type Firestore struct {
	Project string `json:"project" yaml:"project" toml:"project"`
	Field   string `json:"field" yaml:"field" toml:"field"`
}

// Defaults.
const (
	DefaultAddr                    = ":8080"
	DefaultLogLevel                = "info"
	DefaultKubernetesNamespace     = "default"
	DefaultZookeeperSessionTimeout = 10 * time.Second
)

var validate = validator.New()

// Load reads a configuration file based on its extension, applies defaults
// and validates the result. Supports .yaml/.yml, .json and .toml.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) defaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Kubernetes.Namespace == "" {
		c.Kubernetes.Namespace = DefaultKubernetesNamespace
	}
	if c.Zookeeper.SessionTimeout == 0 {
		c.Zookeeper.SessionTimeout = Duration(DefaultZookeeperSessionTimeout)
	}
}

// Validate checks struct constraints and cross-field requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	seen := make(map[string]bool, len(c.Markers))
	for _, m := range c.Markers {
		if seen[m.Name] {
			return fmt.Errorf("invalid config: duplicate marker %q", m.Name)
		}
		seen[m.Name] = true

		switch m.Source {
		case SourceRedis:
			if c.Redis.Addr == "" {
				return fmt.Errorf("invalid config: marker %q uses redis but redis.addr is empty", m.Name)
			}
		case SourceEtcd:
			if len(c.Etcd.Endpoints) == 0 {
				return fmt.Errorf("invalid config: marker %q uses etcd but etcd.endpoints is empty", m.Name)
			}
		case SourceNats:
			if c.Nats.URL == "" || c.Nats.Bucket == "" {
				return fmt.Errorf("invalid config: marker %q uses nats but nats.url or nats.bucket is empty", m.Name)
			}
		case SourceZookeeper:
			if len(c.Zookeeper.Servers) == 0 {
				return fmt.Errorf("invalid config: marker %q uses zookeeper but zookeeper.servers is empty", m.Name)
			}
		case SourcePostgres:
			if c.Postgres.DSN == "" {
				return fmt.Errorf("invalid config: marker %q uses postgres but postgres.dsn is empty", m.Name)
			}
		case SourceKubernetes:
			if _, _, _, err := KubernetesKey(m.Key); err != nil {
				return fmt.Errorf("invalid config: marker %q: %w", m.Name, err)
			}
		case SourceFirestore:
			if c.Firestore.Project == "" {
				return fmt.Errorf("invalid config: marker %q uses firestore but firestore.project is empty", m.Name)
			}
			if _, _, err := FirestoreKey(m.Key); err != nil {
				return fmt.Errorf("invalid config: marker %q: %w", m.Name, err)
			}
		}
	}
	return nil
}

// Uses reports whether any marker reads from source.
func (c Config) Uses(source string) bool {
	for _, m := range c.Markers {
		if m.Source == source {
			return true
		}
	}
	return false
}

// KubernetesKey splits a kubernetes marker key, "name/dataKey" or
// "secret/name/dataKey", into its parts.
func KubernetesKey(key string) (secret bool, name, dataKey string, err error) {
	parts := strings.Split(key, "/")
	switch {
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return false, parts[0], parts[1], nil
	case len(parts) == 3 && parts[0] == "secret" && parts[1] != "" && parts[2] != "":
		return true, parts[1], parts[2], nil
	}
	return false, "", "", fmt.Errorf("kubernetes key %q must be name/dataKey or secret/name/dataKey", key)
}

// FirestoreKey splits a firestore marker key, "collection/document", into
// its parts.
func FirestoreKey(key string) (collection, document string, err error) {
	collection, document, ok := strings.Cut(key, "/")
	if !ok || collection == "" || document == "" || strings.Contains(document, "/") {
		return "", "", fmt.Errorf("firestore key %q must be collection/document", key)
	}
	return collection, document, nil
}

// Duration is a time.Duration that decodes from strings such as "250ms".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler, used by TOML and YAML.
func (d *Duration) UnmarshalText(b []byte) error { return d.parse(string(b)) }

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.parse(s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

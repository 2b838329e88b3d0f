// Package config loads and validates the clustering engine's runtime
// configuration: REST server settings, engine defaults, the query
// cache, and the storage backend. Layered sources (a config file, then
// environment variables, then built-in defaults) are resolved with
// viper so an operator can override any single field without writing
// a full file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every top-level configuration section.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Storage StorageConfig `mapstructure:"storage"`
}

// ServerConfig holds the REST API server's network and lifecycle
// settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	MaxConnections  int           `mapstructure:"max_connections"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnableTLS       bool          `mapstructure:"enable_tls"`
	CertFile        string        `mapstructure:"cert_file"`
	KeyFile         string        `mapstructure:"key_file"`
	LogLevel        string        `mapstructure:"log_level"`
}

// EngineConfig holds engine default settings. They are loaded and
// validated, but kmeansd does not pass them to the engine: a run uses
// the fallbacks built into pkg/kmeans (max_iter 20, conv_threshold
// 0.001, sample_frac 0.01), has no default metric or init method, and
// does not enforce max_k.
type EngineConfig struct {
	DefaultMetric        string  `mapstructure:"default_metric"`
	DefaultInitMethod    string  `mapstructure:"default_init_method"`
	DefaultMaxIter       int     `mapstructure:"default_max_iter"`
	DefaultConvThreshold float64 `mapstructure:"default_conv_threshold"`
	DefaultSampleFrac    float64 `mapstructure:"default_sample_frac"`
	MaxK                 int     `mapstructure:"max_k"`
}

// CacheConfig holds result-cache settings. They are loaded and
// validated; no component in this repository keeps a result cache or
// reads them.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Capacity int           `mapstructure:"capacity"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Backend    string `mapstructure:"backend"` // "badger", "pinecone", or "qdrant"
	DataDir    string `mapstructure:"data_dir"`
	InMemory   bool   `mapstructure:"in_memory"`
	SyncWrites bool   `mapstructure:"sync_writes"`
}

// Default returns the built-in configuration used when no file or
// environment override is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MaxConnections:  1000,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			EnableTLS:       false,
			LogLevel:        "info",
		},
		Engine: EngineConfig{
			DefaultMetric:        "l2norm",
			DefaultInitMethod:    "kmeans++",
			DefaultMaxIter:       20,
			DefaultConvThreshold: 0.001,
			DefaultSampleFrac:    0.01,
			MaxK:                 10000,
		},
		Cache: CacheConfig{
			Enabled:  true,
			Capacity: 1000,
			TTL:      5 * time.Minute,
		},
		Storage: StorageConfig{
			Backend:    "badger",
			DataDir:    "./data",
			InMemory:   false,
			SyncWrites: false,
		},
	}
}

// Load resolves configuration from, in increasing priority: built-in
// defaults, a config file at path (skipped if path is empty), and
// KMEANS_-prefixed environment variables (e.g. KMEANS_SERVER_PORT).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KMEANS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %q: %w", path, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv resolves configuration from built-in defaults and
// environment variables only, with no config file.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.max_connections", d.Server.MaxConnections)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.enable_tls", d.Server.EnableTLS)
	v.SetDefault("server.log_level", d.Server.LogLevel)

	v.SetDefault("engine.default_metric", d.Engine.DefaultMetric)
	v.SetDefault("engine.default_init_method", d.Engine.DefaultInitMethod)
	v.SetDefault("engine.default_max_iter", d.Engine.DefaultMaxIter)
	v.SetDefault("engine.default_conv_threshold", d.Engine.DefaultConvThreshold)
	v.SetDefault("engine.default_sample_frac", d.Engine.DefaultSampleFrac)
	v.SetDefault("engine.max_k", d.Engine.MaxK)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.capacity", d.Cache.Capacity)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.data_dir", d.Storage.DataDir)
	v.SetDefault("storage.in_memory", d.Storage.InMemory)
	v.SetDefault("storage.sync_writes", d.Storage.SyncWrites)
}

// Validate checks that the resolved configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("invalid max connections: %d (must be > 0)", c.Server.MaxConnections)
	}
	if c.Server.EnableTLS {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert or key file not specified")
		}
	}

	if c.Engine.DefaultMaxIter < 1 {
		return fmt.Errorf("invalid default_max_iter: %d (must be > 0)", c.Engine.DefaultMaxIter)
	}
	if c.Engine.DefaultConvThreshold < 0 || c.Engine.DefaultConvThreshold > 1 {
		return fmt.Errorf("invalid default_conv_threshold: %v (must be in [0,1])", c.Engine.DefaultConvThreshold)
	}
	if c.Engine.DefaultSampleFrac <= 0 || c.Engine.DefaultSampleFrac > 1 {
		return fmt.Errorf("invalid default_sample_frac: %v (must be in (0,1])", c.Engine.DefaultSampleFrac)
	}
	if c.Engine.MaxK < 1 {
		return fmt.Errorf("invalid max_k: %d (must be > 0)", c.Engine.MaxK)
	}

	if c.Cache.Enabled && c.Cache.Capacity < 1 {
		return fmt.Errorf("invalid cache capacity: %d (must be > 0)", c.Cache.Capacity)
	}

	switch c.Storage.Backend {
	case "badger", "pinecone", "qdrant":
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "badger" && !c.Storage.InMemory && c.Storage.DataDir == "" {
		return fmt.Errorf("badger storage requires data_dir unless in_memory is set")
	}

	return nil
}

// Address returns the server's listen address (host:port).
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config represents the main configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	BigCache   BigCacheConfig   `yaml:"bigcache"`
	KeyDB      KeyDBConfig      `yaml:"keydb"`
	MultiCache MultiCacheConfig `yaml:"multi_cache"`
	Install    InstallConfig    `yaml:"install"`
}

// ServerConfig configures the listening proxy
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// UpstreamConfig configures the origin the pages are served from
type UpstreamConfig struct {
	URL string `yaml:"url" validate:"required,url"`
	// Timeout of zero leaves hung requests to the client's own timeout
	Timeout      time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" validate:"gte=0"`
}

// InstallConfig bounds the startup install retries
type InstallConfig struct {
	RetryInitialInterval time.Duration `yaml:"retry_initial_interval" validate:"gte=0"`
	RetryMaxInterval     time.Duration `yaml:"retry_max_interval" validate:"gte=0"`
	// RetryMaxElapsed caps the whole retry loop; the admin update can still retry afterwards
	RetryMaxElapsed time.Duration `yaml:"retry_max_elapsed" validate:"gte=0"`
}

// BigCacheConfig configures the in-process L1 store
type BigCacheConfig struct {
	Enabled bool `yaml:"enabled"`
	// Size is the quota per generation in MB. Writes past it are rejected, never evicted.
	Size   int `yaml:"size" validate:"gte=0"`
	Shards int `yaml:"shards" validate:"gte=0"`
	// MaxEntrySize is the expected entry size used to preallocate shards
	MaxEntrySize  int           `yaml:"max_entry_size" validate:"gte=0"`
	StatsInterval time.Duration `yaml:"stats_interval" validate:"gte=0"`
}

// KeyDBConfig configures the persistent L2 store
type KeyDBConfig struct {
	Enabled    bool             `yaml:"enabled"`
	KeyPrefix  string           `yaml:"key_prefix"`
	Connection ConnectionConfig `yaml:"connection"`
	Keepalive  KeepaliveConfig  `yaml:"keepalive"`
}

// ConnectionConfig holds KeyDB timeouts
type ConnectionConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	SendTimeout    time.Duration `yaml:"send_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
}

// KeepaliveConfig holds KeyDB pool settings
type KeepaliveConfig struct {
	PoolSize       int           `yaml:"pool_size"`
	MaxIdleTimeout time.Duration `yaml:"max_idle_timeout"`
}

// MultiCacheConfig configures the layered store
type MultiCacheConfig struct {
	// EnablePropagation copies L2 hits back into L1
	EnablePropagation bool `yaml:"enable_propagation"`
}

// Env holds environment overrides
type Env struct {
	ConfigFile   string `env:"CACHE_CONFIG_FILE" envDefault:"/app/cache_config.yaml"`
	ManifestFile string `env:"CACHE_MANIFEST_FILE" envDefault:"/app/precache_manifest.yaml"`
	KeyDBURL     string `env:"KEYDB_URL"`
	KeyDBURLFile string `env:"CACHE_KEYDB_URL_FILE" envDefault:"/app/.keydb-url"`
	ListenAddr   string `env:"CACHE_LISTEN_ADDR"`
	UpstreamURL  string `env:"CACHE_UPSTREAM_URL"`
	Generation   string `env:"CACHE_GENERATION"`
}

var validate = validator.New()

// LoadEnv parses environment overrides
func LoadEnv() (*Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &e, nil
}

// Default returns the configuration used when no file is present
func Default() *Config {
	c := &Config{
		BigCache: BigCacheConfig{Enabled: true},
	}
	c.applyDefaults()
	return c
}

// LoadConfig loads configuration from file path
func LoadConfig(configPath string, logger *zap.Logger) (*Config, error) {
	logger.Info("Loading configuration", zap.String("path", configPath))

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var config Config
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to decode YAML config: %w", err)
	}

	// Apply defaults
	config.applyDefaults()
	return &config, nil
}

// ApplyEnv overrides file values with non-empty environment values
func (c *Config) ApplyEnv(e *Env) {
	if e == nil {
		return
	}
	if e.ListenAddr != "" {
		c.Server.ListenAddr = e.ListenAddr
	}
	if e.UpstreamURL != "" {
		c.Upstream.URL = e.UpstreamURL
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if !c.BigCache.Enabled && !c.KeyDB.Enabled {
		return errors.New("invalid configuration: at least one of bigcache or keydb must be enabled")
	}

	// bigcache requires a power of two shard count
	if c.BigCache.Shards&(c.BigCache.Shards-1) != 0 {
		return fmt.Errorf("invalid configuration: bigcache.shards must be a power of two, got %d", c.BigCache.Shards)
	}

	return nil
}

// GetReadTimeout returns the KeyDB read timeout
func (c *KeyDBConfig) GetReadTimeout() time.Duration {
	return c.Connection.ReadTimeout
}

// GetSendTimeout returns the KeyDB send timeout
func (c *KeyDBConfig) GetSendTimeout() time.Duration {
	return c.Connection.SendTimeout
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}

	if c.Upstream.MaxBodyBytes == 0 {
		c.Upstream.MaxBodyBytes = 10 * 1024 * 1024
	}

	if c.Install.RetryInitialInterval == 0 {
		c.Install.RetryInitialInterval = time.Second
	}
	if c.Install.RetryMaxInterval == 0 {
		c.Install.RetryMaxInterval = 30 * time.Second
	}
	if c.Install.RetryMaxElapsed == 0 {
		c.Install.RetryMaxElapsed = 30 * time.Minute
	}

	if c.BigCache.Size == 0 {
		c.BigCache.Size = 64
	}
	if c.BigCache.Shards == 0 {
		c.BigCache.Shards = 64
	}
	if c.BigCache.MaxEntrySize == 0 {
		c.BigCache.MaxEntrySize = 1024 * 1024
	}
	if c.BigCache.StatsInterval == 0 {
		c.BigCache.StatsInterval = 30 * time.Second
	}

	if c.KeyDB.KeyPrefix == "" {
		c.KeyDB.KeyPrefix = "offline-cache"
	}
	if c.KeyDB.Connection.ConnectTimeout == 0 {
		c.KeyDB.Connection.ConnectTimeout = 2 * time.Second
	}
	if c.KeyDB.Connection.SendTimeout == 0 {
		c.KeyDB.Connection.SendTimeout = 2 * time.Second
	}
	if c.KeyDB.Connection.ReadTimeout == 0 {
		c.KeyDB.Connection.ReadTimeout = 2 * time.Second
	}
	if c.KeyDB.Keepalive.PoolSize == 0 {
		c.KeyDB.Keepalive.PoolSize = 10
	}
	if c.KeyDB.Keepalive.MaxIdleTimeout == 0 {
		c.KeyDB.Keepalive.MaxIdleTimeout = 60 * time.Second
	}
}

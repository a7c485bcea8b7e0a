// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Configuration loading (defaults, optional TOML file, NETIO_* environment)
// and a thread-safe store with reload propagation.

package control

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix scopes environment overrides, e.g. NETIO_NET_KEEPALIVE_SECONDS.
	EnvPrefix = "NETIO"

	defaultConfigTemplate = `# Configuration file for hioload-netio
[net]
keepalive_seconds = 30   # negative disables keepalive configuration
resolve_timeout_ms = 5000
sndbuf = 0               # 0 keeps the OS default
nodelay = true

[reactor]
capacity = 256           # event records per wait
poll_timeout_ms = 1000
cpu = -1                 # pin the loop thread to this CPU, -1 = no pinning

[metrics]
enabled = true
addr = ":9102"

[logging]
log_level = "info"       # debug, info, warn, error
log_format = "console"   # json, console
`
)

type NetConfig struct {
	KeepAliveSeconds int  `mapstructure:"keepalive_seconds"`
	ResolveTimeoutMs int  `mapstructure:"resolve_timeout_ms"`
	SndBuf           int  `mapstructure:"sndbuf"`
	NoDelay          bool `mapstructure:"nodelay"`
}

type ReactorConfig struct {
	Capacity      int `mapstructure:"capacity"`
	PollTimeoutMs int `mapstructure:"poll_timeout_ms"`
	CPU           int `mapstructure:"cpu"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type LoggingConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Config is the full runtime configuration.
type Config struct {
	Net     NetConfig     `mapstructure:"net"`
	Reactor ReactorConfig `mapstructure:"reactor"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate rejects values the I/O layer cannot run with.
func (c *Config) Validate() error {
	if c.Reactor.Capacity <= 0 {
		return fmt.Errorf("reactor.capacity must be positive, got %d", c.Reactor.Capacity)
	}
	if c.Net.ResolveTimeoutMs < 0 {
		return fmt.Errorf("net.resolve_timeout_ms must not be negative, got %d", c.Net.ResolveTimeoutMs)
	}
	if c.Net.SndBuf < 0 {
		return fmt.Errorf("net.sndbuf must not be negative, got %d", c.Net.SndBuf)
	}
	return nil
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(bytes.NewBufferString(defaultConfigTemplate)); err != nil {
		return nil, fmt.Errorf("load default configuration: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

// Default returns the built-in configuration with environment overrides applied.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// The template is static; only a malformed environment value lands here.
		v := viper.New()
		v.SetConfigType("toml")
		_ = v.ReadConfig(bytes.NewBufferString(defaultConfigTemplate))
		cfg = &Config{}
		_ = v.Unmarshal(cfg)
	}
	return cfg
}

// Load reads the defaults, merges path when non-empty, then applies NETIO_*
// environment overrides.
func Load(path string) (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("configuration file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read configuration file %s: %w", path, err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigStore holds the active configuration and notifies listeners on change.
type ConfigStore struct {
	mu        sync.RWMutex
	config    Config
	listeners []func(Config)
}

// NewConfigStore initializes a store with cfg.
func NewConfigStore(cfg *Config) *ConfigStore {
	cs := &ConfigStore{}
	if cfg != nil {
		cs.config = *cfg
	}
	return cs
}

// GetSnapshot returns a copy of the active configuration.
func (cs *ConfigStore) GetSnapshot() Config {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.config
}

// SetConfig validates and installs cfg, then runs every listener with it.
func (cs *ConfigStore) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cs.mu.Lock()
	cs.config = cfg
	listeners := append([]func(Config){}, cs.listeners...)
	cs.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
	return nil
}

// OnReload registers a listener called after every SetConfig.
func (cs *ConfigStore) OnReload(fn func(Config)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

var (
	defaultStoreOnce sync.Once
	defaultStore     *ConfigStore
)

// Store returns the process-wide configuration store, seeded with Default().
func Store() *ConfigStore {
	defaultStoreOnce.Do(func() {
		defaultStore = NewConfigStore(Default())
	})
	return defaultStore
}

// Current is shorthand for Store().GetSnapshot().
func Current() Config { return Store().GetSnapshot() }

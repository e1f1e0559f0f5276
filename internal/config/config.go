// Package config loads a server's bring-up configuration from YAML:
// which ports to listen on with which wire dialect, queue and timeout
// tuning, and which stock adapters/interfaces to wire in.
//
// Grounded on the teacher's internal/config/config.go
// (github.com/tenzoki/agen/cellorg), which reads a single YAML document
// with gopkg.in/yaml.v3 and fills in defaults for anything the file
// omits.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Listener describes one (host:port, dialect) pair the server binds on
// startup. Dialect names a registered handler ("simple", "json", "xml").
type Listener struct {
	Address string `yaml:"address"`
	Dialect string `yaml:"dialect"`
}

// Config is a server's full bring-up configuration.
type Config struct {
	Listeners []Listener `yaml:"listeners"`

	QueueDepth     int  `yaml:"queue_depth"`
	ThreadedDigest bool `yaml:"threaded_digest"`

	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	IdleTimeoutSeconds  int `yaml:"idle_timeout_seconds"`
	ChunkSize           int `yaml:"chunk_size"`
	MaxHeaderBytes      int `yaml:"max_header_bytes"`

	FileIORoot string `yaml:"file_io_root"`

	Adapters AdapterConfig `yaml:"adapters"`

	Log LogConfig `yaml:"log"`

	Admin AdminConfig `yaml:"admin"`
}

// AdapterConfig toggles the stock adapters described in the
// specification's adapter table. All default to enabled.
type AdapterConfig struct {
	DeprecationWarnings *bool `yaml:"deprecation_warnings"`
	GNUTerryPratchett   *bool `yaml:"gnu_terry_pratchett"`
	HeaderAsKwarg       *bool `yaml:"header_as_kwarg"`
	StatusCode          *bool `yaml:"status_code"`
	Profiling           *bool `yaml:"profiling"`
}

func (a AdapterConfig) enabled(p *bool) bool {
	return p == nil || *p
}

// DeprecationWarningsEnabled reports whether the deprecation-warnings
// stock adapter should be wired in.
func (a AdapterConfig) DeprecationWarningsEnabled() bool { return a.enabled(a.DeprecationWarnings) }

// GNUTerryPratchettEnabled reports whether the GNU Terry Pratchett
// stock adapter should be wired in.
func (a AdapterConfig) GNUTerryPratchettEnabled() bool { return a.enabled(a.GNUTerryPratchett) }

// HeaderAsKwargEnabled reports whether the header-as-kwarg stock
// adapter should be wired in.
func (a AdapterConfig) HeaderAsKwargEnabled() bool { return a.enabled(a.HeaderAsKwarg) }

// StatusCodeEnabled reports whether the status-code stock adapter
// should be wired in.
func (a AdapterConfig) StatusCodeEnabled() bool { return a.enabled(a.StatusCode) }

// ProfilingEnabled reports whether the profiling stock adapter should
// be wired in.
func (a AdapterConfig) ProfilingEnabled() bool { return a.enabled(a.Profiling) }

// LogConfig configures the server's logger.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// AdminConfig configures the Prometheus metrics / health-check HTTP surface.
type AdminConfig struct {
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// ReadTimeout returns the configured per-read socket timeout.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// IdleTimeout returns the configured per-connection idle lifetime.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

// Load reads and parses a YAML configuration file, filling in the
// specification's reference defaults for anything left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	applyDefaults(&c)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the specification's reference configuration with a
// single Simple-dialect listener.
func Default(address string) *Config {
	c := &Config{Listeners: []Listener{{Address: address, Dialect: "simple"}}}
	applyDefaults(c)
	return c
}

func applyDefaults(c *Config) {
	if c.QueueDepth == 0 {
		c.QueueDepth = 256
	}
	if c.ReadTimeoutSeconds == 0 {
		c.ReadTimeoutSeconds = 2
	}
	if c.IdleTimeoutSeconds == 0 {
		c.IdleTimeoutSeconds = 30
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 16384
	}
	if c.MaxHeaderBytes == 0 {
		c.MaxHeaderBytes = 1 << 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 28
	}
	if c.Admin.Address == "" {
		c.Admin.Address = ":9090"
	}
}

func (c *Config) validate() error {
	if len(c.Listeners) == 0 {
		return fmt.Errorf("config: at least one listener is required")
	}
	for _, l := range c.Listeners {
		if l.Address == "" {
			return fmt.Errorf("config: listener with empty address")
		}
		switch l.Dialect {
		case "simple", "json", "xml":
		default:
			return fmt.Errorf("config: listener %s: unknown dialect %q", l.Address, l.Dialect)
		}
	}
	if c.QueueDepth < 0 {
		return fmt.Errorf("config: queue_depth cannot be negative")
	}
	return nil
}

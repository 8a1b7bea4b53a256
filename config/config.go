// Package config loads the engine configuration: the database to open,
// engine settings and, optionally, entities declared in YAML instead of
// Go code.
//
// Config file locations (priority order):
//  1. $MAGICBOX_CONFIG
//  2. ./magicbox.yaml
//  3. $XDG_CONFIG_HOME/magicbox/config.yaml
//  4. ~/.config/magicbox/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/magicbox/driver"
	"github.com/syssam/magicbox/privacy"
)

const (
	// EnvConfigPath is the environment variable for an explicit config path.
	EnvConfigPath = "MAGICBOX_CONFIG"
	// ConfigFileName is the config file looked up in the working directory.
	ConfigFileName = "magicbox.yaml"
	// ConfigDirName is the config directory name under XDG.
	ConfigDirName = "magicbox"
)

// Defaults.
const (
	DefaultDriver             = "sqlite"
	DefaultDSN                = "file:magicbox.db"
	DefaultSlowQueryThreshold = 200 * time.Millisecond
)

// Config is the root of the configuration file.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Engine   EngineConfig   `yaml:"engine"`
	Entities []EntityConfig `yaml:"entities,omitempty"`
}

// DatabaseConfig names the database to open.
type DatabaseConfig struct {
	// Driver is one of sqlite, postgres, pgx or mysql.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// EngineConfig holds the repository settings.
type EngineConfig struct {
	// DepthLimit is the maximum number of relation hops of filters, sorts
	// and eager loads. Zero allows none.
	DepthLimit         *int     `yaml:"depth_limit,omitempty"`
	SlowQueryThreshold Duration `yaml:"slow_query_threshold,omitempty"`
	Debug              bool     `yaml:"debug,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load finds and loads the config file, or returns defaults if none is
// found. The returned path is empty in that case.
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return Default(), "", nil
	}
	c, err := LoadFromPath(path)
	return c, path, err
}

// LoadFromPath loads the config file at path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML configuration and fills in defaults.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	if c.Database.DSN == "" && c.Database.Driver == DefaultDriver {
		c.Database.DSN = DefaultDSN
	}
	if c.Engine.DepthLimit == nil {
		n := privacy.DefaultDepthLimit
		c.Engine.DepthLimit = &n
	}
	if c.Engine.SlowQueryThreshold == 0 {
		c.Engine.SlowQueryThreshold = Duration(DefaultSlowQueryThreshold)
	}
}

// Depth returns the configured depth limit.
func (c *Config) Depth() int {
	if c.Engine.DepthLimit == nil {
		return privacy.DefaultDepthLimit
	}
	return *c.Engine.DepthLimit
}

// Dialect returns the SQL dialect of the configured driver.
func (c *Config) Dialect() (string, error) {
	src, err := driver.Lookup(c.Database.Driver)
	if err != nil {
		return "", err
	}
	return src.Dialect, nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// FindConfigPath returns the first existing config file, or "".
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" && fileExists(path) {
		return path
	}
	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		if path := filepath.Join(xdg, ConfigDirName, "config.yaml"); fileExists(path) {
			return path
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if path := filepath.Join(home, ".config", ConfigDirName, "config.yaml"); fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Package config loads the client configuration shared by the halclient and
// halserver commands.
//
// Config file locations (priority order):
//  1. $HALCLIENT_CONFIG
//  2. ./halclient.yaml
//  3. $XDG_CONFIG_HOME/halclient/config.yaml
//  4. ~/.config/halclient/config.yaml
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	halclient "github.com/reoring/halclient"
)

// Config is the on-disk client configuration.
type Config struct {
	BaseURL      string            `yaml:"base_url"`
	Timeout      time.Duration     `yaml:"timeout"`
	Headers      map[string]string `yaml:"headers,omitempty"`
	MaxBodyBytes int64             `yaml:"max_body_bytes,omitempty"`
	// JSONDriver is "go-json" (default) or "encoding/json".
	JSONDriver string `yaml:"json_driver"`
	// FailurePolicy is "retry" (default) or "cache".
	FailurePolicy string `yaml:"failure_policy"`
	// Unknown is "strip" (default) or "strict".
	Unknown  string       `yaml:"unknown"`
	MaxDepth int          `yaml:"max_depth"`
	Log      LogConfig    `yaml:"log"`
	Server   ServerConfig `yaml:"server"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// ServerConfig configures the fixture server.
type ServerConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
}

const (
	defaultBaseURL  = "http://localhost:8080"
	defaultTimeout  = 10 * time.Second
	defaultAddr     = ":8080"
	defaultDatabase = "./halserver.db"
)

// Load locates and loads the config file. The returned Location says which
// file was used and why; when none exists it carries SourceDefaults.
func Load() (*Config, Location, error) {
	loc, err := Locate()
	if err != nil {
		return nil, loc, err
	}
	if !loc.Found() {
		return DefaultConfig(), loc, nil
	}
	cfg, err := load(loc.Path)
	return cfg, loc, err
}

// LoadFromPath loads the file named on the command line.
func LoadFromPath(path string) (*Config, Location, error) {
	loc := Location{Path: path, Source: SourceFlag}
	cfg, err := load(path)
	return cfg, loc, err
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.JSONDriver == "" {
		c.JSONDriver = "go-json"
	}
	if c.FailurePolicy == "" {
		c.FailurePolicy = halclient.RetryOnFailure.String()
	}
	if c.Unknown == "" {
		c.Unknown = halclient.UnknownStrip.String()
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = halclient.DefaultMaxDepth
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.Database == "" {
		c.Server.Database = defaultDatabase
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("base_url %q must be an absolute URL", c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes must not be negative")
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative")
	}
	switch c.JSONDriver {
	case "go-json", "encoding/json", "std":
	default:
		return fmt.Errorf("unknown json_driver %q", c.JSONDriver)
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if _, err := c.UnknownPolicy(); err != nil {
		return err
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}

// Policy returns the configured failure policy.
func (c *Config) Policy() (halclient.FailurePolicy, error) {
	switch c.FailurePolicy {
	case "", "retry":
		return halclient.RetryOnFailure, nil
	case "cache":
		return halclient.CacheFailure, nil
	}
	return 0, fmt.Errorf("unknown failure_policy %q", c.FailurePolicy)
}

// UnknownPolicy returns the configured unknown-key policy.
func (c *Config) UnknownPolicy() (halclient.UnknownPolicy, error) {
	switch c.Unknown {
	case "", "strip":
		return halclient.UnknownStrip, nil
	case "strict":
		return halclient.UnknownStrict, nil
	}
	return 0, fmt.Errorf("unknown unknown policy %q", c.Unknown)
}

// HTTPConfig returns the fetcher settings.
func (c *Config) HTTPConfig(logger *slog.Logger) halclient.HTTPConfig {
	return halclient.HTTPConfig{
		BaseURL:      c.BaseURL,
		Timeout:      c.Timeout,
		Headers:      c.Headers,
		MaxBodyBytes: c.MaxBodyBytes,
		JSON:         halclient.JSONDriverByName(c.JSONDriver),
		Logger:       logger,
	}
}

// MapperConfig returns the mapper settings around the given wiring.
func (c *Config) MapperConfig(reg *halclient.Registry, proxies *halclient.ProxyFactory, f halclient.Fetcher, logger *slog.Logger) halclient.MapperConfig {
	unknown, _ := c.UnknownPolicy()
	return halclient.MapperConfig{
		Registry: reg,
		Proxies:  proxies,
		Fetcher:  f,
		JSON:     halclient.JSONDriverByName(c.JSONDriver),
		Unknown:  unknown,
		MaxDepth: c.MaxDepth,
		Logger:   logger,
	}
}

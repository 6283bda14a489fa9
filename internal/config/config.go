// Package config provides configuration management for the connector.
package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/fileutil"
)

// Config represents the application configuration.
type Config struct {
	Version   int                    `yaml:"version"`
	Home      string                 `yaml:"home"`
	Network   NetworkConfig          `yaml:"network"`
	Chains    map[string]ChainConfig `yaml:"chains"`
	Timeouts  TimeoutsConfig         `yaml:"timeouts"`
	RateLimit RateLimitConfig        `yaml:"rate_limit"`
	KMS       KMSConfig              `yaml:"kms"`
	Events    EventsConfig           `yaml:"events"`
	Cache     CacheConfig            `yaml:"cache"`
	Server    ServerConfig           `yaml:"server"`
	Output    OutputConfig           `yaml:"output"`
	Logging   LoggingConfig          `yaml:"logging"`
}

// NetworkConfig selects mainnet or testnet for every chain.
type NetworkConfig struct {
	Testnet bool `yaml:"testnet"`
}

// ChainConfig defines the nodes of one chain.
type ChainConfig struct {
	Mainnet        []string `yaml:"mainnet,omitempty"`
	Testnet        []string `yaml:"testnet,omitempty"`
	APIKey         string   `yaml:"api_key,omitempty"`
	MainnetChainID int64    `yaml:"mainnet_chain_id,omitempty"`
	TestnetChainID int64    `yaml:"testnet_chain_id,omitempty"`
}

// Nodes returns the node URLs of the selected network.
func (c ChainConfig) Nodes(testnet bool) []string {
	if testnet {
		return c.Testnet
	}
	return c.Mainnet
}

// TimeoutsConfig bounds each kind of network call.
type TimeoutsConfig struct {
	Network   time.Duration `yaml:"network"`
	Build     time.Duration `yaml:"build"`
	Broadcast time.Duration `yaml:"broadcast"`
	KMS       time.Duration `yaml:"kms"`
	Read      time.Duration `yaml:"read"`
}

// RateLimitConfig throttles requests per node URL.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// KMS backends.
const (
	KMSBackendNone  = "none"
	KMSBackendHTTP  = "http"
	KMSBackendRedis = "redis"
)

// KMSConfig defines where pending signatures are stored.
type KMSConfig struct {
	Backend       string        `yaml:"backend"`
	URL           string        `yaml:"url,omitempty"`
	APIKey        string        `yaml:"api_key,omitempty"`
	RedisAddr     string        `yaml:"redis_addr,omitempty"`
	RedisPassword string        `yaml:"redis_password,omitempty"`
	RedisDB       int           `yaml:"redis_db,omitempty"`
	TTL           time.Duration `yaml:"ttl"`
}

// EventsConfig defines the submission event sink. No brokers disables it.
type EventsConfig struct {
	Brokers []string `yaml:"brokers,omitempty"`
	Topic   string   `yaml:"topic"`
}

// CacheConfig sizes the block cache.
type CacheConfig struct {
	Enabled bool  `yaml:"enabled"`
	MaxCost int64 `yaml:"max_cost"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// IsTestnet reports whether requests target test networks.
func (c *Config) IsTestnet(_ context.Context) (bool, error) {
	return c.Network.Testnet, nil
}

// NodesURL returns the configured node URLs of a chain for the selected network.
func (c *Config) NodesURL(_ context.Context, id chain.ID, testnet bool) ([]string, error) {
	return c.Chain(id).Nodes(testnet), nil
}

// Chain returns the settings of a chain. Keys are matched case-insensitively.
func (c *Config) Chain(id chain.ID) ChainConfig {
	if cc, ok := c.Chains[string(id)]; ok {
		return cc
	}
	for key, cc := range c.Chains {
		if strings.EqualFold(key, string(id)) {
			return cc
		}
	}
	return ChainConfig{}
}

// SetChain replaces the settings of a chain.
func (c *Config) SetChain(id chain.ID, cc ChainConfig) {
	if c.Chains == nil {
		c.Chains = make(map[string]ChainConfig)
	}
	for key := range c.Chains {
		if strings.EqualFold(key, string(id)) && key != string(id) {
			delete(c.Chains, key)
		}
	}
	c.Chains[string(id)] = cc
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// DefaultHome returns the default connector home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".connector"
	}
	return filepath.Join(home, ".connector")
}

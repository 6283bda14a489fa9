package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mrz1836/connector/internal/chain"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// ErrInvalidConfig indicates a configuration value that cannot be used.
var ErrInvalidConfig = &connerr.ConnectorError{
	Code:     "INVALID_CONFIG",
	Message:  "invalid configuration",
	ExitCode: connerr.ExitConfig,
}

// ValidateNodeURL checks that a node URL is an absolute http(s) URL.
func ValidateNodeURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: missing host", raw)
	}
	return nil
}

// Validate checks chain keys, node URLs and backend selections.
func (c *Config) Validate() error {
	for key, cc := range c.Chains {
		if !chain.ID(strings.ToUpper(key)).IsValid() {
			return invalid("chains."+key, "unknown chain")
		}
		for _, nodes := range [][]string{cc.Mainnet, cc.Testnet} {
			for _, n := range nodes {
				if err := ValidateNodeURL(n); err != nil {
					return invalid("chains."+key, err.Error())
				}
			}
		}
	}

	switch strings.ToLower(c.KMS.Backend) {
	case "", KMSBackendNone:
	case KMSBackendHTTP:
		if err := ValidateNodeURL(c.KMS.URL); err != nil {
			return invalid("kms.url", err.Error())
		}
	case KMSBackendRedis:
		if c.KMS.RedisAddr == "" {
			return invalid("kms.redis_addr", "redis backend requires an address")
		}
	default:
		return invalid("kms.backend", fmt.Sprintf("unknown backend %q", c.KMS.Backend))
	}

	if len(c.Events.Brokers) > 0 && c.Events.Topic == "" {
		return invalid("events.topic", "topic is required when brokers are set")
	}
	return nil
}

func invalid(field, reason string) error {
	return connerr.WithDetails(ErrInvalidConfig, map[string]string{
		"field":  field,
		"reason": reason,
	})
}

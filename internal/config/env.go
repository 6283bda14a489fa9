package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/mrz1836/connector/internal/chain"
)

// Environment variable names.
const (
	EnvHome         = "CONNECTOR_HOME"
	EnvTestnet      = "CONNECTOR_TESTNET"
	EnvOutputFormat = "CONNECTOR_OUTPUT_FORMAT"
	EnvVerbose      = "CONNECTOR_VERBOSE"
	EnvLogLevel     = "CONNECTOR_LOG_LEVEL"
	EnvLogFile      = "CONNECTOR_LOG_FILE"
	EnvListenAddr   = "CONNECTOR_LISTEN_ADDR"
	EnvKMSURL       = "CONNECTOR_KMS_URL"
	EnvKMSAPIKey    = "CONNECTOR_KMS_API_KEY" // #nosec G101 -- false positive, this is a const name not a credential
	EnvTronAPIKey   = "CONNECTOR_TRON_API_KEY" // #nosec G101 -- false positive, this is a const name not a credential
	EnvNoColor      = "NO_COLOR"
)

// NodeEnv returns the variable that overrides a chain's node list,
// e.g. CONNECTOR_ETH_NODE. The value is a comma-separated list of URLs.
func NodeEnv(id chain.ID) string {
	return "CONNECTOR_" + string(id) + "_NODE"
}

// ApplyEnvironment applies environment variable overrides to the configuration.
// Node overrides replace the list of the network selected after
// CONNECTOR_TESTNET is applied.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvTestnet); v != "" {
		cfg.Network.Testnet = parseBool(v)
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}

	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.Server.ListenAddr = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvKMSURL); v != "" {
		cfg.KMS.URL = SanitizeURL(v)
		if cfg.KMS.Backend == "" || cfg.KMS.Backend == KMSBackendNone {
			cfg.KMS.Backend = KMSBackendHTTP
		}
	}

	if v := os.Getenv(EnvKMSAPIKey); v != "" {
		cfg.KMS.APIKey = v
	}

	if v := os.Getenv(EnvTronAPIKey); v != "" {
		cc := cfg.Chain(chain.TRON)
		cc.APIKey = v
		cfg.SetChain(chain.TRON, cc)
	}

	for _, id := range chain.AllChains() {
		v := os.Getenv(NodeEnv(id))
		if v == "" {
			continue
		}
		nodes := splitURLs(v)
		cc := cfg.Chain(id)
		if cfg.Network.Testnet {
			cc.Testnet = nodes
		} else {
			cc.Mainnet = nodes
		}
		cfg.SetChain(id, cc)
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// splitURLs splits a comma-separated URL list, dropping empty entries.
func splitURLs(s string) []string {
	parts := strings.Split(s, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if u := SanitizeURL(p); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL cleans a URL string by removing control characters, whitespace
// and trailing slashes. Values that do not parse as a URL yield "".
// This is useful for cleaning user-provided node URLs that may contain copy-paste artifacts.
func SanitizeURL(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	cleaned = strings.TrimRight(cleaned, "/")
	if cleaned == "" {
		return ""
	}
	if _, err := url.ParseRequestURI(cleaned); err != nil {
		return ""
	}
	return cleaned
}

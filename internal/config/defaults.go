package config

import "time"

// Default timeouts.
const (
	DefaultNetworkTimeout   = 5 * time.Second
	DefaultBuildTimeout     = 30 * time.Second
	DefaultBroadcastTimeout = 30 * time.Second
	DefaultKMSTimeout       = 10 * time.Second
	DefaultReadTimeout      = 15 * time.Second
)

// DefaultListenAddr is the HTTP listen address of the serve command.
const DefaultListenAddr = ":8080"

// DefaultEventsTopic receives submission events.
const DefaultEventsTopic = "connector.submissions"

// defaultChains lists public, keyless nodes. ADA and XTZ have no public
// defaults and must be configured.
//
//nolint:gochecknoglobals // Configuration defaults
var defaultChains = map[string]ChainConfig{
	"ETH": {
		Mainnet: []string{"https://ethereum-rpc.publicnode.com"},
		Testnet: []string{"https://ethereum-sepolia-rpc.publicnode.com"},
	},
	"BSC": {
		Mainnet: []string{"https://bsc-dataseed.bnbchain.org"},
		Testnet: []string{"https://bsc-testnet-dataseed.bnbchain.org"},
	},
	"CELO": {
		Mainnet: []string{"https://forno.celo.org"},
		Testnet: []string{"https://alfajores-forno.celo-testnet.org"},
	},
	"XDC": {
		Mainnet: []string{"https://rpc.xinfin.network"},
		Testnet: []string{"https://rpc.apothem.network"},
	},
	"ONE": {
		Mainnet: []string{"https://api.harmony.one"},
		Testnet: []string{"https://api.s0.b.hmny.io"},
	},
	"MATIC": {
		Mainnet: []string{"https://polygon-rpc.com"},
		Testnet: []string{"https://rpc-amoy.polygon.technology"},
	},
	"TRON": {
		Mainnet: []string{"https://api.trongrid.io"},
		Testnet: []string{"https://api.shasta.trongrid.io"},
	},
	"QTUM": {
		Mainnet: []string{"https://qtum.info/api"},
		Testnet: []string{"https://testnet.qtum.info/api"},
	},
}

// Defaults returns the default configuration.
func Defaults() *Config {
	chains := make(map[string]ChainConfig, len(defaultChains))
	for id, cc := range defaultChains {
		chains[id] = ChainConfig{
			Mainnet: append([]string(nil), cc.Mainnet...),
			Testnet: append([]string(nil), cc.Testnet...),
		}
	}

	return &Config{
		Version: 1,
		Home:    "~/.connector",
		Network: NetworkConfig{Testnet: false},
		Chains:  chains,
		Timeouts: TimeoutsConfig{
			Network:   DefaultNetworkTimeout,
			Build:     DefaultBuildTimeout,
			Broadcast: DefaultBroadcastTimeout,
			KMS:       DefaultKMSTimeout,
			Read:      DefaultReadTimeout,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
		KMS: KMSConfig{
			Backend: KMSBackendNone,
			TTL:     24 * time.Hour,
		},
		Events: EventsConfig{
			Topic: DefaultEventsTopic,
		},
		Cache: CacheConfig{
			Enabled: true,
			MaxCost: 64 << 20,
		},
		Server: ServerConfig{
			ListenAddr: DefaultListenAddr,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "",
		},
	}
}

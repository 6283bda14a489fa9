package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/connector/internal/config"
	"github.com/mrz1836/connector/internal/output"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// maskedSecret replaces credentials in displayed configuration.
const maskedSecret = "********"

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View, create and check the connector configuration.`,
}

// configInitCmd initializes the configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.connector/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.

Example:
  connector config init
  connector config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// configShowCmd shows the current configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration after environment overrides.
API keys and passwords are masked.

Example:
  connector config show
  connector config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// configPathCmd prints the configuration file location.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		outln(cmd.OutOrStdout(), config.Path(cfg.Home))
		return nil
	},
}

// configValidateCmd checks the effective configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration",
	Long: `Validate chain keys, node URLs and the KMS and events settings of the
effective configuration.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		return output.FormatSuccess(formatter.Writer(), "configuration is valid", formatter.Format())
	},
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	configPath := config.Path(cfg.Home)

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return connerr.WithSuggestion(
			connerr.WithDetails(connerr.ErrInvalidInput, map[string]string{"path": configPath}),
			"configuration already exists, use --force to overwrite",
		)
	}

	defaults := config.Defaults()
	defaults.Home = cfg.Home
	if err := config.Save(defaults, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - chains.<CHAIN>.mainnet / testnet: node URLs per chain")
	outln(w, "  - kms.backend: none, http or redis")
	outln(w, "  - events.brokers: Kafka brokers for submission events")
	outln(w, "  - server.listen_addr: HTTP listen address")
	outln(w, "  - logging.level: Log level (off/error/info/debug)")

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	view := masked(cfg)
	if formatter.IsJSON() {
		return formatter.Print(view)
	}

	data, err := yaml.Marshal(view)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// masked returns a copy of c with credentials replaced.
func masked(c *config.Config) *config.Config {
	view := *c
	view.KMS.APIKey = mask(c.KMS.APIKey)
	view.KMS.RedisPassword = mask(c.KMS.RedisPassword)

	view.Chains = make(map[string]config.ChainConfig, len(c.Chains))
	for key, cc := range c.Chains {
		cc.APIKey = mask(cc.APIKey)
		view.Chains[key] = cc
	}
	return &view
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return maskedSecret
}

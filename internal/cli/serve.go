package cli

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mrz1836/connector/internal/api"
	"github.com/mrz1836/connector/internal/app"
	"github.com/mrz1836/connector/internal/version"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var serveListen string

// serveCmd runs the HTTP service.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Serve the submission, broadcast and read API over HTTP.

The listener stops gracefully on SIGINT or SIGTERM. Prometheus metrics are
exposed at /metrics and a liveness probe at /healthz.

Example:
  connector serve
  connector serve --listen 127.0.0.1:9090 --testnet`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default: server.listen_addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveListen != "" {
		cfg.Server.ListenAddr = serveListen
	}
	if !cfg.Output.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	return withApp(func(a *app.App) error {
		server := api.NewServer(cfg.Server.ListenAddr, a.Handler(version.Current().Version), logger.Zap())
		return server.Run(cmd.Context())
	})
}

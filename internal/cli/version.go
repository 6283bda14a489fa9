package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/connector/internal/version"
)

// versionCheckTimeout bounds the GitHub release lookup.
const versionCheckTimeout = 10 * time.Second

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	versionCheck bool

	// releaseClient is replaced in tests.
	releaseClient = func() *version.Client { return version.NewClient() }
)

// versionCmd prints build information.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the version, commit and build date of this binary.

With --check the latest GitHub release is looked up as well.

Example:
  connector version
  connector version --check -o json`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check GitHub for a newer release")
}

type versionOutput struct {
	version.Build
	Latest *version.Info `json:"latest,omitempty"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	result := versionOutput{Build: version.Current()}

	if versionCheck {
		ctx, cancel := commandContext(cmd, versionCheckTimeout)
		defer cancel()

		info, err := releaseClient().Check(ctx, result.Version)
		if err != nil {
			return err
		}
		result.Latest = info
	}

	if formatter.IsStructured() {
		return formatter.Print(result)
	}

	w := formatter.Writer()
	out(w, "connector %s\n", result.Build)
	if result.Latest != nil {
		if result.Latest.IsNewer {
			out(w, "A newer release is available: %s %s\n", result.Latest.Latest, result.Latest.URL)
		} else {
			outln(w, "You are running the latest release.")
		}
	}
	return nil
}

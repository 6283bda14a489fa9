package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/connector/internal/app"
	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/output"
)

// chainsCmd lists chain capabilities.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List supported chains and operations",
	Long: `List every known chain with the operations registered for each asset,
and whether it can broadcast and serve reads.

Example:
  connector chains
  connector chains -o json`,
	Args: cobra.NoArgs,
	RunE: runChains,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(chainsCmd)
}

func runChains(_ *cobra.Command, _ []string) error {
	return withApp(func(a *app.App) error {
		infos := a.Chains()
		if formatter.IsStructured() {
			return formatter.Print(infos)
		}

		table := output.NewTable("CHAIN", "BROADCAST", "READ", "OPERATIONS")
		for _, info := range infos {
			table.AddRow(string(info.Chain), yesNo(info.Broadcast), yesNo(info.Read), operations(info.Operations))
		}
		return formatter.Print(table)
	})
}

// operations renders "asset:Op,Op" groups in asset order.
func operations(ops map[chain.Asset][]chain.Operation) string {
	if len(ops) == 0 {
		return "-"
	}
	groups := make([]string, 0, len(ops))
	for _, asset := range chain.AllAssets() {
		list, ok := ops[asset]
		if !ok {
			continue
		}
		names := make([]string, 0, len(list))
		for _, op := range list {
			names = append(names, string(op))
		}
		sort.Strings(names)
		groups = append(groups, string(asset)+":"+strings.Join(names, ","))
	}
	return strings.Join(groups, " ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

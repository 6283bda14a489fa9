package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/connector/internal/app"
	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var readABI string

// blockCmd fetches a normalized block.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var blockCmd = &cobra.Command{
	Use:   "block <chain> <hashOrHeight>",
	Short: "Show a block",
	Long: `Fetch a block by hash or height and print it with numeric fields in
decimal form.

Example:
  connector block ETH latest
  connector block BSC 0x1b4`,
	Args: cobra.ExactArgs(2),
	RunE: runBlock,
}

// txCmd fetches a normalized transaction and its receipt.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var txCmd = &cobra.Command{
	Use:   "tx <chain> <txId>",
	Short: "Show a transaction",
	Long: `Fetch a transaction merged with its receipt. A transaction that is not
mined yet is printed without receipt fields.

Example:
  connector tx ETH 0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060`,
	Args: cobra.ExactArgs(2),
	RunE: runTx,
}

// readCmd performs a read-only contract call.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var readCmd = &cobra.Command{
	Use:   "read <chain> <contract> <method> [args...]",
	Short: "Call a read-only contract method",
	Long: `Call a view method of a contract. Arguments that parse as JSON are
passed as such; anything else is passed as a string.

Standard token methods resolve without an ABI. Other methods need --abi,
given inline or as a file path.

Example:
  connector read ETH 0xA0b8...eB48 balanceOf 0x742d...f44e
  connector read TRON TR7N...Lj6t name
  connector read ETH 0x1234... getPrice 42 --abi abi.json`,
	Args: cobra.MinimumNArgs(3),
	RunE: runRead,
}

// contractAddressCmd resolves the address created by a deployment.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var contractAddressCmd = &cobra.Command{
	Use:   "contract-address <chain> <txId>",
	Short: "Show the address created by a deploy transaction",
	Args:  cobra.ExactArgs(2),
	RunE:  runContractAddress,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(contractAddressCmd)

	readCmd.Flags().StringVar(&readABI, "abi", "", "method or contract ABI, inline JSON or a file path")
}

func runBlock(cmd *cobra.Command, args []string) error {
	id, err := chain.ParseID(args[0])
	if err != nil {
		return err
	}
	return withApp(func(a *app.App) error {
		block, err := a.Query.Block(cmd.Context(), id, args[1])
		if err != nil {
			return err
		}
		return printDocument(block)
	})
}

func runTx(cmd *cobra.Command, args []string) error {
	id, err := chain.ParseID(args[0])
	if err != nil {
		return err
	}
	return withApp(func(a *app.App) error {
		tx, err := a.Query.Transaction(cmd.Context(), id, args[1])
		if err != nil {
			return err
		}
		return printDocument(tx)
	})
}

func runRead(cmd *cobra.Command, args []string) error {
	id, err := chain.ParseID(args[0])
	if err != nil {
		return err
	}
	abi, err := loadABI(readABI)
	if err != nil {
		return err
	}
	call := chain.ContractCall{
		Contract: args[1],
		Method:   args[2],
		ABI:      abi,
		Args:     parseArgs(args[3:]),
	}

	return withApp(func(a *app.App) error {
		result, err := a.Query.ReadContract(cmd.Context(), id, call)
		if err != nil {
			return err
		}
		if formatter.IsStructured() {
			return formatter.Print(map[string]any{"data": result})
		}
		return printDocument(result)
	})
}

func runContractAddress(cmd *cobra.Command, args []string) error {
	id, err := chain.ParseID(args[0])
	if err != nil {
		return err
	}
	return withApp(func(a *app.App) error {
		address, err := a.Query.ContractAddress(cmd.Context(), id, args[1])
		if err != nil {
			return err
		}
		if formatter.IsStructured() {
			return formatter.Print(map[string]string{"contractAddress": address})
		}
		outln(formatter.Writer(), address)
		return nil
	})
}

// printDocument prints node documents as YAML when asked to and as
// indented JSON otherwise, text mode included.
func printDocument(v any) error {
	if formatter.Format() == output.FormatYAML {
		return formatter.Print(v)
	}
	enc := json.NewEncoder(formatter.Writer())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadABI accepts inline JSON or the path of a JSON file.
func loadABI(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.HasPrefix(value, "[") || strings.HasPrefix(value, "{") {
		return value, nil
	}
	// #nosec G304 -- path is an explicit user argument
	data, err := os.ReadFile(value)
	if err != nil {
		return "", chain.InvalidField("abi", err.Error())
	}
	return string(data), nil
}

// parseArgs decodes each argument as JSON, falling back to the raw string.
// Numbers stay json.Number so uint256 values keep their precision.
func parseArgs(raw []string) []any {
	args := make([]any, 0, len(raw))
	for _, r := range raw {
		dec := json.NewDecoder(bytes.NewReader([]byte(r)))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil || dec.More() {
			args = append(args, r)
			continue
		}
		args = append(args, v)
	}
	return args
}

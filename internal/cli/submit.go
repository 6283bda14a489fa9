package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/connector/internal/app"
	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/service/transaction"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	submitBody         string
	broadcastSignature string
)

// submitCmd builds and submits one operation.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var submitCmd = &cobra.Command{
	Use:   "submit <asset> <chain> <operation>",
	Short: "Build and submit a transaction",
	Long: `Build a transaction for an operation and submit it.

A body carrying fromPrivateKey is signed locally and broadcast; the command
prints the transaction hash. A body carrying signatureId is built unsigned
and stored in the KMS; the command prints the pending signature ID.

Assets: native, erc20, nft, multitoken.
Operations: Transfer, TransferBatch, Mint, MintBatch, Burn, BurnBatch,
Deploy, UpdateCashback, InvokeContract, Broadcast.

Example:
  connector submit native ETH Transfer --body transfer.json
  cat mint.json | connector submit nft TRON Mint --body -`,
	Args: cobra.ExactArgs(3),
	RunE: runSubmit,
}

// broadcastCmd relays an already signed transaction.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var broadcastCmd = &cobra.Command{
	Use:   "broadcast <chain> <txData>",
	Short: "Broadcast a signed transaction",
	Long: `Send a signed transaction to the chain's node.

With --signature-id the pending KMS record is completed with the resulting
hash. A completion failure does not undo the broadcast; the result is then
marked failed.

Example:
  connector broadcast ETH 0xf86c...
  connector broadcast TRON '{"txID":"..."}' --signature-id 26d3883e-...`,
	Args: cobra.ExactArgs(2),
	RunE: runBroadcast,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(broadcastCmd)

	submitCmd.Flags().StringVar(&submitBody, "body", "", "JSON request body file, or - for stdin")
	_ = submitCmd.MarkFlagRequired("body")

	broadcastCmd.Flags().StringVar(&broadcastSignature, "signature-id", "", "pending KMS signature to complete")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	asset, err := parseAsset(args[0])
	if err != nil {
		return err
	}
	id, err := chain.ParseID(args[1])
	if err != nil {
		return err
	}
	op, err := chain.ParseOperation(args[2])
	if err != nil {
		return err
	}

	data, err := readInput(cmd, submitBody)
	if err != nil {
		return chain.InvalidField("body", err.Error())
	}
	req, err := decodeRequest(data)
	if err != nil {
		return err
	}

	return withApp(func(a *app.App) error {
		submitter, ok := a.Submitters[asset]
		if !ok {
			return connerr.UnsupportedChain(string(id), string(op))
		}
		result, err := submitter.PrepareAndSubmit(cmd.Context(), id, op, req)
		if err != nil {
			return err
		}
		return printResult(result)
	})
}

func runBroadcast(cmd *cobra.Command, args []string) error {
	id, err := chain.ParseID(args[0])
	if err != nil {
		return err
	}

	return withApp(func(a *app.App) error {
		result, err := a.Submitters[chain.AssetNative].Broadcast(cmd.Context(), id, chain.TransactionData(args[1]), broadcastSignature)
		if err != nil {
			return err
		}
		return printResult(result)
	})
}

func printResult(result *transaction.Result) error {
	if formatter.IsStructured() {
		return formatter.Print(result)
	}

	w := formatter.Writer()
	switch {
	case result.SignatureID != "":
		out(w, "Pending signature: %s\n", result.SignatureID)
	case result.Failed:
		out(w, "Broadcast: %s (pending signature not completed)\n", result.TxID)
	default:
		out(w, "Broadcast: %s\n", result.TxID)
	}
	return nil
}

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/connector/internal/chain"
)

// stdinPath selects standard input for file flags.
const stdinPath = "-"

// out is a helper for CLI output that ignores write errors (standard pattern for CLI tools).
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

// parseAsset parses an asset argument.
func parseAsset(s string) (chain.Asset, error) {
	asset, ok := chain.ParseAsset(s)
	if !ok {
		return "", chain.InvalidField("asset", fmt.Sprintf("unknown asset %q, expected one of %s", s, strings.Join(names(chain.AllAssets()), ", ")))
	}
	return asset, nil
}

// readInput reads a file, or standard input when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == stdinPath {
		return io.ReadAll(cmd.InOrStdin())
	}
	// #nosec G304 -- path is an explicit user argument
	return os.ReadFile(path)
}

// decodeRequest decodes a submission body. Numbers are kept as json.Number
// so large contract parameters survive.
func decodeRequest(data []byte) (*chain.Request, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var req chain.Request
	if err := dec.Decode(&req); err != nil {
		return nil, chain.InvalidField("body", err.Error())
	}
	return &req, nil
}

package chain

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	connerr "github.com/mrz1836/connector/pkg/errors"
)

// maxSuggestionDistance bounds how different a typo may be and still get a suggestion.
const maxSuggestionDistance = 3

//nolint:gochecknoglobals // Static alias table
var chainAliases = map[string]ID{
	"ETHEREUM": ETH,
	"BNB":      BSC,
	"POLYGON":  MATIC,
	"HARMONY":  ONE,
	"CARDANO":  ADA,
	"TEZOS":    XTZ,
	"SCRYPTA":  LYRA,
}

// ParseID parses a chain tag or alias, case-insensitively.
// An unknown tag yields an UnsupportedChain error with a suggestion when a
// known chain is close enough.
func ParseID(s string) (ID, error) {
	tag := strings.ToUpper(strings.TrimSpace(s))
	if alias, ok := chainAliases[tag]; ok {
		return alias, nil
	}
	id := ID(tag)
	if id.IsValid() {
		return id, nil
	}
	return "", suggestChain(connerr.UnsupportedChain(s, ""), tag)
}

// ParseOperation parses an operation name, case-insensitively.
func ParseOperation(s string) (Operation, error) {
	name := strings.TrimSpace(s)
	candidates := make([]string, 0, len(AllOperations()))
	for _, op := range AllOperations() {
		if strings.EqualFold(string(op), name) {
			return op, nil
		}
		candidates = append(candidates, string(op))
	}

	err := connerr.WithDetails(connerr.ErrInvalidInput, map[string]string{
		"field":     "operation",
		"operation": s,
	})
	if best := closest(name, candidates); best != "" {
		err = connerr.WithSuggestion(err, fmt.Sprintf("did you mean %q?", best))
	}
	return "", err
}

// suggestChain attaches a "did you mean" hint for an unknown chain tag.
func suggestChain(err error, tag string) error {
	candidates := make([]string, 0, len(AllChains()))
	for _, id := range AllChains() {
		candidates = append(candidates, string(id))
	}
	if best := closest(tag, candidates); best != "" {
		return connerr.WithSuggestion(err, fmt.Sprintf("did you mean %q?", best))
	}
	return err
}

// closest returns the candidate with the smallest edit distance to s, or ""
// when nothing is within maxSuggestionDistance.
func closest(s string, candidates []string) string {
	best := ""
	bestDist := maxSuggestionDistance + 1
	needle := strings.ToLower(s)
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(needle, strings.ToLower(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

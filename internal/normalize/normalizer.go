package normalize

import (
	"github.com/mrz1836/connector/internal/chain"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// Block is a normalized block document.
type Block map[string]any

// Transaction is a normalized transaction document, merged with its receipt
// once the transaction is confirmed.
type Transaction map[string]any

// Normalizer normalizes the documents of one chain.
type Normalizer struct {
	block   *Table
	tx      *Table
	receipt *Table
	codec   chain.AddressCodec
}

// For returns the normalizer of a chain. A nil codec leaves addresses as
// the node returned them.
func For(id chain.ID, codec chain.AddressCodec) *Normalizer {
	block, tx, receipt := tables(id.Family())
	return &Normalizer{block: block, tx: tx, receipt: receipt, codec: codec}
}

// Block normalizes a raw block, including its embedded transactions.
func (n *Normalizer) Block(raw map[string]any) (Block, error) {
	out, err := n.block.Apply(raw, n.codec)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Transaction normalizes a lookup result. A pending transaction is returned
// without receipt fields; a missing one is ErrTransactionNotFound.
func (n *Normalizer) Transaction(lookup *chain.TxLookup) (Transaction, error) {
	if lookup == nil || lookup.State == chain.TxNotFound || lookup.Tx == nil {
		return nil, connerr.ErrTransactionNotFound
	}

	out, err := n.tx.Apply(lookup.Tx, n.codec)
	if err != nil {
		return nil, err
	}
	if lookup.State != chain.TxFound || lookup.Receipt == nil {
		return out, nil
	}

	receipt, err := n.receipt.Apply(lookup.Receipt, n.codec)
	if err != nil {
		return nil, err
	}
	for k, v := range receipt {
		if v == nil {
			if _, ok := out[k]; ok {
				continue
			}
		}
		out[k] = v
	}
	return out, nil
}

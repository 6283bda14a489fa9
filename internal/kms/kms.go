// Package kms persists unsigned transactions for an external signer and
// completes them once the signed transaction is broadcast.
package kms

import (
	"context"
	"time"

	"github.com/mrz1836/connector/internal/chain"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

var (
	// ErrDisabled indicates a signatureId request with no KMS backend configured.
	ErrDisabled = &connerr.ConnectorError{
		Code:       "KMS_DISABLED",
		Message:    "no KMS backend configured",
		Suggestion: "set kms.backend to http or redis",
		ExitCode:   connerr.ExitConfig,
	}

	// ErrRequest indicates the KMS rejected a request.
	ErrRequest = &connerr.ConnectorError{
		Code:     "KMS_REQUEST_FAILED",
		Message:  "KMS request failed",
		ExitCode: connerr.ExitUpstream,
	}

	// ErrPendingNotFound indicates an unknown or expired pending signature.
	ErrPendingNotFound = &connerr.ConnectorError{
		Code:     "KMS_PENDING_NOT_FOUND",
		Message:  "pending signature not found",
		ExitCode: connerr.ExitNotFound,
	}
)

// Store records transactions awaiting an external signature.
type Store interface {
	// Store saves txData for the signer and returns the pending signature ID.
	Store(ctx context.Context, txData chain.TransactionData, id chain.ID, signatureIDs []string, index *int) (string, error)
	// Complete marks a pending signature as broadcast under txID.
	Complete(ctx context.Context, signatureID, txID string) error
}

// Pending is a stored transaction awaiting its signature.
type Pending struct {
	ID           string    `json:"id"`
	Chain        chain.ID  `json:"chain"`
	TxData       string    `json:"serializedTransaction"`
	SignatureIDs []string  `json:"hashes"`
	Index        *int      `json:"index,omitempty"`
	TxID         string    `json:"txId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	CompletedAt  time.Time `json:"completedAt,omitzero"`
}

// Completed returns true once the signed transaction was broadcast.
func (p *Pending) Completed() bool {
	return p.TxID != ""
}

// Disabled rejects every call with ErrDisabled.
type Disabled struct{}

// Store always fails.
func (Disabled) Store(context.Context, chain.TransactionData, chain.ID, []string, *int) (string, error) {
	return "", ErrDisabled
}

// Complete always fails.
func (Disabled) Complete(context.Context, string, string) error {
	return ErrDisabled
}

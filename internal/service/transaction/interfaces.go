package transaction

import (
	"context"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/events"
)

// BuilderRegistry resolves the builder of a (chain, operation) pair.
type BuilderRegistry interface {
	Asset() chain.Asset
	Builder(id chain.ID, op chain.Operation) (chain.TransactionBuilder, error)
}

// BroadcastClient submits transaction data on a chain.
type BroadcastClient interface {
	Broadcast(ctx context.Context, id chain.ID, data chain.TransactionData) (string, error)
}

// SignatureStore persists transactions for an external signer.
type SignatureStore interface {
	Store(ctx context.Context, txData chain.TransactionData, id chain.ID, signatureIDs []string, index *int) (string, error)
	Complete(ctx context.Context, signatureID, txID string) error
}

// EventPublisher records submissions.
type EventPublisher interface {
	Publish(ctx context.Context, s *events.Submission) error
}

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

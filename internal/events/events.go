// Package events publishes an audit record of every submission.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mrz1836/connector/internal/chain"
)

// Signing paths of a submission.
const (
	PathSigned = "signed"
	PathKMS    = "kms"
)

// Submission describes one completed submit or broadcast.
type Submission struct {
	Asset       chain.Asset     `json:"asset,omitempty"`
	Chain       chain.ID        `json:"chain"`
	Operation   chain.Operation `json:"operation"`
	Path        string          `json:"path"`
	TxID        string          `json:"txId,omitempty"`
	SignatureID string          `json:"signatureId,omitempty"`
	Failed      bool            `json:"failed,omitempty"`
	Error       string          `json:"error,omitempty"`
	At          time.Time       `json:"at"`
}

// Key returns the partition key: the transaction hash, or the pending
// signature ID for KMS submissions.
func (s *Submission) Key() string {
	if s.TxID != "" {
		return s.TxID
	}
	return s.SignatureID
}

// Publisher emits submission events.
type Publisher interface {
	Publish(ctx context.Context, s *Submission) error
	Close() error
}

// Nop discards events.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, *Submission) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }

// messageWriter is the part of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Compile-time interface check
var _ Publisher = (*KafkaPublisher)(nil)

// KafkaPublisher writes submissions as JSON messages keyed by Key.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
	}}
}

// Publish writes one event.
func (p *KafkaPublisher) Publish(ctx context.Context, s *Submission) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(s.Key()),
		Value: payload,
		Time:  s.At,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

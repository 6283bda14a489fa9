// Package transaction builds transactions through the chain registry and
// either broadcasts them or hands them to the KMS for signing.
package transaction

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/events"
	"github.com/mrz1836/connector/internal/metrics"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// Service submits operations of one asset type.
type Service struct {
	registry  BuilderRegistry
	endpoints chain.EndpointResolver
	broadcast BroadcastClient
	store     SignatureStore
	events    EventPublisher
	metrics   *metrics.Metrics
	logger    LogWriter
	timeouts  Timeouts
	now       func() time.Time
}

// Config holds dependencies for the transaction service.
// Events, Metrics and Logger are optional.
type Config struct {
	Registry  BuilderRegistry
	Endpoints chain.EndpointResolver
	Broadcast BroadcastClient
	Store     SignatureStore
	Events    EventPublisher
	Metrics   *metrics.Metrics
	Logger    LogWriter
	Timeouts  Timeouts
}

// NewService creates a new transaction service.
func NewService(cfg *Config) *Service {
	s := &Service{
		registry:  cfg.Registry,
		endpoints: cfg.Endpoints,
		broadcast: cfg.Broadcast,
		store:     cfg.Store,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		timeouts:  cfg.Timeouts.withDefaults(),
		now:       time.Now,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	return s
}

// Asset returns the asset type served.
func (s *Service) Asset() chain.Asset {
	return s.registry.Asset()
}

// PrepareAndSubmit builds the operation and either stores it for the KMS
// (req.SignatureID set) or broadcasts it. The two paths are exclusive.
// The Broadcast operation is routed to Broadcast with req.TxData.
func (s *Service) PrepareAndSubmit(ctx context.Context, id chain.ID, op chain.Operation, req *chain.Request) (*Result, error) {
	if err := req.Validate(op); err != nil {
		return nil, err
	}
	if op == chain.Broadcast {
		return s.Broadcast(ctx, id, chain.TransactionData(req.TxData), req.SignatureID)
	}

	builder, err := s.registry.Builder(id, op)
	if err != nil {
		return nil, err
	}

	target, err := s.endpoints.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	txData, err := s.build(ctx, builder, req, target)
	if err != nil {
		err = connerr.BuildFailed(string(id), string(op), err)
		s.record(ctx, id, op, pathOf(req), nil, err)
		return nil, err
	}

	if req.UsesKMS() {
		signatureID, err := s.storePending(ctx, txData, id, req)
		if err != nil {
			err = connerr.KMSStoreFailed(string(id), err)
			s.record(ctx, id, op, events.PathKMS, nil, err)
			return nil, err
		}
		result := &Result{SignatureID: signatureID}
		s.logger.Info("stored %s %s %s for signing as %s", s.Asset(), id, op, signatureID)
		s.record(ctx, id, op, events.PathKMS, result, nil)
		return result, nil
	}

	txID, err := s.send(ctx, id, txData)
	if err != nil {
		err = broadcastFailed(id, err)
		s.record(ctx, id, op, events.PathSigned, nil, err)
		return nil, err
	}
	result := &Result{TxID: txID}
	s.logger.Info("broadcast %s %s %s as %s", s.Asset(), id, op, txID)
	s.record(ctx, id, op, events.PathSigned, result, nil)
	return result, nil
}

// Broadcast submits a pre-signed transaction. With a signatureID the
// pending KMS record is completed afterwards; a completion failure is
// logged and reported as Result.Failed because the transaction is already
// on the network.
func (s *Service) Broadcast(ctx context.Context, id chain.ID, txData chain.TransactionData, signatureID string) (*Result, error) {
	if strings.TrimSpace(string(txData)) == "" {
		return nil, chain.MissingField("txData")
	}

	txID, err := s.send(ctx, id, txData)
	if err != nil {
		err = broadcastFailed(id, err)
		s.record(ctx, id, chain.Broadcast, events.PathSigned, nil, err)
		return nil, err
	}
	result := &Result{TxID: txID}

	if signatureID != "" {
		if err := s.completePending(ctx, signatureID, txID); err != nil {
			s.logger.Error("%v", connerr.KMSCompleteFailed(txID, err))
			s.metrics.RecordKMSCompleteFailure(string(id))
			result.Failed = true
		}
	}

	s.logger.Info("broadcast %s transaction %s", id, txID)
	s.record(ctx, id, chain.Broadcast, events.PathSigned, result, nil)
	return result, nil
}

// broadcastFailed classifies a send error. Routing and configuration
// errors keep their own code since nothing reached a node.
func broadcastFailed(id chain.ID, err error) error {
	if errors.Is(err, connerr.ErrUnsupportedChain) || errors.Is(err, connerr.ErrNoNodeURL) {
		return err
	}
	return connerr.BroadcastFailed(string(id), err)
}

func (s *Service) build(ctx context.Context, b chain.TransactionBuilder, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Build)
	defer cancel()
	return b.Build(ctx, req, target)
}

func (s *Service) send(ctx context.Context, id chain.ID, txData chain.TransactionData) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Broadcast)
	defer cancel()
	return s.broadcast.Broadcast(ctx, id, txData)
}

func (s *Service) storePending(ctx context.Context, txData chain.TransactionData, id chain.ID, req *chain.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.KMS)
	defer cancel()
	return s.store.Store(ctx, txData, id, []string{req.SignatureID}, req.Index)
}

func (s *Service) completePending(ctx context.Context, signatureID, txID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.KMS)
	defer cancel()
	return s.store.Complete(ctx, signatureID, txID)
}

// record updates metrics and publishes the submission event. Publishing
// failures are logged only.
func (s *Service) record(ctx context.Context, id chain.ID, op chain.Operation, path string, result *Result, failure error) {
	outcome := metrics.OutcomeFailed
	sub := &events.Submission{
		Asset:     s.Asset(),
		Chain:     id,
		Operation: op,
		Path:      path,
		At:        s.now().UTC(),
	}
	switch {
	case failure != nil:
		sub.Failed = true
		sub.Error = connerr.Code(failure)
	case result.SignatureID != "":
		outcome = metrics.OutcomeStored
		sub.SignatureID = result.SignatureID
	default:
		outcome = metrics.OutcomeBroadcast
		sub.TxID = result.TxID
		sub.Failed = result.Failed
	}
	s.metrics.RecordOperation(string(s.Asset()), string(id), string(op), outcome)

	if err := s.events.Publish(context.WithoutCancel(ctx), sub); err != nil {
		s.logger.Error("publishing submission event for %s %s: %v", id, op, err)
	}
}

func pathOf(req *chain.Request) string {
	if req.UsesKMS() {
		return events.PathKMS
	}
	return events.PathSigned
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

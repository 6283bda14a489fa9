package transaction

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/events"
)

type mockBuilder struct{ mock.Mock }

func (m *mockBuilder) Build(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	args := m.Called(ctx, req, target)
	return args.Get(0).(chain.TransactionData), args.Error(1)
}

type mockBroadcaster struct{ mock.Mock }

func (m *mockBroadcaster) Broadcast(ctx context.Context, id chain.ID, data chain.TransactionData) (string, error) {
	args := m.Called(ctx, id, data)
	return args.String(0), args.Error(1)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) Store(ctx context.Context, txData chain.TransactionData, id chain.ID, signatureIDs []string, index *int) (string, error) {
	args := m.Called(ctx, txData, id, signatureIDs, index)
	return args.String(0), args.Error(1)
}

func (m *mockStore) Complete(ctx context.Context, signatureID, txID string) error {
	return m.Called(ctx, signatureID, txID).Error(0)
}

type staticResolver struct {
	endpoint chain.Endpoint
	err      error
	calls    int
}

func (r *staticResolver) Resolve(context.Context, chain.ID) (chain.Endpoint, error) {
	r.calls++
	return r.endpoint, r.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.Submission
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, s *events.Submission) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, s)
	return p.err
}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(format string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, format)
}

package kms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mrz1836/connector/internal/chain"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// keyPrefix namespaces pending records.
const keyPrefix = "connector:kms:pending:"

// DefaultTTL is how long an unsigned transaction waits for its signer.
const DefaultTTL = 24 * time.Hour

// redisClient is the subset of the go-redis client the store uses.
type redisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	SetXX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Compile-time interface check
var _ Store = (*RedisStore)(nil)

// RedisStore keeps pending signatures in Redis for a signer polling the
// same instance.
type RedisStore struct {
	client redisClient
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a store on a go-redis client. A zero ttl uses DefaultTTL.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return newRedisStore(client, ttl)
}

func newRedisStore(client redisClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

// Store saves the transaction under a fresh UUID.
func (s *RedisStore) Store(ctx context.Context, txData chain.TransactionData, id chain.ID, signatureIDs []string, index *int) (string, error) {
	p := Pending{
		ID:           uuid.NewString(),
		Chain:        id,
		TxData:       string(txData),
		SignatureIDs: signatureIDs,
		Index:        index,
		CreatedAt:    s.now().UTC(),
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	ok, err := s.client.SetNX(ctx, keyPrefix+p.ID, data, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("storing pending signature: %w", err)
	}
	if !ok {
		return "", connerr.WithDetails(ErrRequest, map[string]string{"reason": "pending signature id collision", "id": p.ID})
	}
	return p.ID, nil
}

// Get loads a pending record.
func (s *RedisStore) Get(ctx context.Context, signatureID string) (*Pending, error) {
	raw, err := s.client.Get(ctx, keyPrefix+signatureID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, connerr.WithDetails(ErrPendingNotFound, map[string]string{"id": signatureID})
	}
	if err != nil {
		return nil, fmt.Errorf("loading pending signature: %w", err)
	}
	var p Pending
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decoding pending signature %s: %w", signatureID, err)
	}
	return &p, nil
}

// Complete records txID on the pending record, keeping its expiry. The
// write only lands while the key exists, so a record that expires after it
// was read is reported missing instead of being recreated without a TTL.
func (s *RedisStore) Complete(ctx context.Context, signatureID, txID string) error {
	p, err := s.Get(ctx, signatureID)
	if err != nil {
		return err
	}
	p.TxID = txID
	p.CompletedAt = s.now().UTC()
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	ok, err := s.client.SetXX(ctx, keyPrefix+signatureID, data, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("completing pending signature: %w", err)
	}
	if !ok {
		return connerr.WithDetails(ErrPendingNotFound, map[string]string{"id": signatureID})
	}
	return nil
}

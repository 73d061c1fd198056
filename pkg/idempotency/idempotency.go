package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/supplyhub-backend/pkg/redis"
)

// Manager tracks processed deliveries per consumer using Redis SETNX with a TTL.
// Keys follow the `sh:idempotency:processed:<consumer>:<delivery_id>` pattern.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds an idempotency guard that marks deliveries as processed for the given TTL.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// CheckAndMarkProcessed returns true if the delivery has already been processed and
// otherwise marks it as processed with the configured TTL.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer, deliveryID string) (bool, error) {
	key, err := m.processedKey(consumer, deliveryID)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Delete releases a mark so a failed delivery can be retried.
func (m *Manager) Delete(ctx context.Context, consumer, deliveryID string) error {
	key, err := m.processedKey(consumer, deliveryID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) processedKey(consumer, deliveryID string) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	deliveryID = strings.TrimSpace(deliveryID)
	if deliveryID == "" {
		return "", errors.New("delivery id is required")
	}
	scope := fmt.Sprintf("processed:%s", consumer)
	return m.store.IdempotencyKey(scope, deliveryID), nil
}

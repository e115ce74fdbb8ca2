package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"workshophub/models"
	"workshophub/utils"

	"github.com/go-redis/redis/v8"
)

// SessionTracker remembers the checkout session opened for each order.
type SessionTracker interface {
	// Get returns ErrUnknownOrder when nothing is tracked for the order.
	Get(ctx context.Context, orderID string) (*models.SessionHandle, error)
	Put(ctx context.Context, handle models.SessionHandle) error
}

// SessionTTL is how long a tracked session is kept after its last update.
const SessionTTL = 48 * time.Hour

type RedisSessionTracker struct {
	client *redis.Client
}

func NewRedisSessionTracker(client *redis.Client) *RedisSessionTracker {
	return &RedisSessionTracker{client: client}
}

func (t *RedisSessionTracker) Get(ctx context.Context, orderID string) (*models.SessionHandle, error) {
	data, err := t.client.Get(ctx, utils.PaymentSessionPrefix+orderID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUnknownOrder
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payment session: %w", err)
	}
	var handle models.SessionHandle
	if err := json.Unmarshal(data, &handle); err != nil {
		return nil, fmt.Errorf("failed to decode payment session: %w", err)
	}
	return &handle, nil
}

func (t *RedisSessionTracker) Put(ctx context.Context, handle models.SessionHandle) error {
	data, err := json.Marshal(handle)
	if err != nil {
		return fmt.Errorf("failed to encode payment session: %w", err)
	}
	if err := t.client.Set(ctx, utils.PaymentSessionPrefix+handle.OrderID, data, SessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to store payment session: %w", err)
	}
	return nil
}

// MemorySessionTracker keeps sessions in process. Used by mock mode and tests.
type MemorySessionTracker struct {
	mu       sync.RWMutex
	sessions map[string]models.SessionHandle
}

func NewMemorySessionTracker() *MemorySessionTracker {
	return &MemorySessionTracker{sessions: make(map[string]models.SessionHandle)}
}

func (t *MemorySessionTracker) Get(_ context.Context, orderID string) (*models.SessionHandle, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	handle, ok := t.sessions[orderID]
	if !ok {
		return nil, ErrUnknownOrder
	}
	return &handle, nil
}

func (t *MemorySessionTracker) Put(_ context.Context, handle models.SessionHandle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[handle.OrderID] = handle
	return nil
}

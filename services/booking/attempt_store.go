package booking

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
	"github.com/google/uuid"
)

// AttemptStore persists booking attempts between requests.
type AttemptStore interface {
	// Get returns ErrAttemptNotFound for unknown or expired attempts.
	Get(ctx context.Context, attemptID string) (*models.BookingAttempt, error)
	Save(ctx context.Context, attempt *models.BookingAttempt, ttl time.Duration) error
	Delete(ctx context.Context, attemptID string) error
	// BindOrder indexes an order id so gateway callbacks find their attempt.
	BindOrder(ctx context.Context, orderID, attemptID string, ttl time.Duration) error
	AttemptForOrder(ctx context.Context, orderID string) (string, error)
	// Lock serializes mutations of one attempt. It returns ErrAttemptBusy when
	// the lock cannot be taken within the wait.
	Lock(ctx context.Context, attemptID string) (unlock func(), err error)
}

const (
	lockRetryInterval = 50 * time.Millisecond
	lockWait          = 5 * time.Second
)

// unlockScript deletes the lock only when it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisAttemptStore keeps attempts as JSON blobs with a TTL.
type RedisAttemptStore struct {
	client *redis.Client
}

func NewRedisAttemptStore(client *redis.Client) *RedisAttemptStore {
	return &RedisAttemptStore{client: client}
}

func (s *RedisAttemptStore) Get(ctx context.Context, attemptID string) (*models.BookingAttempt, error) {
	data, err := s.client.Get(ctx, utils.AttemptCachePrefix+attemptID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read booking attempt: %w", err)
	}
	var attempt models.BookingAttempt
	if err := json.Unmarshal(data, &attempt); err != nil {
		return nil, fmt.Errorf("failed to parse booking attempt: %w", err)
	}
	return &attempt, nil
}

func (s *RedisAttemptStore) Save(ctx context.Context, attempt *models.BookingAttempt, ttl time.Duration) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to marshal booking attempt: %w", err)
	}
	if err := s.client.Set(ctx, utils.AttemptCachePrefix+attempt.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store booking attempt: %w", err)
	}
	return nil
}

func (s *RedisAttemptStore) Delete(ctx context.Context, attemptID string) error {
	if err := s.client.Del(ctx, utils.AttemptCachePrefix+attemptID).Err(); err != nil {
		return fmt.Errorf("failed to delete booking attempt: %w", err)
	}
	return nil
}

func (s *RedisAttemptStore) BindOrder(ctx context.Context, orderID, attemptID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, utils.OrderIndexPrefix+orderID, attemptID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to index order: %w", err)
	}
	return nil
}

func (s *RedisAttemptStore) AttemptForOrder(ctx context.Context, orderID string) (string, error) {
	id, err := s.client.Get(ctx, utils.OrderIndexPrefix+orderID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrAttemptNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read order index: %w", err)
	}
	return id, nil
}

func (s *RedisAttemptStore) Lock(ctx context.Context, attemptID string) (func(), error) {
	key := utils.AttemptLockPrefix + attemptID
	token := uuid.New().String()
	deadline := time.Now().Add(lockWait)

	for {
		ok, err := s.client.SetNX(ctx, key, token, utils.AttemptLockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to take attempt lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrAttemptBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}

	return func() {
		// The request context may already be done; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		unlockScript.Run(releaseCtx, s.client, []string{key}, token)
	}, nil
}

type memoryEntry struct {
	attempt   models.BookingAttempt
	expiresAt time.Time
}

// MemoryAttemptStore is the in-process AttemptStore for mock mode and tests.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	attempts map[string]memoryEntry
	orders   map[string]string
	locks    map[string]chan struct{}
	now      func() time.Time
}

func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{
		attempts: make(map[string]memoryEntry),
		orders:   make(map[string]string),
		locks:    make(map[string]chan struct{}),
		now:      time.Now,
	}
}

func (s *MemoryAttemptStore) Get(_ context.Context, attemptID string) (*models.BookingAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.attempts[attemptID]
	if !ok || (!e.expiresAt.IsZero() && s.now().After(e.expiresAt)) {
		return nil, ErrAttemptNotFound
	}
	attempt := e.attempt
	if attempt.Student != nil {
		st := *attempt.Student
		attempt.Student = &st
	}
	if attempt.Session != nil {
		h := *attempt.Session
		attempt.Session = &h
	}
	return &attempt, nil
}

func (s *MemoryAttemptStore) Save(_ context.Context, attempt *models.BookingAttempt, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{attempt: *attempt}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.attempts[attempt.ID] = e
	return nil
}

func (s *MemoryAttemptStore) Delete(_ context.Context, attemptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, attemptID)
	return nil
}

func (s *MemoryAttemptStore) BindOrder(_ context.Context, orderID, attemptID string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[orderID] = attemptID
	return nil
}

func (s *MemoryAttemptStore) AttemptForOrder(_ context.Context, orderID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.orders[orderID]
	if !ok {
		return "", ErrAttemptNotFound
	}
	return id, nil
}

func (s *MemoryAttemptStore) Lock(ctx context.Context, attemptID string) (func(), error) {
	s.mu.Lock()
	ch, ok := s.locks[attemptID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[attemptID] = ch
	}
	s.mu.Unlock()

	timer := time.NewTimer(lockWait)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrAttemptBusy
	}
}

package payment

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Readiness is a future resolved by the first successful gateway probe.
// Failed probes are recorded but leave it open, so a later success still
// resolves it. Waiters block until it resolves, their context ends, or the
// bound elapses.
type Readiness struct {
	once sync.Once
	done chan struct{}

	mu      sync.Mutex
	lastErr error
}

func NewReadiness() *Readiness {
	return &Readiness{done: make(chan struct{})}
}

// ResolvedReadiness is already resolved successfully.
func ResolvedReadiness() *Readiness {
	r := NewReadiness()
	r.Resolve(nil)
	return r
}

// Resolve records a probe result. A nil error settles the future for good;
// a failure is kept until the next probe.
func (r *Readiness) Resolve(err error) {
	if err != nil {
		r.mu.Lock()
		r.lastErr = err
		r.mu.Unlock()
		return
	}
	r.once.Do(func() {
		r.mu.Lock()
		r.lastErr = nil
		r.mu.Unlock()
		close(r.done)
	})
}

// Wait blocks for at most timeout. While the latest probe has failed it
// returns ErrGatewayUnavailable at once; running out of time before any
// probe answers is ErrTimeout.
func (r *Readiness) Wait(ctx context.Context, timeout time.Duration) error {
	select {
	case <-r.done:
		return nil
	default:
	}
	if err := r.failure(); err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-r.done:
		return nil
	case <-timer.C:
		if err := r.failure(); err != nil {
			return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports a successful resolution without blocking.
func (r *Readiness) Ready() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (r *Readiness) failure() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

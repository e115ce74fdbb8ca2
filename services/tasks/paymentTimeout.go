package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TypePaymentTimeout = "payment:timeout"

// PaymentTimeoutPayload identifies the payment window to close.
type PaymentTimeoutPayload struct {
	OrderID string    `json:"orderId"`
	Attempt int       `json:"attempt"`
	FireAt  time.Time `json:"fireAt"`
}

// TaskID is unique per order session, so re-scheduling the same window is a no-op.
func (p PaymentTimeoutPayload) TaskID() string {
	return fmt.Sprintf("%s:%s:%d", TypePaymentTimeout, p.OrderID, p.Attempt)
}

func NewPaymentTimeoutTask(payload PaymentTimeoutPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypePaymentTimeout, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID(payload.TaskID()),
		asynq.MaxRetry(5),
		// Keep the id reserved past the window so late duplicates are dropped.
		asynq.Retention(time.Hour),
	}

	return task, opts, nil
}

// ParsePaymentTimeoutTask decodes a task built by NewPaymentTimeoutTask.
func ParsePaymentTimeoutTask(task *asynq.Task) (PaymentTimeoutPayload, error) {
	var p PaymentTimeoutPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid payment timeout payload: %w", err)
	}
	if p.OrderID == "" {
		return p, errors.New("payment timeout payload has no order id")
	}
	return p, nil
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqScheduler enqueues payment timeouts on the task queue.
type AsynqScheduler struct {
	client enqueuer
}

func NewAsynqScheduler(client *asynq.Client) *AsynqScheduler {
	return &AsynqScheduler{client: client}
}

func (s *AsynqScheduler) SchedulePaymentTimeout(ctx context.Context, orderID string, attempt int, at time.Time) error {
	task, opts, err := NewPaymentTimeoutTask(PaymentTimeoutPayload{OrderID: orderID, Attempt: attempt, FireAt: at}, at)
	if err != nil {
		return err
	}
	if _, err := s.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("failed to enqueue payment timeout: %w", err)
	}
	return nil
}

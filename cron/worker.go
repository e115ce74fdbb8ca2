package cron

import (
	"context"
	"log"
	"time"

	"workshophub/config"
	"workshophub/services/tasks"

	"github.com/hibiken/asynq"
)

// PaymentExpirer closes payment windows. Implemented by the booking orchestrator.
type PaymentExpirer interface {
	ExpirePayment(ctx context.Context, orderID string) error
}

// QueueRedisOpt is the asynq connection shared by the worker and the scheduler client.
func QueueRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// InitPaymentTimeoutWorker runs the payment timeout worker in background. The
// returned server is shut down by the caller.
func InitPaymentTimeoutWorker(expirer PaymentExpirer) *asynq.Server {
	srv := asynq.NewServer(
		QueueRedisOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypePaymentTimeout, handlePaymentTimeoutTask(expirer))

	// Start async worker with retry logic
	go func() {
		log.Println("[PaymentTimeoutWorker] 🚀 Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[PaymentTimeoutWorker] ❌ Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[PaymentTimeoutWorker] ❗ Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
	return srv
}

func handlePaymentTimeoutTask(expirer PaymentExpirer) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParsePaymentTimeoutTask(task)
		if err != nil {
			log.Printf("[PaymentTimeoutHandler] 🔴 Invalid payload: %v", err)
			// A malformed payload will never succeed.
			return asynq.SkipRetry
		}

		log.Printf("[PaymentTimeoutHandler] ⏰ Closing payment window for order %s (session %d)", p.OrderID, p.Attempt)

		if err := expirer.ExpirePayment(ctx, p.OrderID); err != nil {
			log.Printf("[PaymentTimeoutHandler] ❌ Failed to expire payment: %v", err)
			return err
		}
		return nil
	}
}

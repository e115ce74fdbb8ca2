// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"workshophub/config"

	"github.com/go-redis/redis/v8"
)

var (
	// BookingCacheClient holds booking attempts, locks and the order index.
	BookingCacheClient *redis.Client
	// PaymentCacheClient holds tracked gateway sessions.
	PaymentCacheClient *redis.Client
)

func newRedisClient(db int, name string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (%s): %v", name, err)
	}
	return client
}

// GetBookingCacheClient returns the Redis client for booking attempts.
func GetBookingCacheClient() *redis.Client {
	if BookingCacheClient == nil {
		BookingCacheClient = newRedisClient(config.AppConfig.RedisBookingDB, "Booking")
	}
	return BookingCacheClient
}

// GetPaymentCacheClient returns the Redis client for payment sessions.
func GetPaymentCacheClient() *redis.Client {
	if PaymentCacheClient == nil {
		PaymentCacheClient = newRedisClient(config.AppConfig.RedisPaymentDB, "Payment")
	}
	return PaymentCacheClient
}

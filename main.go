// File: workshophub/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"workshophub/config"
	"workshophub/cron"
	"workshophub/database"
	enrollmentRepo "workshophub/database/repository/enrollment"
	studentRepo "workshophub/database/repository/student"
	workshopRepo "workshophub/database/repository/workshop"
	"workshophub/handlers"
	"workshophub/middleware"
	"workshophub/routes"
	"workshophub/services/booking"
	"workshophub/services/enrollment"
	"workshophub/services/notification"
	"workshophub/services/payment"
	"workshophub/services/tasks"
	"workshophub/services/verification"
	"workshophub/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

type indexer interface {
	EnsureIndexes() error
}

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()

	ctx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	// 1. Stores.
	var (
		workshops   workshopRepo.WorkshopRepository
		students    studentRepo.StudentRepository
		enrollments enrollmentRepo.EnrollmentRepository
		storePing   utils.Pinger
		closeStore  func(context.Context) error
	)
	switch config.AppConfig.StoreDriver {
	case "sqlite":
		db, err := database.OpenSQLite(config.AppConfig.SQLitePath)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to open sqlite store: %v", err)
		}
		workshops = workshopRepo.NewSQLiteWorkshopRepo(db)
		students = studentRepo.NewSQLiteStudentRepo(db)
		enrollments = enrollmentRepo.NewSQLiteEnrollmentRepo(db)
		storePing = db.PingContext
		closeStore = func(context.Context) error { return db.Close() }
	default:
		if err := database.InitDB(ctx); err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		logger.Info("Connected to MongoDB", zap.String("database", config.AppConfig.DatabaseName))
		workshops = workshopRepo.NewMongoWorkshopRepo()
		students = studentRepo.NewMongoStudentRepo()
		enrollments = enrollmentRepo.NewMongoEnrollmentRepo()
		for _, repo := range []any{workshops, students, enrollments} {
			if ix, ok := repo.(indexer); ok {
				if err := ix.EnsureIndexes(); err != nil {
					logger.Sugar().Fatalf("main: failed to ensure indexes: %v", err)
				}
			}
		}
		storePing = database.PingMongo
		closeStore = database.CloseDB
	}

	// 2. Attempt cache, session tracker and timeout queue. Without Redis the
	// process runs in demo mode with in-process state.
	var (
		attempts     booking.AttemptStore
		tracker      payment.SessionTracker
		timeouts     booking.TimeoutScheduler
		redisClients []*redis.Client
		worker       *asynq.Server
		queue        *asynq.Client
	)
	if config.AppConfig.RedisAddr != "" {
		bookingCache := utils.GetBookingCacheClient()
		paymentCache := utils.GetPaymentCacheClient()
		redisClients = []*redis.Client{bookingCache, paymentCache}
		attempts = booking.NewRedisAttemptStore(bookingCache)
		tracker = payment.NewRedisSessionTracker(paymentCache)
		queue = asynq.NewClient(cron.QueueRedisOpt())
		timeouts = tasks.NewAsynqScheduler(queue)
	} else {
		logger.Warn("REDIS_ADDR not set, booking attempts are kept in memory")
		attempts = booking.NewMemoryAttemptStore()
		tracker = payment.NewMemorySessionTracker()
	}

	// 3. Payment gateway.
	var (
		gateway payment.Adapter
		parser  handlers.WebhookParser
	)
	switch config.AppConfig.PaymentProvider {
	case "stripe":
		stripe.Key = config.AppConfig.StripeKey
		adapter := payment.NewStripeAdapter(payment.StripeConfig{
			Key:          config.AppConfig.StripeKey,
			SuccessURL:   config.AppConfig.CheckoutSuccessURL,
			CancelURL:    config.AppConfig.CheckoutCancelURL,
			ReadyTimeout: config.GatewayReadyTimeout(),
			MaxRetries:   config.AppConfig.GatewayMaxRetries,
			SessionTTL:   config.PaymentWindow(),
		}, tracker, logger.Named("stripe"))
		adapter.Probe(ctx)
		gateway = adapter
		if config.AppConfig.StripeWebhookSecret != "" {
			parser = payment.NewWebhookParser(config.AppConfig.StripeWebhookSecret)
		}
	default:
		gateway = payment.NewMockAdapter(payment.Status(config.AppConfig.MockPaymentOutcome), config.AppConfig.CheckoutSuccessURL, tracker)
	}
	logger.Info("payment gateway configured", zap.String("gateway", gateway.Name()))

	// 4. Domain events.
	notifier := notification.NewLogNotifier(logger)
	if config.AppConfig.AMQPURL != "" {
		pub, err := notification.NewAMQPPublisher(config.AppConfig.AMQPURL, config.AppConfig.AMQPExchange)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to connect to AMQP: %v", err)
		}
		defer pub.Close()
		notifier = notification.NewAMQPNotifier(pub)
	}

	// 5. Services.
	ledger := enrollment.NewLedger(enrollments, notifier, logger.Named("ledger"))
	bookingService := booking.NewOrchestrator(booking.Deps{
		Workshops: workshops,
		Gate:      verification.NewGate(students, logger.Named("verification")),
		Payments:  gateway,
		Ledger:    ledger,
		Attempts:  attempts,
		Timeouts:  timeouts,
		Notifier:  notifier,
		Logger:    logger.Named("booking"),
	}, booking.Config{
		PaymentWindow:      config.PaymentWindow(),
		AttemptTTL:         config.AttemptTTL(),
		MaxPaymentAttempts: config.AppConfig.MaxPaymentAttempts,
		Currency:           config.AppConfig.DefaultCurrency,
	})
	if queue != nil {
		worker = cron.InitPaymentTimeoutWorker(bookingService)
	}

	utils.StartHealthMonitor(ctx, redisClients, storePing, gateway.Ready)

	// Create the Gin router.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin))

	bookingHandler := handlers.NewBookingHandler(bookingService, config.AttemptTTL())
	var webhookHandler *handlers.WebhookHandler
	if parser != nil {
		webhookHandler = handlers.NewWebhookHandler(bookingService, parser)
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlers.NewHandlerBundle(bookingHandler, webhookHandler))

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	cancelBackground()
	if worker != nil {
		worker.Shutdown()
	}
	if queue != nil {
		queue.Close()
	}
	if err := closeStore(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: failed to close store: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

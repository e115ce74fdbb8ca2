package routes

import (
	"net/http"
	"time"

	"workshophub/handlers"
	"workshophub/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterCatalogueRoutes registers the read-only availability endpoints.
func RegisterCatalogueRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/workshops/:workshopID")
	{
		api.GET("/days", hb.ListSelectableDays)
		api.GET("/days/:day/batches", hb.ListBatches)
		api.GET("/batches/tbd", hb.ListUnresolvedBatches)
	}
}

// RegisterBookingRoutes registers the booking attempt endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/booking")
	{
		api.POST("/verify", hb.StartVerification)
		api.GET("/return", hb.GatewayReturn)

		// Attempt-scoped routes (require an attempt token)
		attempt := api.Group("/attempt")
		attempt.Use(middleware.AttemptAuthMiddleware())
		attempt.GET("", hb.GetAttempt)
		attempt.DELETE("", hb.CancelAttempt)
		attempt.PUT("/batch", hb.SelectBatch)
		attempt.POST("/payment", hb.BeginPayment)
		attempt.POST("/payment/proceed", hb.ProceedPayment)
		attempt.POST("/payment/retry", hb.RetryPayment)
	}
}

// RegisterPaymentRoutes registers gateway callbacks.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	if hb.PaymentWebhook == nil {
		return
	}
	r.POST("/api/payments/webhook", hb.PaymentWebhook)
}

// RegisterHealthRoute registers the health endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.Health)
}

// RegisterRoutes sets up CORS and every route group.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	origins := hb.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r, hb)
	RegisterCatalogueRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterPaymentRoutes(r, hb)
}

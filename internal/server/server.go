package server

import (
	"time"

	"donation-gateway/internal/database"
	"donation-gateway/internal/repo"
	"donation-gateway/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// New builds the gin engine with the payment routes. The provider callback
// route sits behind a sliding-window limiter since it is the only
// unauthenticated write path exposed to the outside.
func New(
	payments service.PaymentService,
	confirms service.ConfirmService,
	transactions repo.TransactionRepo,
	health database.Service,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	h := &Handler{
		payments:     payments,
		confirms:     confirms,
		transactions: transactions,
		health:       health,
	}

	callbackLimiter := NewCallbackLimiter(60, time.Minute)

	api := r.Group("/api/v1/payments")
	api.POST("/initiate", h.Initiate)
	api.GET("/:reference", h.GetTransaction)
	api.POST("/confirm", h.Confirm)
	api.POST("/callback", callbackLimiter.Middleware(), h.Callback)

	r.GET("/health", h.Health)

	return r
}

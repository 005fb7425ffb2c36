package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"kodesha/internal/infra/config"
	"kodesha/internal/infra/obs"
)

type BookingHTTP interface {
	Quote(c *gin.Context)
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Pay(c *gin.Context)
	Transition(action string) gin.HandlerFunc
	Resolve(c *gin.Context)
	Escrow(c *gin.Context)
}

type WalletHTTP interface {
	Get(c *gin.Context)
	TopUp(c *gin.Context)
	Withdraw(c *gin.Context)
}

type Handlers struct {
	Booking BookingHTTP
	Wallet  WalletHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", "X-User-ID"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Booking != nil {
		api.POST("/quotes", h.Booking.Quote)
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings", h.Booking.List)
		api.GET("/bookings/:id", h.Booking.Get)
		api.GET("/bookings/:id/escrow", h.Booking.Escrow)
		api.POST("/bookings/:id/pay", h.Booking.Pay)
		api.POST("/bookings/:id/approve", h.Booking.Transition("approve"))
		api.POST("/bookings/:id/activate", h.Booking.Transition("activate"))
		api.POST("/bookings/:id/complete", h.Booking.Transition("complete"))
		api.POST("/bookings/:id/cancel", h.Booking.Transition("cancel"))
		api.POST("/bookings/:id/dispute", h.Booking.Transition("dispute"))
		api.POST("/bookings/:id/resolve", h.Booking.Resolve)
	}
	if h.Wallet != nil {
		walletGroup := api.Group("/wallet")
		walletGroup.GET("", h.Wallet.Get)
		walletGroup.POST("/topup", h.Wallet.TopUp)
		walletGroup.POST("/withdraw", h.Wallet.Withdraw)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}

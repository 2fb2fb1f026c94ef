package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"wanderlust/internal/infra/config"
	"wanderlust/internal/infra/obs"
)

type AuthHTTP interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Me(c *gin.Context)
}

type ListingHTTP interface {
	Search(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	RecordView(c *gin.Context)
	Availability(c *gin.Context)
	Mine(c *gin.Context)
}

type BookingHTTP interface {
	Create(c *gin.Context)
	Confirm(c *gin.Context)
	Cancel(c *gin.Context)
	Get(c *gin.Context)
	ForListing(c *gin.Context)
	Mine(c *gin.Context)
}

type ReviewHTTP interface {
	List(c *gin.Context)
	Submit(c *gin.Context)
	Delete(c *gin.Context)
}

type AdminHTTP interface {
	Stats(c *gin.Context)
	Listings(c *gin.Context)
	SetStatus(c *gin.Context)
	SetFeatured(c *gin.Context)
	Reviews(c *gin.Context)
	Moderate(c *gin.Context)
}

type Handlers struct {
	Auth           AuthHTTP
	Listing        ListingHTTP
	Booking        BookingHTTP
	Review         ReviewHTTP
	Admin          AdminHTTP
	AuthMiddleware gin.HandlerFunc
	// WriteLimiter guards booking and review writes.
	WriteLimiter gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
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
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
			"Retry-After",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}
	limited := h.WriteLimiter
	if limited == nil {
		limited = func(c *gin.Context) { c.Next() }
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Listing != nil {
		api.GET("/listings", h.Listing.Search)
		api.POST("/listings", h.Listing.Create)
		api.GET("/listings/:id", h.Listing.Get)
		api.PUT("/listings/:id", h.Listing.Update)
		api.DELETE("/listings/:id", h.Listing.Delete)
		api.POST("/listings/:id/views", h.Listing.RecordView)
		api.GET("/listings/:id/availability", h.Listing.Availability)
		api.GET("/me/listings", h.Listing.Mine)
	}
	if h.Booking != nil {
		api.POST("/bookings", limited, h.Booking.Create)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/bookings/:id/confirm", h.Booking.Confirm)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
		api.GET("/listings/:id/bookings", h.Booking.ForListing)
		api.GET("/me/bookings", h.Booking.Mine)
	}
	if h.Review != nil {
		api.GET("/listings/:id/reviews", h.Review.List)
		api.POST("/listings/:id/reviews", limited, h.Review.Submit)
		api.DELETE("/reviews/:id", h.Review.Delete)
	}
	if h.Admin != nil {
		admin := api.Group("/admin")
		admin.GET("/stats", h.Admin.Stats)
		admin.GET("/listings", h.Admin.Listings)
		admin.PATCH("/listings/:id/status", h.Admin.SetStatus)
		admin.PATCH("/listings/:id/featured", h.Admin.SetFeatured)
		admin.GET("/reviews", h.Admin.Reviews)
		admin.PATCH("/reviews/:id/approve", h.Admin.Moderate)
	}

	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev":
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

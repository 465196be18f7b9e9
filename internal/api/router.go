package api

import (
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"slotswapper-backend/config"
	"slotswapper-backend/internal/auth"
	"slotswapper-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID(), mw.AccessLog(logger.Named("http")))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", mw.RequestIDHeader},
		ExposeHeaders:    []string{mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	limiter := mw.NewKeyedRateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	r.GET("/", h.Welcome)
	r.GET("/health", h.Health)

	api := r.Group("/api")

	public := api.Group("/auth")
	public.Use(limiter.RateLimit(mw.ClientIP))
	{
		public.POST("/signup", h.Signup)
		public.POST("/login", h.Login)
	}

	private := api.Group("")
	private.Use(auth.Middleware(h.auth), limiter.RateLimit(callerKey))
	if cfg.CacheTTLSeconds > 0 {
		ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
		private.Use(mw.Cache(cache.New(ttl, 2*ttl), ttl, callerKey))
	}
	{
		private.GET("/auth/me", h.Me)

		private.GET("/events", h.ListEvents)
		private.POST("/events", h.CreateEvent)
		private.GET("/events/calendar.ics", h.ExportCalendar)
		private.GET("/events/:id", h.GetEvent)
		private.PUT("/events/:id", h.UpdateEvent)
		private.DELETE("/events/:id", h.DeleteEvent)

		private.GET("/swappable-slots", h.SwappableSlots)
		private.POST("/swap-request", h.CreateSwapRequest)
		private.DELETE("/swap-request/:id", h.WithdrawSwapRequest)
		private.POST("/swap-response/:id", h.RespondSwapRequest)
		private.GET("/swap-requests/incoming", h.IncomingSwapRequests)
		private.GET("/swap-requests/outgoing", h.OutgoingSwapRequests)
	}

	return r
}

// callerKey buckets authenticated requests by user.
func callerKey(c *gin.Context) string {
	return "user:" + strconv.FormatInt(auth.UserID(c), 10)
}

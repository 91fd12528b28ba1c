package handlers

import (
	"net/http"
	"time"

	"petsync/internal/logger"
	"petsync/internal/push"
	"petsync/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler wires HTTP layer to services, the push hub and logging.
type Handler struct {
	services *service.Service
	hub      *push.Hub
	log      *logger.Logger
	started  time.Time

	rateLimit *IPRateLimiter
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, hub *push.Hub, log *logger.Logger, limiter *IPRateLimiter) *Handler {
	return &Handler{
		services:  services,
		hub:       hub,
		log:       log,
		started:   time.Now(),
		rateLimit: limiter,
	}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.CustomRecovery(h.recovered))

	// Fixed error bodies the legacy client expects.
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	// Health endpoint
	router.GET("/health", h.health)

	// Push channel (HTTP upgrade) — same port, no rate limit on the
	// long-lived connection itself.
	router.GET("/ws", h.wsConnect)

	h.registerAPIRoutes(router)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/", h.rateLimitMiddleware)
	{
		api.GET("/schedule", h.getSchedule)
		api.POST("/schedule", h.saveSchedule)

		api.GET("/feederState", h.getFeederState)
		api.POST("/feederState", h.setFeederState)
		api.POST("/feederState/fill", h.fillBowl)
		api.POST("/feederState/dispense", h.dispense)
		api.POST("/feederState/autoRefill", h.setAutoRefill)

		// Routes the deployed client still calls.
		api.GET("/api/listaAgendamentos", h.getScheduleLegacy)
		api.POST("/api/salvarAgendamento", h.saveScheduleLegacy)
	}
}

func (h *Handler) recovered(c *gin.Context, err any) {
	if h.log != nil {
		h.log.Errorw("handler_panic", "err", err, "path", c.Request.URL.Path)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong!"})
}

func (h *Handler) health(c *gin.Context) {
	snap := h.services.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptimeSeconds": int(time.Since(h.started).Seconds()),
		"currentGrams":  snap.Grams,
	})
}

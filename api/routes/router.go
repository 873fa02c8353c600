// api/routes/router.go
package routes

import (
	"context"
	"net/http"
	"time"

	"coursely/internal/classroom"
	"coursely/internal/courses"
	"coursely/internal/realtime"
	"coursely/internal/registration"
	"coursely/internal/scoring"
	"coursely/internal/shared/config"
	"coursely/internal/shared/database"
	"coursely/internal/students"
	"coursely/internal/waitlist"
	"coursely/pkg/cache"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config *config.Config
	db     *database.DB

	bus       *realtime.Bus
	engine    *scoring.Engine
	projector classroom.Projector
	service   registration.Service
	hub       *realtime.Hub
}

// NewRouter wires the allocation stack: repositories over the shared
// connections, the scoring engine, the bus, the projector, and the
// orchestrator on top.
func NewRouter(cfg *config.Config, db *database.DB) *Router {
	bus := realtime.NewBus(cfg.Realtime.SubscriberQueueSize)
	engine := scoring.NewEngine(scoring.WeightsForPreset(cfg.Scoring.Preset), cfg.Scoring.TimeDecayHours)

	cacheService := cache.NewService(db.GetRedisClient())
	projector := classroom.NewProjector(
		classroom.NewRepository(db.GetPostgreSQL()),
		bus,
		cacheService,
		cfg.Redis.ProjectionCacheTTL,
	)

	coursesRepo := courses.NewRepository(db.GetPostgreSQL())
	studentsRepo := students.NewRepository(db.GetPostgreSQL())
	waitlistRepo := waitlist.NewRepository(db.GetPostgreSQL(), db.GetRedisClient(), cfg.Redis.WaitlistKeyTTL)
	queue := waitlist.NewService(waitlistRepo, engine)
	registrationRepo := registration.NewRepository(db.GetPostgreSQL(), db.GetRedisClient(), cfg.Redis.CourseLockTTL)

	service := registration.NewService(
		registrationRepo,
		coursesRepo,
		studentsRepo,
		queue,
		engine,
		projector,
		bus,
	)

	hub := realtime.NewHub(bus, snapshotAdapter{projector}, realtime.HubConfig{
		QueueSize:    cfg.Realtime.SubscriberQueueSize,
		WriteTimeout: cfg.Realtime.WriteTimeout,
		PingInterval: cfg.Realtime.PingInterval,
	})

	return &Router{
		config:    cfg,
		db:        db,
		bus:       bus,
		engine:    engine,
		projector: projector,
		service:   service,
		hub:       hub,
	}
}

// Bus exposes the event bus for background consumers (Kafka mirror)
func (r *Router) Bus() *realtime.Bus {
	return r.bus
}

// StartProjector runs the incremental projection loop until ctx ends
func (r *Router) StartProjector(ctx context.Context) {
	go r.projector.Run(ctx)
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		registration.SetupRegistrationRoutes(api, registration.NewController(r.service))
		realtime.SetupRealtimeRoutes(api, r.hub)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		// Perform health checks
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "coursely-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "coursely-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

// snapshotAdapter bridges the projector to the hub's snapshot interface
type snapshotAdapter struct {
	projector classroom.Projector
}

func (a snapshotAdapter) GetState(ctx context.Context, courseExternalID string) (interface{}, error) {
	return a.projector.GetState(ctx, courseExternalID)
}

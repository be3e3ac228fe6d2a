package routes

import (
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/whosin/internal/container"
	"github.com/joshua-takyi/whosin/internal/handlers"
	"github.com/joshua-takyi/whosin/internal/middleware"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) (*gin.Engine, error) {
	if container.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	limiterStore, err := middleware.NewLimiterStore(container.Redis)
	if err != nil {
		return nil, err
	}
	writeLimit, err := middleware.RateLimiter(limiterStore, container.Config.RateLimit, container.Logger)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(cors.New(corsConfig(container.Config.CORSOrigins)))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "OK",
				"service": "whosin-api",
			})
		})

		v1.POST("/voters", writeLimit, handlers.RegisterVoter(container.IdentityService))
		v1.POST("/rsvp", writeLimit, handlers.SubmitRSVP(container.RSVPService))
	}

	eventRoutes := v1.Group("/events")
	{
		eventRoutes.POST("", writeLimit, handlers.CreateEvent(container.EventService))
		eventRoutes.GET("", handlers.ListPublicEvents(container.EventService))
		eventRoutes.GET("/:id", handlers.GetEvent(container.EventService))
		eventRoutes.GET("/:id/attendees", handlers.ListEventAttendees(container.EventService))
	}

	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

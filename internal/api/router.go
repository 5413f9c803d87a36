package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/clinic-scheduler/internal/appointment"
	apptHttp "github.com/nekogravitycat/clinic-scheduler/internal/appointment/http"
	"github.com/nekogravitycat/clinic-scheduler/internal/auth"
	"github.com/nekogravitycat/clinic-scheduler/internal/availability"
	availHttp "github.com/nekogravitycat/clinic-scheduler/internal/availability/http"
)

// Config holds the services and settings the router is built from.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Logger       zerolog.Logger

	AvailabilityService availability.Service
	AppointmentService  appointment.Service
	JWTManager          *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (Recovery, Logger, CORS, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global Middleware:
	// - Recovery: Captures panics and returns a 500 error.
	// - RequestLogger: Attaches a request-scoped logger and logs each request.
	r.Use(Recovery(cfg.Logger), RequestLogger(cfg.Logger))

	// Configure CORS (Cross-Origin Resource Sharing).
	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins(cfg.IsProduction, cfg.ProdOrigins)
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", RequestIDHeader}
	config.ExposeHeaders = []string{RequestIDHeader}
	r.Use(cors.New(config))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	availHandler := availHttp.NewHandler(cfg.AvailabilityService)
	apptHandler := apptHttp.NewHandler(cfg.AppointmentService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		availHttp.RegisterRoutes(v1, availHandler, authMiddleware)
		apptHttp.RegisterRoutes(v1, apptHandler, authMiddleware)
	}

	return r
}

// allowedOrigins returns the local dev origins, or the comma separated
// PROD_ORIGINS list in production.
func allowedOrigins(isProduction bool, prodOrigins string) []string {
	if !isProduction {
		return []string{
			"http://localhost:3000", // Web app
			"http://localhost:8081", // Swagger
		}
	}

	var origins []string
	for _, o := range strings.Split(prodOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/clinic-scheduler/internal/api"
	"github.com/nekogravitycat/clinic-scheduler/internal/appointment"
	"github.com/nekogravitycat/clinic-scheduler/internal/auth"
	"github.com/nekogravitycat/clinic-scheduler/internal/availability"
	"github.com/nekogravitycat/clinic-scheduler/internal/scheduling"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	Scheduling   scheduling.Config
	Logger       zerolog.Logger
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router              *gin.Engine
	JWTManager          *auth.JWTManager
	Engine              *scheduling.Engine
	AvailabilityService availability.Service
	AppointmentService  appointment.Service
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	engine := scheduling.NewEngine(cfg.Scheduling)

	// Availability Module
	availRepo := availability.NewPgxRepository(cfg.DBPool)
	availService := availability.NewService(availRepo, engine, cfg.Logger)

	// Appointment Module
	apptRepo := appointment.NewPgxRepository(cfg.DBPool)
	apptService := appointment.NewService(apptRepo, engine, cfg.Logger)

	// API Router Config
	routerParams := api.Config{
		IsProduction:        cfg.IsProduction,
		ProdOrigins:         cfg.ProdOrigins,
		Logger:              cfg.Logger,
		AvailabilityService: availService,
		AppointmentService:  apptService,
		JWTManager:          jwtManager,
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:              router,
		JWTManager:          jwtManager,
		Engine:              engine,
		AvailabilityService: availService,
		AppointmentService:  apptService,
	}
}

// Warm loads the stored schedules into the engine. Availability goes first
// so appointments land on known practitioners.
func (c *Container) Warm(ctx context.Context) error {
	if err := c.AvailabilityService.Warm(ctx); err != nil {
		return fmt.Errorf("warm availability: %w", err)
	}
	if err := c.AppointmentService.Warm(ctx); err != nil {
		return fmt.Errorf("warm appointments: %w", err)
	}
	return nil
}

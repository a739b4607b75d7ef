package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	appControllers "github.com/semscan/semscan-api/internal/app/controllers"
	appJobs "github.com/semscan/semscan-api/internal/app/jobs"
	appMigrations "github.com/semscan/semscan-api/internal/app/migrations"
	appRepos "github.com/semscan/semscan-api/internal/app/repositories"
	appRoutes "github.com/semscan/semscan-api/internal/app/routes"
	appServices "github.com/semscan/semscan-api/internal/app/services"
	"github.com/semscan/semscan-api/internal/config"
	"github.com/semscan/semscan-api/internal/db"
	"github.com/semscan/semscan-api/internal/pkg/email"
	"github.com/semscan/semscan-api/internal/pkg/logger"
	"github.com/semscan/semscan-api/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos                 *appRepos.Repositories
	TxRunner              appServices.TxRunner
	Notifier              *email.Notifier
	CapacityService       *appServices.CapacityService
	SlotService           *appServices.SlotService
	ApprovalService       *appServices.ApprovalService
	WaitingListService    *appServices.WaitingListService
	PromotionService      *appServices.PromotionService
	SlotController        *appControllers.SlotController
	ApprovalController    *appControllers.ApprovalController
	WaitingListController *appControllers.WaitingListController
	ExpirySweeper         *appJobs.ExpirySweeper
	Logger                zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	// A missing .env file is fine; the config falls back to its defaults.
	_ = godotenv.Load()

	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger // Get the configured global logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}

	// Run migrations
	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(database.Pool)

	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		database.Close()
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")

	// Seed demo data only when explicitly requested
	if cfg.Database.Seed {
		if err := seed.CreateDefaultData(context.Background(), database.Pool, lgr); err != nil {
			// Log the error but don't necessarily fail the startup
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	return database, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(database.Pool)
	deps.TxRunner = appServices.NewPgTxRunner(database, deps.Repos)
	stores := appServices.PoolStores(deps.Repos)

	deps.Notifier = email.NewNotifier(email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
		UseTLS:    cfg.SMTP.UseTLS,
		BaseURL:   cfg.Server.BaseURL,
	}, lgr)

	// Initialize services
	deps.CapacityService = appServices.NewCapacityService(cfg, stores)
	deps.SlotService = appServices.NewSlotService(stores, deps.CapacityService)
	deps.ApprovalService = appServices.NewApprovalService(cfg, deps.TxRunner, stores, deps.CapacityService, deps.Notifier)
	deps.WaitingListService = appServices.NewWaitingListService(cfg, deps.TxRunner, stores, deps.Notifier)
	deps.PromotionService = appServices.NewPromotionService(cfg, deps.TxRunner, stores, deps.CapacityService, deps.Notifier)

	deps.SlotController = appControllers.NewSlotController(deps.SlotService, deps.PromotionService)
	deps.ApprovalController = appControllers.NewApprovalController(deps.ApprovalService, deps.PromotionService)
	deps.WaitingListController = appControllers.NewWaitingListController(deps.WaitingListService, deps.PromotionService)

	deps.ExpirySweeper = appJobs.NewExpirySweeper(cfg.Seminar.ExpirySweepSchedule, deps.ApprovalService, deps.PromotionService)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.Default()

	// Setup Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json"), ginSwagger.DefaultModelsExpandDepth(1)))

	// Setup API routes using the dependencies
	appRoutes.SetupRouter(router,
		deps.SlotController,
		deps.ApprovalController,
		deps.WaitingListController,
	)

	// Test endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}

package setup

import (
	"context"

	"github.com/robalyx/doorbell/internal/database"
	"github.com/robalyx/doorbell/internal/setup/config"
	"github.com/robalyx/doorbell/internal/setup/logging"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
type App struct {
	Config     *config.Config   // Application configuration
	Logger     *zap.Logger      // Main application logger
	DBLogger   *zap.Logger      // Database-specific logger
	DB         database.Client  // Database connection pool
	LogManager *logging.Manager // Log management system
}

// InitializeApp bootstraps all application dependencies in the correct
// order, ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, logDir string) (*App, error) {
	// Load app configuration
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := logging.NewManager(logDir, &cfg.Debug)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded configuration",
		zap.String("configDir", configDir),
		zap.String("instanceID", logManager.InstanceID()))

	// Initialize database with automatic migrations
	db, err := database.NewConnection(ctx, &cfg.PostgreSQL, dbLogger, true)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		DBLogger:   dbLogger,
		DB:         db,
		LogManager: logManager,
	}, nil
}

// Cleanup closes connections and flushes buffered logs.
func (a *App) Cleanup() {
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}

	_ = a.Logger.Sync()
	_ = a.DBLogger.Sync()
}

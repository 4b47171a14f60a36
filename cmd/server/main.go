// backend-go/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/shelfplan/backend-go/internal/api"
	"github.com/andresuchdata/shelfplan/backend-go/internal/cache"
	"github.com/andresuchdata/shelfplan/backend-go/internal/config"
	"github.com/andresuchdata/shelfplan/backend-go/internal/drive"
	"github.com/andresuchdata/shelfplan/backend-go/internal/repository"
	"github.com/andresuchdata/shelfplan/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/shelfplan/backend-go/internal/restock"
	"github.com/andresuchdata/shelfplan/backend-go/internal/service"
	"github.com/andresuchdata/shelfplan/backend-go/internal/storage"
	"github.com/andresuchdata/shelfplan/backend-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetFormat(cfg.Log.Format)
	logger.SetLevel(cfg.Log.Level)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	plans, catalogs, closeDB := initRepositories(ctx, cfg)
	defer closeDB()

	catalogCache, err := cache.NewCatalogCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("catalog cache unavailable, continuing without cache")
		catalogCache = cache.NewNoopCatalogCache()
	}

	var exporter service.PlanExporter
	if cfg.Storage.Enabled {
		store, err := storage.NewMinioClient(ctx, storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize plan storage")
		}
		exporter = storage.NewPlanExporter(store, "plans")
	}

	restockService := service.NewRestockService(service.RestockConfig{
		DefaultDays:      cfg.Restock.DefaultDays,
		MaxProducts:      cfg.Restock.MaxProducts,
		BatchConcurrency: cfg.Restock.BatchConcurrency,
		Planner: restock.Options{
			CurrencySymbol:      cfg.Restock.CurrencySymbol,
			MinResidualBudget:   cfg.Restock.MinResidualBudget,
			MaxLowStockWarnings: cfg.Restock.MaxLowStockWarnings,
		},
	}, plans, catalogs, catalogCache, exporter)

	services := &api.Services{RestockService: restockService}

	if cfg.Drive.Enabled {
		driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
		}
		importer := drive.NewCatalogImporter(driveService, restockService)
		services.DriveHandler = drive.NewHandler(driveService, importer, func(err error) bool {
			return errors.Is(err, service.ErrInvalidRequest)
		})
	}

	// Initialize HTTP server
	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

// initRepositories uses Postgres when DB_ENABLED is set and in-memory stores otherwise.
func initRepositories(ctx context.Context, cfg *config.Config) (repository.PlanRepository, repository.CatalogRepository, func()) {
	if !cfg.Database.Enabled {
		logger.Log.Info().Msg("database disabled, plan history and catalogs are kept in memory")
		return repository.NewMemoryPlanRepository(), repository.NewMemoryCatalogRepository(), func() {}
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to prepare database schema")
	}

	return postgres.NewPlanRepository(db), postgres.NewCatalogRepository(db), func() {
		if err := db.Close(); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to close database")
		}
	}
}

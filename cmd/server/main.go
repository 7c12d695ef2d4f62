package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Household-Ledger-Backend/internal/api"
	"github.com/ndewijer/Household-Ledger-Backend/internal/config"
	"github.com/ndewijer/Household-Ledger-Backend/internal/database"
	"github.com/ndewijer/Household-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Household-Ledger-Backend/internal/scheduler"
	"github.com/ndewijer/Household-Ledger-Backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := cfg.Log.NewLogger(os.Stdout)
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(log.GetLevel())

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.WithError(err).Fatal("Failed to open database")
	}
	defer db.Close()

	version, err := database.Migrate(context.Background(), db)
	if err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}
	log.WithFields(logrus.Fields{
		"path":           cfg.Database.Path,
		"schema_version": version,
	}).Info("Connected to database")

	// Create repositories
	taxonomyRepo := repository.NewTaxonomyRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	cacheRepo := repository.NewCacheRepository(db)
	runRepo := repository.NewRunRepository(db)

	// Create services
	systemService := service.NewSystemService(db, runRepo)
	pipelineService := service.NewPipelineService(
		db,
		taxonomyRepo,
		ledgerRepo,
		cacheRepo,
		runRepo,
		service.NewFileLoader(cfg.Pipeline),
		cfg.Pipeline.OutputDir,
		log,
	)
	if err := pipelineService.RecoverInterrupted(context.Background()); err != nil {
		log.WithError(err).Fatal("Failed to recover interrupted runs")
	}

	sched, err := scheduler.New(cfg.Pipeline.Schedule, pipelineService, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create scheduler")
	}
	sched.Start()
	if cfg.Pipeline.RunOnStart {
		go sched.RunNow(service.TriggerStartup)
	}

	// Create router
	router := api.NewRouter(systemService, pipelineService, cfg, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	sched.Stop(ctx)
	pipelineService.Wait()

	log.Info("Server exited")
}

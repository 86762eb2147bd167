package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"memberhub-backend/internal/config"
	"memberhub-backend/internal/events"
	"memberhub-backend/internal/jobs"
	"memberhub-backend/internal/logger"
	"memberhub-backend/internal/repository/postgres"
	"memberhub-backend/internal/scheduler"
	"memberhub-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'enrich-geography', 'drain-outbox')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting MemberHub Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Services
	memberSvc := service.NewMembershipService(store.MembershipRepository)
	geoSvc := service.NewGeographyService(store.GeographyRepository, store.ReviewQueueRepository)
	emailSvc := service.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.User,
		cfg.SMTP.Password,
		cfg.SMTP.From,
	)

	// The cron process drains the outbox as a fallback, with the same
	// subscriber set as the server.
	dispatcher := events.NewDispatcher(store.OutboxRepository, events.DispatcherConfig{
		PollInterval: time.Duration(cfg.Dispatcher.PollIntervalMs) * time.Millisecond,
		BatchSize:    cfg.Dispatcher.BatchSize,
		BaseBackoff:  time.Duration(cfg.Dispatcher.BaseBackoffMs) * time.Millisecond,
		MaxAttempts:  cfg.Dispatcher.MaxAttempts,
	})
	dispatcher.Register(events.NewCommunicationsSubscriber(store.MembershipRepository, emailSvc))

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(
		store.MembershipRepository,
		store.ReviewQueueRepository,
		geoSvc,
		memberSvc,
		dispatcher,
		cfg,
	)

	// Handle run-once mode
	if *runOnce != "" {
		switch *runOnce {
		case "enrich-geography":
			jobRunner.EnrichGeography()
		case "drain-outbox":
			jobRunner.DrainOutbox()
		default:
			log.Fatalf("Unknown job: %s", *runOnce)
		}
		logger.Info("Run-once job finished", "job", *runOnce)
		return
	}

	// Start Scheduler
	sched := scheduler.NewScheduler(jobRunner)
	sched.Start()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Received signal, shutting down", "signal", sig.String())
	sched.Stop()
}

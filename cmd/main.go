package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"github.com/dbpilot/dbpilot/config"
	"github.com/dbpilot/dbpilot/internal/api/v1/handlers"
	"github.com/dbpilot/dbpilot/internal/api/v1/routes"
	"github.com/dbpilot/dbpilot/internal/constants"
	"github.com/dbpilot/dbpilot/internal/db"
	"github.com/dbpilot/dbpilot/internal/db/repos"
	"github.com/dbpilot/dbpilot/internal/logger"
	"github.com/dbpilot/dbpilot/internal/orchestrator"
	"github.com/dbpilot/dbpilot/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("No .env file loaded: %v", err)
	}
	logger.Initialize()

	database, err := db.New(db.Options{
		Host:     config.GetEnv(constants.EnvDBHost, "localhost"),
		User:     config.GetEnv(constants.EnvDBUser, "dbpilot"),
		Password: config.GetEnv(constants.EnvDBPassword, ""),
		DBName:   config.GetEnv(constants.EnvDBName, "dbpilot"),
		Port:     config.GetEnvInt(constants.EnvDBPort, 5432),
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	clusterRepo := repos.NewClusterRepository(database)
	backupRepo := repos.NewBackupRepository(database)
	jobRepo := repos.NewJobRepository(database)
	eventRepo := repos.NewEventRepository(database)

	orch := orchestrator.New(orchestrator.Config{
		Kubeconfig:        config.GetEnv(constants.EnvKubeconfig, ""),
		NamespacePrefix:   config.GetEnv(constants.EnvNamespacePrefix, ""),
		BackupVolumeClaim: config.GetEnv(constants.EnvBackupVolumeClaim, ""),
		SimulatedDelay:    config.GetEnvDuration(constants.EnvSimulatedDelay, 0),
	})
	logger.Infof("Orchestrator running in %s mode", orch.Mode())

	notifier := services.NewWebhookNotifier(config.GetEnv(constants.EnvNotifyWebhookURL, ""))
	jobHandlers := services.NewHandlers(orch, clusterRepo, backupRepo, eventRepo, notifier)

	processor, err := services.NewProcessor(jobRepo, clusterRepo, eventRepo, jobHandlers, services.ProcessorOptions{
		PollInterval: config.GetEnvDuration(constants.EnvJobPollInterval, services.DefaultPollInterval),
		BatchSize:    config.GetEnvInt(constants.EnvJobBatchSize, services.DefaultBatchSize),
	})
	if err != nil {
		logger.Fatalf("Failed to build job processor: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go processor.Run(ctx)

	clusterService := services.NewClusterService(clusterRepo, backupRepo, jobRepo, eventRepo)
	jobService := services.NewJobService(jobRepo)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})
	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"mode":   string(orch.Mode()),
		})
	})

	routes.Register(app,
		handlers.NewClusterHandler(clusterService),
		handlers.NewJobHandler(jobService),
	)

	// Shut the listener down on SIGINT/SIGTERM, then stop the processor
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		logger.Infof("Received signal %s, shutting down", sig)
		cancel()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
		}
	}()

	addr := ":" + config.GetEnv(constants.EnvAPIPort, "8080")
	logger.Infof("API server listening on %s", addr)
	if err := app.Listen(addr); err != nil {
		logger.Fatalf("Server exited with error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

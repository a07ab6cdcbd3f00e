package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/resume-extractor/internal/admission"
	"github.com/cuongbtq/resume-extractor/internal/api/handler"
	"github.com/cuongbtq/resume-extractor/internal/api/router"
	"github.com/cuongbtq/resume-extractor/internal/config"
	"github.com/cuongbtq/resume-extractor/internal/extraction"
	"github.com/cuongbtq/resume-extractor/internal/jobs"
	"github.com/cuongbtq/resume-extractor/internal/structuring"
	"github.com/cuongbtq/resume-extractor/shared/database"
	"github.com/cuongbtq/resume-extractor/shared/logger"
	"github.com/cuongbtq/resume-extractor/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("RESUME_EXTRACTOR_CONFIG")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting resume extractor",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.String("storage_driver", cfg.Storage.Driver),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize job store
	store, dbClient, err := initStore(ctx, &cfg.Storage, appLogger.Component("database"))
	if err != nil {
		return fmt.Errorf("failed to initialize job store: %w", err)
	}
	if dbClient != nil {
		defer dbClient.Close()
	}

	// Initialize job event publisher
	publisher, rabbitClient, err := initEvents(&cfg.Events, appLogger.Component("events"))
	if err != nil {
		return fmt.Errorf("failed to initialize job events: %w", err)
	}
	if rabbitClient != nil {
		defer rabbitClient.Close()
	}

	// Initialize structuring engine
	engine, err := initEngine(ctx, &cfg.LLM, appLogger.Component("structuring"))
	if err != nil {
		return fmt.Errorf("failed to initialize structuring engine: %w", err)
	}

	// Initialize extraction chain
	chain := initExtraction(&cfg.Extraction, appLogger.Component("extraction"))

	orchestrator, err := jobs.NewOrchestrator(&jobs.Config{
		Store:         store,
		Extractor:     chain,
		Structurer:    engine,
		Publisher:     publisher,
		Logger:        appLogger.Component("jobs"),
		Concurrency:   cfg.Worker.Concurrency,
		QueueSize:     cfg.Worker.QueueSize,
		JobTimeout:    cfg.Worker.JobTimeout,
		TTL:           cfg.Jobs.TTL,
		SweepInterval: cfg.Jobs.SweepInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize orchestrator: %w", err)
	}
	orchestrator.Start(ctx)

	gate := admission.NewGate(&admission.Config{
		MasterKey:  cfg.Admission.MasterKey,
		DailyLimit: cfg.Admission.GuestDailyLimit,
		Cooldown:   cfg.Admission.Cooldown,
		Logger:     appLogger.Component("admission"),
	})

	// Initialize router
	r := initRouter(cfg, appLogger.Component("http"), orchestrator, gate, dbClient)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	appLogger.Info("Resume extractor is running",
		slog.String("address", addr),
		slog.Int("workers", cfg.Worker.Concurrency),
	)

	// Wait for interrupt signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-serverErr:
		appLogger.Error("Server failed", slog.Any("error", err))
		runErr = fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", slog.Any("error", err))
	}

	workerCtx, cancelWorkers := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer cancelWorkers()

	if err := orchestrator.Shutdown(workerCtx); err != nil {
		appLogger.Warn("Workers did not finish before the shutdown deadline", slog.Any("error", err))
	}

	appLogger.Info("Server shutdown complete")
	return runErr
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initStore selects the in-memory store or a SQL store for the configured driver
func initStore(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger) (jobs.Store, *database.Client, error) {
	if cfg.Driver == config.StorageMemory {
		logger.Info("Using in-memory job store")
		return jobs.NewMemoryStore(), nil, nil
	}

	dbClient, err := database.NewClient(&database.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	store, err := jobs.NewSQLStore(ctx, dbClient.GetDB())
	if err != nil {
		dbClient.Close()
		return nil, nil, err
	}

	logger.Info("Using SQL job store", slog.String("driver", dbClient.DriverName()))

	return store, dbClient, nil
}

// initEvents connects to RabbitMQ when job events are enabled
func initEvents(cfg *config.EventsConfig, logger *slog.Logger) (jobs.EventPublisher, *rabbitmq.Client, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, logger)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("RabbitMQ connection established")
	return jobs.NewAMQPPublisher(rabbitClient), rabbitClient, nil
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initEngine builds the backend for the configured provider and wraps it in the structuring engine
func initEngine(ctx context.Context, cfg *config.LLMConfig, logger *slog.Logger) (*structuring.Engine, error) {
	backendCfg := structuring.BackendConfig{
		Provider:    cfg.Provider,
		Temperature: cfg.Temperature,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
	}

	var model string
	switch cfg.Provider {
	case config.ProviderOllama:
		backendCfg.BaseURL = cfg.Ollama.BaseURL
		model = cfg.Ollama.Model
	case config.ProviderGoogle:
		backendCfg.APIKey = cfg.Google.APIKey
		model = cfg.Google.Model
	case config.ProviderOpenAI:
		backendCfg.BaseURL = cfg.OpenAI.BaseURL
		backendCfg.APIKey = cfg.OpenAI.APIKey
		model = cfg.OpenAI.Model
	}

	backend, err := structuring.NewBackend(ctx, backendCfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Structuring backend ready",
		slog.String("provider", backend.Name()),
		slog.String("model", model),
		slog.Duration("timeout", cfg.Timeout),
	)

	return structuring.NewEngine(&structuring.Config{
		Backend: backend,
		Model:   model,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
}

// initExtraction builds the layout, generic and OCR extraction chain
func initExtraction(cfg *config.ExtractionConfig, logger *slog.Logger) *extraction.Chain {
	return extraction.NewDefaultChain(extraction.Config{
		Pdftotext:      cfg.Pdftotext,
		Pdftoppm:       cfg.Pdftoppm,
		Tesseract:      cfg.Tesseract,
		DPI:            cfg.DPI,
		Language:       cfg.Language,
		OCRConcurrency: cfg.OCRConcurrency,
		MaxPages:       cfg.MaxPages,
	}, nil, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, orchestrator *jobs.Orchestrator, gate *admission.Gate, dbClient *database.Client) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	handlerDeps := &handler.Dependencies{
		Logger:           logger,
		Jobs:             orchestrator,
		Gate:             gate,
		CredentialHeader: cfg.Admission.Header,
		MaxUploadBytes:   cfg.Server.MaxUploadBytes,
		ServiceName:      cfg.App.Name,
	}
	if dbClient != nil {
		handlerDeps.Health = dbClient
	}

	return router.SetupRouter(handlerDeps)
}

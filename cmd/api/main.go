package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"recruitflow/assessment-api/internal/config"
	"recruitflow/assessment-api/internal/handlers"
	"recruitflow/assessment-api/internal/logger"
	"recruitflow/assessment-api/internal/repositories"
	"recruitflow/assessment-api/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer zlog.Sync()
	zlog.Info("config loaded", zap.String("env", cfg.Server.Env))

	// Initialize database
	db, err := config.InitDatabase(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		zlog.Fatal("failed to get database handle", zap.Error(err))
	}

	stores := services.Stores{
		Candidates:   repositories.NewCandidateRepository(db),
		Jobs:         repositories.NewJobRepository(db),
		Applications: repositories.NewApplicationRepository(db),
		CVs:          repositories.NewCvRepository(db),
		Videos:       repositories.NewVideoRepository(db),
		Assessments:  repositories.NewAssessmentRepository(db),
		Recruiters:   repositories.NewRecruiterRepository(db),
	}
	zlog.Info("repositories initialized")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewPipelineMetrics(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Flow state
	var flows services.FlowStore
	switch cfg.Flow.Store {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Fatal("failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		defer rdb.Close()
		flows = services.NewRedisFlowStore(rdb, cfg.Flow.TTL)
	default:
		flows = services.NewMemoryFlowStore(cfg.Flow.TTL)
	}
	zlog.Info("flow store initialized", zap.String("store", cfg.Flow.Store))

	// Scorers
	cvScorer, err := buildCVScorer(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize cv scorer", zap.Error(err))
	}
	videoScorer := services.NewHTTPVideoScorer(cfg.Inference.Video.URL, &http.Client{})

	gateway := services.NewInferenceGateway(
		cvScorer,
		videoScorer,
		services.RetryPolicy{
			MaxAttempts:    cfg.Inference.CV.MaxAttempts,
			Delay:          cfg.Inference.CV.RetryDelay,
			AttemptTimeout: cfg.Inference.CV.Timeout,
		},
		services.RetryPolicy{
			MaxAttempts:    cfg.Inference.Video.MaxAttempts,
			Delay:          cfg.Inference.Video.RetryDelay,
			AttemptTimeout: cfg.Inference.Video.Timeout,
		},
		zlog,
		metrics,
	)

	media := services.NewMediaFetcher(
		cfg.Media.DownloadPath,
		cfg.Media.MaxFileSize,
		&http.Client{Timeout: cfg.Media.Timeout},
	)
	if err := media.EnsureDir(); err != nil {
		zlog.Fatal("failed to create download directory", zap.Error(err))
	}

	// Worker
	runner := services.NewStageRunner(stores, gateway, media, zlog)
	worker := services.NewWorker(runner, stores.CVs, services.WorkerOptions{
		Concurrency:      cfg.Queue.Concurrency,
		Buffer:           cfg.Queue.Buffer,
		RecoveryInterval: cfg.Queue.RecoveryInterval,
	}, zlog, metrics)
	worker.Start(ctx)
	zlog.Info("worker started", zap.Int("concurrency", cfg.Queue.Concurrency))

	var dispatcher services.Dispatcher = worker
	if cfg.Queue.Driver == "rabbitmq" {
		rabbit, err := services.NewRabbitDispatcher(cfg.Queue.AMQPURL, cfg.Queue.Name, zlog)
		if err != nil {
			zlog.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
		defer rabbit.Close()
		if err := rabbit.Consume(ctx, worker); err != nil {
			zlog.Fatal("failed to consume stage queue", zap.Error(err))
		}
		dispatcher = rabbit
	}
	zlog.Info("stage queue ready", zap.String("driver", cfg.Queue.Driver))

	status := services.NewStatusProjector(stores, cfg.Status.FallbackAge, cfg.Status.CheckTimeout, zlog)
	pipeline := services.NewPipeline(stores, flows, dispatcher, status, zlog)
	jobService := services.NewJobService(stores, status, zlog)

	// Initialize Handlers
	candidateHandler := handlers.NewCandidateHandler(pipeline, jobService, zlog)
	recruiterHandler := handlers.NewRecruiterHandler(jobService, pipeline)
	healthHandler := handlers.NewHealthHandler(sqlDB, 5*time.Second, zlog)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Assessment API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Session-ID",
	}))

	// Routes
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := app.Group("/api/v1")
	api.Get("/health", healthHandler.HandleHealth)
	candidateHandler.Register(api.Group("/candidate"))
	recruiterHandler.Register(api.Group("/recruiter"))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zlog.Info("shutting down server")
		cancel()
		worker.Stop()
		if err := app.Shutdown(); err != nil {
			zlog.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zlog.Info("server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
}

func buildCVScorer(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (services.CVScorer, error) {
	if cfg.Inference.CV.Provider != "gemini" {
		return services.NewHTTPCVScorer(cfg.Inference.CV.URL, &http.Client{}), nil
	}

	gemini, err := services.NewGeminiService(ctx, cfg.Inference.Gemini.APIKey, cfg.Inference.Gemini.Model, zlog)
	if err != nil {
		return nil, err
	}
	zlog.Info("gemini cv scorer initialized", zap.String("model", cfg.Inference.Gemini.Model))
	return services.NewGeminiCVScorer(gemini, services.NewPDFParser(), services.NewPromptBuilder()), nil
}

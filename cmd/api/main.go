// Package main is the entrypoint for the HairCare Pro web server.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/haircarepro/haircarepro/internal/bootstrap"
	"github.com/haircarepro/haircarepro/internal/cache"
	"github.com/haircarepro/haircarepro/internal/careplan"
	"github.com/haircarepro/haircarepro/internal/config"
	"github.com/haircarepro/haircarepro/internal/handler"
	"github.com/haircarepro/haircarepro/internal/metrics"
	"github.com/haircarepro/haircarepro/internal/middleware"
	"github.com/haircarepro/haircarepro/internal/migration"
	"github.com/haircarepro/haircarepro/internal/notify"
	"github.com/haircarepro/haircarepro/internal/reminder"
	"github.com/haircarepro/haircarepro/internal/render"
	"github.com/haircarepro/haircarepro/internal/server"
	"github.com/haircarepro/haircarepro/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := bootstrap.NewLogger(cfg, os.Stdout)
	flushSentry := bootstrap.InitSentry(cfg, logger)
	defer flushSentry()

	// Schema first, so nothing below sees a stale database.
	runner := migration.NewRunner(cfg.MigrationsPath, cfg.DatabaseURL, migration.DefaultEngine, logger)
	if err := runner.Up(); err != nil {
		logger.Error("failed to apply migrations", "error", bootstrap.SanitizeError(err, cfg.DatabaseURL))
		return err
	}

	repo, err := bootstrap.OpenRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", bootstrap.SanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", bootstrap.RedactURL(cfg.RedisURL)),
		)
		return err
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	recorder := metrics.NewInMemory()

	// Rendering
	var archiver render.Archiver
	if cfg.ArchiveEnabled() {
		s3Archiver, err := render.NewS3Archiver(ctx, render.S3Config{
			Bucket:    cfg.PDFS3Bucket,
			Region:    cfg.PDFS3Region,
			Endpoint:  cfg.PDFS3Endpoint,
			AccessKey: cfg.PDFS3AccessKey,
			SecretKey: cfg.PDFS3SecretKey,
		})
		if err != nil {
			return err
		}
		archiver = s3Archiver
		logger.Info("care plan archive enabled", "bucket", cfg.PDFS3Bucket)
	}
	renderer := render.NewRenderer(cfg.PDFDir, archiver, logger, recorder)
	if err := renderer.EnsureDir(); err != nil {
		return err
	}

	// Email pipeline
	notifier := bootstrap.NewNotifier(cfg, logger, recorder)
	publisher := notify.NewPublisher(cacheClient.Client(), notifier, logger, recorder)
	worker := notify.NewWorker(cacheClient.Client(), notifier, logger, notify.NewConsumerID(), recorder)

	// Reminders
	scheduler := reminder.NewScheduler(repo, notifier, logger, recorder)

	// Services
	generator := careplan.NewClient(careplan.Config{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
	}, nil, logger)
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; survey submissions will return an error plan")
	}
	accounts := service.NewAccountService(repo, cacheClient, cfg.SessionTTL, logger, recorder)
	plans := service.NewCarePlanService(generator, repo, renderer, publisher, logger, recorder)

	// Handlers
	pages, err := handler.LoadPages(logger)
	if err != nil {
		return err
	}
	h := handler.New(handler.Config{
		Accounts:      accounts,
		CarePlans:     plans,
		Pages:         pages,
		Logger:        logger,
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: !cfg.IsDevelopment(),
	})
	health := handler.NewHealthHandler().
		Register("postgres", repo).
		Register("redis", cacheClient).
		Register("pdf_dir", handler.DirCheck(cfg.PDFDir))

	r := server.NewRouter(server.RouterConfig{
		Logger:   logger,
		Pages:    h,
		Health:   health,
		Metrics:  handler.NewMetricsHandler(recorder),
		Sessions: cacheClient,
		LoginRateLimit: middleware.RateLimitConfig{
			Limiter: cacheClient,
			Enabled: cfg.LoginRateLimitEnabled,
			RPS:     cfg.LoginRateLimitRPS,
			Burst:   cfg.LoginRateLimitBurst,
		},
		PDFDir:        cfg.PDFDir,
		MaxBodySize:   cfg.MaxRequestBodySize,
		IsDevelopment: cfg.IsDevelopment(),
	})

	srv := server.New(r, server.Options{
		Host:            cfg.AppHost,
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Background components, stopped in reverse order after the HTTP server.
	srv.OnShutdown("notify.publisher", publisher.Shutdown)

	go func() {
		if err := worker.Run(ctx); err != nil {
			logger.Error("email worker exited", "error", err)
		}
	}()
	srv.OnShutdown("notify.worker", worker.Shutdown)

	if err := scheduler.Start(); err != nil {
		return err
	}
	srv.OnShutdown("reminder.scheduler", scheduler.Shutdown)

	logger.Info("starting server",
		"host", cfg.AppHost,
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
	)

	return srv.Run(ctx)
}

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/api"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/auth"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/config"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/database"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/export"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/storage"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("api bootstrapped",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
		slog.String("pdf_engine", cfg.Export.PDFEngine),
		slog.String("layout_surface", cfg.Layout.Surface),
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	logger.Info("database migrated")

	verifier, err := auth.NewTokenVerifierFromConfig(cfg.Auth)
	if err != nil {
		log.Fatalf("init token verifier: %v", err)
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	builtin, err := style.NewBuiltinRegistry()
	if err != nil {
		log.Fatalf("load builtin templates: %v", err)
	}
	userTemplates := style.NewGormRegistry(db)
	registry := style.Chain{builtin, userTemplates}

	exporter, err := export.NewFromConfig(registry, logger, cfg)
	if err != nil {
		log.Fatalf("init export service: %v", err)
	}

	repo := database.NewCVRepository(db)
	origins := cfg.API.AllowedOrigins

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Handlers{
		CV:        api.NewCVHandler(repo, asynqClient, storageClient, redisClient, exporter, cfg.API.ExportsPerHour),
		Export:    api.NewExportHandler(exporter),
		Templates: api.NewTemplateHandler(style.Catalogs{builtin, userTemplates}, registry),
		Canvas:    api.NewCanvasHandler(repo, registry, verifier, logger, origins),
		Ws:        api.NewWsHandler(redisClient, verifier, logger, origins),
	}, verifier)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}

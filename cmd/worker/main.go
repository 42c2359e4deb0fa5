package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/config"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/database"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/export"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/metrics"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/storage"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/tasks"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	logger.Info("database connection ready for worker")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	builtin, err := style.NewBuiltinRegistry()
	if err != nil {
		log.Fatalf("load builtin templates: %v", err)
	}
	exporter, err := export.NewFromConfig(style.Chain{builtin, style.NewGormRegistry(db)}, logger, cfg)
	if err != nil {
		log.Fatalf("init export service: %v", err)
	}

	server := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
	})

	exportHandler := worker.NewExportTaskHandler(database.NewCVRepository(db), storageClient, redisClient, exporter, logger)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeCVExport, exportHandler)

	logger.Info("worker service started",
		slog.String("redis_addr", redisAddr),
		slog.Int("concurrency", cfg.Worker.Concurrency),
		slog.String("pdf_engine", cfg.Export.PDFEngine),
	)
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}

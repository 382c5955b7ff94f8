// Package main runs the broadcast session HTTP server with WebSocket fan-out and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sportcast/backend/config"
	"github.com/sportcast/backend/internal/realtime"
	"github.com/sportcast/backend/internal/subscriptions"
	"github.com/sportcast/backend/internal/worker"
	"github.com/sportcast/backend/pkg/database"
	"github.com/sportcast/backend/pkg/queue"
	"github.com/sportcast/backend/pkg/redis"
	"github.com/sportcast/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	d := deps{cfg: cfg, logger: logger}

	if cfg.Database.InMemory() {
		logger.Warn("using in-memory store; data is lost on restart")
		d.stores = memoryStores()
	} else {
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()

		if _, err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		d.stores = postgresStores(pool)
	}

	// Redis carries cross-instance events and reconcile jobs; without it the server runs single-instance.
	var jobQueue *queue.Queue
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis unavailable; event bridge and reconcile jobs disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		d.bridge = realtime.NewRedisBridge(rdb.Client, logger)
		jobQueue = queue.NewQueue(rdb.Client, logger)
		d.reconcile = jobQueue
		d.jobs = jobQueue
	}

	if cfg.AWS.Region != "" && cfg.AWS.ThumbnailsBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ThumbnailsBucket:     cfg.AWS.ThumbnailsBucket,
			CDNBaseURL:           cfg.AWS.CDNBaseURL,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			d.thumbnails = s3Client
		}
	}

	if cfg.Billing.APIURL != "" {
		d.billing = subscriptions.NewHTTPProvider(cfg.Billing.APIURL, cfg.Billing.APIKey)
	}

	a := newApp(d)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      a.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	go func() {
		if err := a.bus.Run(bgCtx); err != nil && bgCtx.Err() == nil {
			logger.Error("event bus bridge stopped", zap.Error(err))
		}
	}()

	// Background worker (analytics reconcile)
	if jobQueue != nil && cfg.Worker.InProcess {
		processor := worker.NewAnalyticsProcessor(a.aggregator, jobQueue, logger)
		go processor.Run(bgCtx)
		logger.Info("analytics worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("store", d.stores.driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	bgCancel()
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

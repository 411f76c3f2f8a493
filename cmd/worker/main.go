package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/personal-site/adapters/event"
	"github.com/khoahotran/personal-site/adapters/persistence"
	"github.com/khoahotran/personal-site/internal/config"
	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/pkg/logger"
	"github.com/khoahotran/personal-site/pkg/tracing"
)

// The worker keeps the shared Redis view cache in step with content edits
// made from any console process.
func main() {
	fmt.Println("Starting site cache worker...")

	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: cannot load config: %v", err)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatalf("FATAL: KAFKA_BROKERS is required")
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownTracing, err := tracing.Setup(cfg, appLogger, "personal-site-worker")
	if err != nil {
		appLogger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer shutdownTracing(context.Background())
	}

	// Redis
	redisClient, err := persistence.NewRedisClient(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("FATAL: cannot connect Redis: %v", err)
	}
	defer redisClient.Close()
	views := persistence.NewRedisViewCache(redisClient, cfg.Site.CacheTTL)

	// Kafka Consumer
	consumer := event.NewContentChangeConsumer(cfg, appLogger)
	defer consumer.Close()

	appLogger.Info("Worker listening for content changes", zap.String("group", cfg.Kafka.GroupID))
	tracer := otel.Tracer("cache_worker")
	err = consumer.Run(ctx, func(ctx context.Context, change domain.ContentChange) error {
		ctx, span := tracer.Start(ctx, "invalidate "+change.Collection)
		defer span.End()
		span.SetAttributes(attribute.String("content.action", string(change.Action)))

		appLogger.Info("Invalidating views",
			zap.String("collection", change.Collection),
			zap.String("action", string(change.Action)),
			zap.Strings("ids", change.IDs))
		return views.DeletePrefix(ctx, change.Collection)
	})
	if err != nil {
		appLogger.Fatal("Consumer stopped", err)
	}
	appLogger.Info("Worker stopped")
}

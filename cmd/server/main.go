package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/khoahotran/personal-site/adapters/api"
	"github.com/khoahotran/personal-site/adapters/event"
	httpAdapter "github.com/khoahotran/personal-site/adapters/http"
	"github.com/khoahotran/personal-site/adapters/persistence"
	"github.com/khoahotran/personal-site/internal/application/usecase/site"
	"github.com/khoahotran/personal-site/internal/config"
	"github.com/khoahotran/personal-site/internal/console"
	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/internal/session"
	"github.com/khoahotran/personal-site/pkg/logger"
	"github.com/khoahotran/personal-site/pkg/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()
	appLogger.Info("Start personal site console server...", zap.String("api", cfg.API.BaseURL))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownTracing, err := tracing.Setup(cfg, appLogger, "personal-site-server")
	if err != nil {
		appLogger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer shutdownTracing(context.Background())
	}

	// Redis is optional; without it tokens and views live in process memory.
	var redisClient *redis.Client
	redisClient, err = persistence.NewRedisClient(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Warn("Redis unavailable, using in-memory session and view cache", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var tokens console.TokenStoreFactory
	var shared *persistence.RedisViewCache
	if redisClient != nil {
		tokens = func(id string) session.TokenStore {
			return persistence.NewRedisTokenStore(redisClient, id, cfg.Session.TTL)
		}
		shared = persistence.NewRedisViewCache(redisClient, cfg.Site.CacheTTL)
	} else {
		tokens = session.NewMemoryStores().For
	}
	viewCache := persistence.NewLayeredViewCache(persistence.NewMemoryViewCache(cfg.Site.MemoryTTL), shared)

	// Public site
	siteClient, err := api.NewClient(cfg, nil, appLogger)
	if err != nil {
		appLogger.Fatal("cannot create API client", err)
	}
	siteUseCase := site.NewSiteUseCase(site.NewSources(siteClient), viewCache, cfg, appLogger)

	// Content changes: drop this process's views now, tell the other processes through Kafka.
	publishers := event.Fanout{event.PublisherFunc(func(ctx context.Context, change domain.ContentChange) error {
		return siteUseCase.Invalidate(ctx, change)
	})}
	kafkaClient, err := event.NewKafkaProducerClient(cfg, appLogger)
	if err != nil {
		appLogger.Warn("Kafka disabled", zap.Error(err))
	} else {
		defer kafkaClient.Close()
		publishers = append(publishers, kafkaClient)
	}

	registry := console.NewRegistry(console.Deps{
		Config:    cfg,
		Publisher: publishers,
		Logger:    appLogger,
	}, tokens)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		Config:   cfg,
		Site:     siteUseCase,
		Registry: registry,
		Logger:   appLogger,
	})

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{httpAdapter.HeaderRequestID},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Cannot run server", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}
}

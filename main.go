package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"micro-timeline/config"
	"micro-timeline/httpapi"
	"micro-timeline/microblog"
	"micro-timeline/microblog/gormimpl"
	"micro-timeline/microblog/inmemoryimpl"
	"micro-timeline/microblog/mongoimpl"
	"micro-timeline/microblog/redisimpl"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newLogger(development bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("failed to initialize zap logger: %v", err)
	}
	return logger
}

func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (microblog.Store, func()) {
	switch cfg.StorageMode {
	case config.ModeMongo, config.ModeCached:
		store, err := mongoimpl.NewMongoStore(ctx, cfg.MongoURL, cfg.MongoDBName)
		if err != nil {
			logger.Fatal("failed to open mongo store", zap.Error(err))
		}
		return store, func() { _ = store.Close(context.Background()) }
	case config.ModeMySQL, config.ModeCachedMySQL:
		store, err := gormimpl.OpenMySQL(cfg.MySQLDSN)
		if err != nil {
			logger.Fatal("failed to open mysql store", zap.Error(err))
		}
		return store, func() { _ = store.Close() }
	case config.ModeInMemory:
		return inmemoryimpl.NewInMemoryStore(), func() {}
	default:
		logger.Fatal("unknown storage mode", zap.String("mode", cfg.StorageMode))
		return nil, nil
	}
}

func main() {
	cfg := config.Load(nil)
	logger := newLogger(cfg.LogDevelopment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := newStore(ctx, cfg, logger)
	defer closeStore()

	var timeline microblog.Timeline
	if cfg.StorageMode == config.ModeInMemory {
		timeline = inmemoryimpl.NewInMemoryTimeline(cfg.TimelineCapacity, logger)
	} else {
		redisClient := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisURL,
			DialTimeout:  cfg.RedisTimeout,
			ReadTimeout:  cfg.RedisTimeout,
			WriteTimeout: cfg.RedisTimeout,
		})
		defer redisClient.Close()

		timeline = redisimpl.NewRedisTimeline(redisClient,
			redisimpl.WithKey(cfg.TimelineKey),
			redisimpl.WithCapacity(cfg.TimelineCapacity),
			redisimpl.WithOpTimeout(cfg.RedisTimeout),
			redisimpl.WithTimelineLogger(logger),
		)
		if cfg.StorageMode == config.ModeCached || cfg.StorageMode == config.ModeCachedMySQL {
			store = redisimpl.NewCachedStore(redisClient, store, cfg.PostCacheTTL, logger)
		}
	}

	manager := microblog.NewTimelineManager(store, timeline,
		microblog.WithLogger(logger),
		microblog.WithPageLimits(cfg.DefaultLimit, cfg.MaxLimit),
	)

	srv := httpapi.NewServer(manager, cfg.HTTPAddr, logger)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", zap.String("addr", cfg.HTTPAddr), zap.String("storage_mode", cfg.StorageMode))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}

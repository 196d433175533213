package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"genai-gateway/config"
	"genai-gateway/gateway"
	"genai-gateway/gateway/response"
	"genai-gateway/gateway/upstream"
	"genai-gateway/middleware/ratelimit"
	"genai-gateway/middleware/ratelimit/application"
	"genai-gateway/middleware/ratelimit/domain"
	"genai-gateway/middleware/ratelimit/infra"
	"genai-gateway/server"
	"genai-gateway/telemetry/logging"
	"genai-gateway/telemetry/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("gateway stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(nil)

	store := infra.NewStore(cfg.Rate.MaxRequests, cfg.Rate.Window,
		infra.WithCleanupEvery(cfg.Rate.CleanupEvery),
		infra.WithSweepHook(collector.SetTrackedIdentities),
	)
	store.StartJanitor(ctx)

	var redisStats domain.StatsStore
	if cfg.Rate.Stats.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Rate.Stats.RedisAddr,
			Password: cfg.Rate.Stats.RedisPassword,
			DB:       cfg.Rate.Stats.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		pingCancel()
		if err != nil {
			return fmt.Errorf("redis stats ping: %w", err)
		}

		redisStats = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.Rate.Stats.Prefix),
			infra.WithStatsTTL(cfg.Rate.Stats.TTL),
			infra.WithStatsBucket(cfg.Rate.Stats.Bucket),
			infra.WithStatsTrackKeys(cfg.Rate.Stats.TrackKeys),
		)
	}

	tr, err := response.NewTranslator(cfg.Gateway.Locale, cfg.Rate.Window)
	if err != nil {
		return err
	}

	var slots application.ConcurrencyService
	if cfg.Concurrency.Max > 0 {
		slots = application.ConcurrencyService{
			Pool:           infra.NewChanPool(cfg.Concurrency.Max),
			AcquireTimeout: cfg.Concurrency.Timeout,
		}
	}

	client := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Model, cfg.Upstream.Timeout)
	gw := &gateway.Handler{
		Upstream:     client,
		Credential:   cfg.APIKey,
		Translator:   tr,
		Slots:        slots,
		MaxBodyBytes: cfg.Gateway.MaxBodyBytes,
		Logger:       logger,
		Observer:     collector,
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = collector.Handler()
	}

	srv := server.New(server.Options{
		Addr:        cfg.ListenAddr,
		GatewayPath: cfg.Gateway.Path,
		Gateway:     gw,
		Translator:  tr,
		RateLimit: ratelimit.Options{
			Store:               store,
			Stats:               infra.NewMultiStatsStore(collector, redisStats),
			KeyHeaders:          cfg.Rate.KeyHeaders,
			UseRemoteAddr:       cfg.Rate.KeyRemoteAddr,
			AddRateLimitHeaders: cfg.Rate.AddHeaders,
			LogEvery:            cfg.Rate.LogEvery,
			Logger:              logger,
		},
		Metrics:     metricsHandler,
		MetricsPath: cfg.Metrics.Path,
		Logger:      logger,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if cfg.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set: every gateway request will fail with 500 until it is configured")
	}
	logger.Info("gateway configured",
		zap.String("path", cfg.Gateway.Path),
		zap.String("upstream", upstream.RedactURL(client.Endpoint(cfg.APIKey))),
		zap.Duration("upstream_timeout", cfg.Upstream.Timeout),
		zap.String("locale", cfg.Gateway.Locale))
	logger.Info("rate limit configured",
		zap.Int("max_requests", cfg.Rate.MaxRequests),
		zap.Duration("window", cfg.Rate.Window),
		zap.Strings("key_headers", cfg.Rate.KeyHeaders),
		zap.Bool("key_remote_addr", cfg.Rate.KeyRemoteAddr),
		zap.Duration("cleanup_every", cfg.Rate.CleanupEvery))
	logger.Info("rate stats configured",
		zap.Bool("enabled", cfg.Rate.Stats.Enabled),
		zap.String("redis_addr", cfg.Rate.Stats.RedisAddr),
		zap.String("bucket", cfg.Rate.Stats.Bucket),
		zap.Duration("ttl", cfg.Rate.Stats.TTL),
		zap.Bool("track_keys", cfg.Rate.Stats.TrackKeys))
	logger.Info("concurrency configured",
		zap.Int("max", cfg.Concurrency.Max),
		zap.Duration("acquire_timeout", cfg.Concurrency.Timeout))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

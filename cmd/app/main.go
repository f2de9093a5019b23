// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-learning-backend/internal/config"
	"ai-learning-backend/internal/domain/ports/adapter"
	"ai-learning-backend/internal/domain/ports/repository"
	aiAdapters "ai-learning-backend/internal/infra/adapters/ai"
	"ai-learning-backend/internal/infra/cache"
	"ai-learning-backend/internal/infra/db/memory"
	pg "ai-learning-backend/internal/infra/db/postgres"
	"ai-learning-backend/internal/infra/logging"
	"ai-learning-backend/internal/infra/metrics"
	"ai-learning-backend/internal/infra/ratelimit"
	red "ai-learning-backend/internal/infra/redis"
	"ai-learning-backend/internal/infra/retry"
	"ai-learning-backend/internal/infra/sched"
	"ai-learning-backend/internal/infra/web"
	"ai-learning-backend/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (in-memory store, canned generator)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}
	metrics.MustRegister()

	// ---- Subscription store ----
	var subRepo repository.SubscriptionRepository
	if cfg.Database.URL != "" {
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		subRepo = pg.NewSubscriptionRepo(pool)
	} else if cfg.Runtime.Dev {
		subRepo = memory.NewSubscriptionRepo()
		logger.Warn().Msg("using in-memory subscription store")
	} else {
		log.Fatalf("database.url is required outside dev mode")
	}

	// ---- Rate limiter (shared via Redis when configured) ----
	rlCfg := ratelimit.Config{MaxRequests: cfg.RateLimit.MaxRequests, Window: cfg.RateLimit.Window.Std()}
	localLimiter := ratelimit.NewFixedWindowLimiter(rlCfg)
	var limiter usecase.RateLimiter = localLimiter
	sweepTargets := []sched.Target{{Name: "rate_limiter", Sweeper: localLimiter}}
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient, rlCfg)
		sweepTargets = sweepTargets[:0] // Redis expires its own keys
	}

	// ---- Content cache ----
	contentCache := cache.New(cfg.Cache.TTL.Std(), cfg.Cache.MaxEntries)
	sweepTargets = append(sweepTargets, sched.Target{Name: "content_cache", Sweeper: contentCache})

	// ---- AI adapter (Gemini -> OpenAI -> canned in dev) ----
	var gen adapter.TextGenerator
	switch {
	case cfg.AI.GeminiKey != "":
		gen, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
		if err != nil {
			log.Fatalf("gemini adapter: %v", err)
		}
	case cfg.AI.OpenAIKey != "":
		gen, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			log.Fatalf("openai adapter: %v", err)
		}
	case cfg.Runtime.Dev:
		gen = aiAdapters.NewNoopAdapter()
		logger.Warn().Msg("no AI provider configured, using canned generator")
	default:
		log.Fatalf("no AI provider configured: set ai.gemini_key or ai.openai_key in %s", *cfgPath)
	}
	gen = aiAdapters.NewLimitedGenerator(gen, cfg.AI.ConcurrentLimit)
	logger.Info().Str("provider", gen.Name()).Str("model", cfg.AI.DefaultModel).Msg("AI adapter ready")

	// ---- Use cases ----
	usageUC := usecase.NewUsageUseCase(subRepo, logger)
	recorder := metrics.NewRecorder(0)
	retryCfg := retry.Config{
		MaxAttempts:       cfg.Retry.MaxAttempts,
		Delay:             cfg.Retry.Delay.Std(),
		BackoffMultiplier: cfg.Retry.BackoffMultiplier,
	}
	generationUC := usecase.NewGenerationUseCase(usageUC, limiter, contentCache, recorder, gen, retryCfg, logger)

	// ---- Background sweeper ----
	sweeper := sched.NewSweepWorker(cfg.Cache.SweepInterval.Std(), logger, sweepTargets...)
	go sweeper.Run(ctx)

	// ---- HTTP server ----
	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		logger.Warn().Msg("auth.jwt_secret not set, using dev secret (INSECURE)")
		jwtSecret = "dev-secret"
	}
	auth := web.NewAuthManager(jwtSecret, 24*time.Hour)
	server := web.NewServer(cfg.Server.Port, auth, generationUC, usageUC, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}

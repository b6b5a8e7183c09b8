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

	"golang.org/x/sync/errgroup"

	"publisher/domain/model"
	"publisher/domain/repository"
	"publisher/infrastructure/cache"
	"publisher/infrastructure/circuitbreaker"
	"publisher/infrastructure/clients/platform"
	"publisher/infrastructure/configuration"
	"publisher/infrastructure/logger"
	"publisher/infrastructure/persistence"
	"publisher/infrastructure/queue"
	"publisher/infrastructure/ratelimit"
	"publisher/infrastructure/realtime"
	httpHandler "publisher/interfaces/http"
	"publisher/server"
	"publisher/usecase"
)

// tokenSweepInterval is how often the background sweep looks for accounts
// whose access token is about to expire.
const tokenSweepInterval = 5 * time.Minute

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Env files are non-destructive; OS env keeps precedence.
	configuration.LoadEnvFromFile("config.env", ".env")
	app := configuration.C.App

	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL")
		os.Exit(1)
	}
	defer db.Close()
	if err := persistence.EnsureSchema(db); err != nil {
		logger.GetLogger().WithField("error", err).Error("Failed ensuring database schema")
		os.Exit(1)
	}
	logger.GetLogger().Info("Database connected.")

	// Rate-limit windows and circuit state live in redis so they survive
	// restarts and are shared across instances; without redis they fall back
	// to process memory.
	var store cache.Store
	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().Warn("Redis not available - rate limit and circuit state held in memory")
		store = cache.NewMemoryStore()
	} else {
		logger.GetLogger().Info("Redis client initialized successfully.")
		store = cache.NewRedisStore(redisClient)
	}

	limiter := ratelimit.NewRateLimiter(store)
	breaker := circuitbreaker.NewCircuitBreaker(store)
	adapters := repository.AdapterRegistry{
		model.PlatformTikTok:    platform.NewTikTokAdapter(limiter, breaker),
		model.PlatformInstagram: platform.NewInstagramAdapter(limiter, breaker),
		model.PlatformYouTube:   platform.NewYouTubeAdapter(limiter, breaker),
	}

	contentRepository := persistence.NewContentRepository(db)
	accountRepository := persistence.NewAccountRepository(db)
	publicationRepository := persistence.NewPublicationRepository(db)
	scheduledJobRepository := persistence.NewScheduledJobRepository(db)
	userRepository := persistence.NewUserRepository(db)

	qc := configuration.C.Queue
	queueManager := queue.NewManager(qc.DeadLetterCap)
	queueOpts := queue.Options{
		Concurrency:  qc.Concurrency,
		StartsPerSec: qc.StartsPerSec,
		RetryBase:    time.Duration(qc.RetryBaseMs) * time.Millisecond,
		RetryMax:     time.Duration(qc.RetryMaxMs) * time.Millisecond,
	}
	publishQueue := queueManager.Register(queue.QueuePublish, queueOpts)
	analyticsQueue := queueManager.Register(queue.QueueAnalytics, queueOpts)
	tokenRefreshQueue := queueManager.Register(queue.QueueTokenRefresh, queueOpts)

	publishHub := realtime.NewPublishHub()
	tokenResolver := usecase.NewTokenUsecase(accountRepository, usecase.StaticTokenRefresher{})
	optimizer := usecase.NewContentOptimizer()
	analyticsUsecase := usecase.NewAnalyticsUsecase(
		publicationRepository, accountRepository, adapters, tokenResolver,
		queue.NewDelayQueue(analyticsQueue),
	)

	// Every publish event reaches the SSE hub and the analytics feeder.
	events := repository.SinkGroup{publishHub, analyticsUsecase}

	pc := configuration.C.Publishing
	publishingUsecase := usecase.NewPublishingUsecase(
		contentRepository, accountRepository, publicationRepository,
		adapters, optimizer, tokenResolver, events,
		time.Duration(pc.RollbackWindowSec)*time.Second,
	)
	schedulerUsecase := usecase.NewSchedulerUsecase(
		scheduledJobRepository, contentRepository, accountRepository, publicationRepository,
		queue.NewDelayQueue(publishQueue), publishingUsecase,
		usecase.SchedulerLimits{
			MaxScheduleDays: pc.MaxScheduleDays,
			BulkCap:         pc.BulkScheduleCap,
			UserJobLimit:    pc.UserJobLimit,
		},
	)
	tokenRefreshWorker := usecase.NewTokenRefreshWorker(
		accountRepository, tokenResolver, queue.NewDelayQueue(tokenRefreshQueue),
	)

	publishQueue.RetryHook = schedulerUsecase.OnRetry
	publishQueue.DeadLetterHook = schedulerUsecase.OnDeadLetter
	publishQueue.Process(ctx, schedulerUsecase.ProcessScheduledJob)
	analyticsQueue.Process(ctx, analyticsUsecase.ProcessAnalyticsJob)
	tokenRefreshQueue.Process(ctx, tokenRefreshWorker.ProcessTokenRefreshJob)

	g.Go(func() error {
		ticker := time.NewTicker(tokenSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				sweepCtx, cancelSweep := context.WithTimeout(ctx, 30*time.Second)
				if err := tokenRefreshWorker.EnqueueDue(sweepCtx); err != nil {
					logger.GetLogger().WithField("error", err).Warn("token refresh sweep failed")
				}
				cancelSweep()
			}
		}
	})

	router := server.InitiateRouter(
		httpHandler.NewUserHandler(usecase.NewUserUsecase(userRepository)),
		httpHandler.NewPublishHandler(publishingUsecase),
		httpHandler.NewScheduleHandler(schedulerUsecase),
		httpHandler.NewMetricsHandler(usecase.NewQueueMetricsUsecase(queueManager)),
		publishHub,
		userRepository,
	)

	logger.GetLogger().WithField("port", app.Port).Info("Starting application")
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", app.Port),
		Handler: router,
	}
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	queueManager.Stop()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

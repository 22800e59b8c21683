package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/clinsim/clinsim/internal/app"
	"github.com/clinsim/clinsim/internal/audit"
	"github.com/clinsim/clinsim/internal/auth"
	"github.com/clinsim/clinsim/internal/guard"
	"github.com/clinsim/clinsim/internal/observability"
	"github.com/clinsim/clinsim/internal/policy"
	"github.com/clinsim/clinsim/internal/principal"
	"github.com/clinsim/clinsim/internal/ratelimit"
	"github.com/clinsim/clinsim/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	// Sink chain: decisions counted, then written either inline to Postgres
	// or through the queue worker, always behind the async wrapper so audit
	// latency never reaches the request path.
	var persistent audit.Sink = audit.NewPostgresSink(dbpool)
	var asynqClient *asynq.Client
	if cfg.AuditQueue {
		asynqClient = asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := asynqClient.Close(); err != nil {
				logger.Warn("asynq close", slog.Any("error", err))
			}
		}()
		persistent = audit.NewQueueSink(asynqClient)
	}
	sink := audit.NewAsyncSink(observability.NewDecisionSink(persistent, metrics), logger, cfg.AuditAsyncTimeout)
	defer sink.Drain()

	codec := principal.NewTokenCodec(cfg.AuthSecret, cfg.AuthTokenTTL)
	store := principal.NewPostgresStore(dbpool)
	resolver := principal.NewResolver(principal.ResolverConfig{
		Codec:       codec,
		Store:       store,
		Sink:        sink,
		Logger:      logger,
		ServiceKeys: cfg.ServiceKeyMap(),
	})
	evaluator := policy.NewEvaluator(policy.DefaultGrants(), sink, logger)
	routeGuard := guard.Guard{Resolver: resolver, Evaluator: evaluator, Logger: logger}

	limiter := ratelimit.NewLimiter(
		ratelimit.NewRedisCounterStore(redisClient),
		cfg.RateLimitPerMinute,
		time.Minute,
		logger,
	)

	authService := auth.NewService(auth.NewRepository(dbpool), codec, sink, logger)
	authHandler := auth.NewHandler(logger, authService)
	usersHandler := users.NewHandler(logger, store)
	auditService := audit.NewService(audit.NewPostgresRepository(dbpool))
	auditHandler := audit.NewHandler(logger, auditService)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		Guard:        routeGuard,
		AuthHandler:  authHandler,
		UsersHandler: usersHandler,
		AuditHandler: auditHandler,
		Limiter:      limiter,
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppRequestTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinsim/clinsim/internal/app"
	"github.com/clinsim/clinsim/internal/audit"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				audit.QueueDefault: 1,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(audit.TaskTypeRecord, audit.RecordHandler(audit.NewPostgresSink(pool)))

	logger.Info("audit worker starting")
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(mux)
	}()

	select {
	case <-ctx.Done():
		server.Shutdown()
		logger.Info("audit worker stopped")
	case err := <-errCh:
		if err != nil {
			logger.Error("worker run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}

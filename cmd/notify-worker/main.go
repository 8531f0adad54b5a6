package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/medibook/booking-engine/internal/config"
	"github.com/medibook/booking-engine/internal/logging"
	"github.com/medibook/booking-engine/internal/notify"
	redisclient "github.com/medibook/booking-engine/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("notify-worker", "dev")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New("notify-worker", cfg.Env)
	logger.Info().
		Str("env", cfg.Env).
		Str("queue", cfg.NotifyQueueKey).
		Msg("notify-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	queue := redisclient.NewQueue(rdb, cfg.NotifyQueueKey)
	sender := notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)

	drain(rootCtx, logger, queue, sender, cfg)

	logger.Info().Msg("shutdown signal received, stopping notify worker")
}

func drain(ctx context.Context, logger zerolog.Logger, queue *redisclient.Queue, sender *notify.SMTPSender, cfg config.Config) {
	for {
		if ctx.Err() != nil {
			return
		}

		raw, err := queue.Pop(ctx, cfg.WorkerPoll)
		if err != nil {
			if errors.Is(err, redisclient.ErrQueueEmpty) || errors.Is(err, context.Canceled) {
				continue
			}
			logger.Error().Err(err).Msg("queue pop error")
			continue
		}

		// Delivery is best effort; a failed send is logged and dropped,
		// the booking or cancellation it belongs to stays committed.
		if err := sender.Send(raw); err != nil {
			logger.Error().Err(err).Msg("notification send failed")
			continue
		}

		logger.Info().Msg("notification sent")
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/studio-booking-backend/internal/app"
	"github.com/nekogravitycat/studio-booking-backend/internal/config"
	"github.com/nekogravitycat/studio-booking-backend/internal/notify"
	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/logging"
)

// notifier drains the notification queue and sends WhatsApp messages.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.IsProduction, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.RabbitMQURL == "" {
		logger.Fatal("RABBITMQ_URL is required")
	}

	whatsapp := app.NewWhatsAppNotifier(cfg, logger, nil)

	backoff := time.Second
	for ctx.Err() == nil {
		consumer, err := notify.NewQueueConsumer(cfg.RabbitMQURL, cfg.NotifyQueue, cfg.NotifyPrefetch, whatsapp, logger)
		if err != nil {
			logger.Warn("failed to connect to broker", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumer.Run(ctx)
		_ = consumer.Close()
		if err != nil {
			logger.Warn("consumer stopped, reconnecting", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(2 * time.Second):
			}
		}
	}

	logger.Info("notifier exited")
}

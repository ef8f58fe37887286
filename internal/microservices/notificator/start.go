package notificator

import (
	"context"
	"fmt"
	"time"

	"restaurant-automation/internal/common/config"
	"restaurant-automation/internal/common/logger"
	"restaurant-automation/internal/connections/rabbitmq"
	"restaurant-automation/internal/microservices/notificator/service"
)

// Run drains notifications.q until ctx is cancelled.
func Run(ctx context.Context, cfg config.RabbitMQConfig, prefetch int, log *logger.Logger) error {
	mq, err := rabbitmq.DialWithRetry(ctx, cfg, 2*time.Second)
	if err != nil {
		return err
	}
	defer func() { _ = mq.Close() }()
	if err := mq.DeclareTopology(); err != nil {
		return fmt.Errorf("declare topology: %w", err)
	}
	log.Info("rabbitmq_connected", map[string]any{"host": cfg.Host})
	return service.NewSubscriber(mq, log, prefetch).Run(ctx)
}

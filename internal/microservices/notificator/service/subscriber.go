package service

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-automation/internal/common/logger"
	"restaurant-automation/internal/connections/rabbitmq"
	"restaurant-automation/internal/domain"
)

// Consumer opens a delivery stream; *rabbitmq.Client implements it.
type Consumer interface {
	Consume(ctx context.Context, queue, consumer string, prefetch int) (<-chan amqp.Delivery, error)
}

// Subscriber stands in for the outbound channel gateways: it drains
// notifications.q and logs each delivery.
type Subscriber struct {
	consumer Consumer
	log      *logger.Logger
	queue    string
	prefetch int
}

func NewSubscriber(consumer Consumer, log *logger.Logger, prefetch int) *Subscriber {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &Subscriber{consumer: consumer, log: log, queue: rabbitmq.QueueNotifications, prefetch: prefetch}
}

func (s *Subscriber) Run(ctx context.Context) error {
	msgs, err := s.consumer.Consume(ctx, s.queue, "notification-subscriber", s.prefetch)
	if err != nil {
		return fmt.Errorf("consume %s: %w", s.queue, err)
	}
	s.log.Info("subscriber_started", map[string]any{"queue": s.queue, "prefetch": s.prefetch})

	for {
		select {
		case <-ctx.Done():
			s.log.Info("graceful_shutdown", map[string]any{"queue": s.queue})
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			out := rabbitmq.Settle(d, s.handle(d))
			if out == rabbitmq.SettleError {
				s.log.Warn("delivery_settle_failed", map[string]any{"message_id": d.MessageId})
			}
		}
	}
}

func (s *Subscriber) handle(d amqp.Delivery) error {
	var msg domain.NotificationMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		s.log.Error("notification_malformed", err, map[string]any{"message_id": d.MessageId})
		return fmt.Errorf("%w: %v", rabbitmq.ErrDLQ, err)
	}
	if msg.OrderNumber == "" || msg.Channel == "" {
		s.log.Warn("notification_incomplete", map[string]any{"message_id": d.MessageId, "routing_key": d.RoutingKey})
		return rabbitmq.ErrDLQ
	}
	s.log.Info("notification_delivered", map[string]any{
		"message_id":   d.MessageId,
		"order_number": msg.OrderNumber,
		"channel":      msg.Channel,
		"kind":         msg.Kind,
		"status":       msg.Status,
		"recipient":    msg.CustomerContact,
		"text":         msg.Text,
	})
	return nil
}

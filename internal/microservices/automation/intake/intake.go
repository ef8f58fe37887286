// Package intake turns accepted orders into automation chains. Channel parsers
// and the HTTP API announce accepted orders on orders_topic; the intake
// consumer picks them up and starts automation.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-automation/internal/common/logger"
	"restaurant-automation/internal/connections/rabbitmq"
	"restaurant-automation/internal/domain"
)

type Starter interface {
	StartAutomation(ctx context.Context, orderID uint) error
}

// Consumer opens a delivery stream; *rabbitmq.Client implements it.
type Consumer interface {
	Consume(ctx context.Context, queue, consumer string, prefetch int) (<-chan amqp.Delivery, error)
}

type IntakeServiceInterface interface {
	Run(ctx context.Context) error
}

type IntakeService struct {
	consumer Consumer
	starter  Starter
	log      *logger.Logger

	WorkerName string
	Queue      string
	Prefetch   int
}

func NewIntakeService(consumer Consumer, starter Starter, log *logger.Logger, workerName string, prefetch int) *IntakeService {
	if prefetch <= 0 {
		prefetch = 1
	}
	if strings.TrimSpace(workerName) == "" {
		workerName = "automation-intake"
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &IntakeService{
		consumer:   consumer,
		starter:    starter,
		log:        log,
		WorkerName: workerName,
		Queue:      rabbitmq.QueueKitchen,
		Prefetch:   prefetch,
	}
}

func (is *IntakeService) Run(ctx context.Context) error {
	msgs, err := is.consumer.Consume(ctx, is.Queue, is.WorkerName, is.Prefetch)
	if err != nil {
		return fmt.Errorf("consume %s: %w", is.Queue, err)
	}
	is.log.Info("intake_started", map[string]any{"queue": is.Queue, "prefetch": is.Prefetch, "worker": is.WorkerName})

	for {
		select {
		case <-ctx.Done():
			is.log.Info("graceful_shutdown", map[string]any{"worker": is.WorkerName})
			return nil
		case d, ok := <-msgs:
			if !ok {
				is.log.Warn("intake_stream_closed", map[string]any{"queue": is.Queue})
				return nil
			}
			err := is.processOne(ctx, d)
			switch rabbitmq.Settle(d, err) {
			case rabbitmq.DeadLetter:
				is.log.Warn("order_dead_lettered", map[string]any{"message_id": d.MessageId, "reason": err.Error()})
			case rabbitmq.Requeued:
				is.log.Warn("order_requeued", map[string]any{"message_id": d.MessageId, "reason": err.Error()})
			case rabbitmq.SettleError:
				is.log.Warn("delivery_settle_failed", map[string]any{"message_id": d.MessageId})
			}
		}
	}
}

func (is *IntakeService) processOne(ctx context.Context, d amqp.Delivery) error {
	var msg domain.OrderAcceptedMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		// нечитаемое сообщение, в DLQ
		return fmt.Errorf("%w: %v", rabbitmq.ErrDLQ, err)
	}
	if msg.OrderID == 0 {
		return fmt.Errorf("%w: order_id is missing", rabbitmq.ErrDLQ)
	}

	err := is.starter.StartAutomation(ctx, msg.OrderID)
	switch {
	case err == nil:
		is.log.Debug("order_accepted", map[string]any{"order_id": msg.OrderID, "order_number": msg.OrderNumber, "channel": msg.Channel})
		return nil
	case errors.Is(err, domain.ErrAutomationDisabled), errors.Is(err, domain.ErrStateConflict):
		// заказ ведут вручную или он уже ушёл дальше, повтор не нужен
		is.log.Info("order_intake_skipped", map[string]any{"order_id": msg.OrderID, "reason": err.Error()})
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%w: %v", rabbitmq.ErrDLQ, err)
	case d.Redelivered:
		// уже возвращали в очередь один раз, дальше только DLQ
		return fmt.Errorf("%w: redelivered: %v", rabbitmq.ErrDLQ, err)
	default:
		return fmt.Errorf("%w: %v", rabbitmq.ErrRequeue, err)
	}
}

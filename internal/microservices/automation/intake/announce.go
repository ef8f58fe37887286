package intake

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-automation/internal/connections/rabbitmq"
	"restaurant-automation/internal/domain"
)

// Accepter hands a freshly persisted order over to automation.
type Accepter interface {
	Accept(ctx context.Context, order domain.Order) error
}

// Direct starts automation in-process.
type Direct struct{ Starter Starter }

func (d Direct) Accept(ctx context.Context, order domain.Order) error {
	return d.Starter.StartAutomation(ctx, order.ID)
}

type Publisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte, headers amqp.Table, contentType string, persistent bool) error
}

// Announcer publishes the order on orders_topic for the intake consumer.
type Announcer struct{ Pub Publisher }

// RoutingKey is kitchen.<channel>.<priority>.
func RoutingKey(order domain.Order) string {
	p := order.Priority
	if p <= 0 {
		p = 5
	}
	return fmt.Sprintf("kitchen.%s.%d", order.Channel, p)
}

func (a Announcer) Accept(ctx context.Context, order domain.Order) error {
	body, err := json.Marshal(domain.OrderAcceptedMessage{OrderID: order.ID, OrderNumber: order.Number, Channel: order.Channel})
	if err != nil {
		return err
	}
	headers := amqp.Table{"message_id": uuid.NewString(), "x-source": "api"}
	if err := a.Pub.Publish(ctx, rabbitmq.ExchangeOrders, RoutingKey(order), body, headers, "application/json", true); err != nil {
		return fmt.Errorf("announce %s: %w", order.Number, err)
	}
	return nil
}

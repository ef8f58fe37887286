// Package adapters holds the channel adapters the notification dispatcher
// resolves by order channel. Chat, SMS and aggregator channels go out through
// the broker to their gateways; web and manual orders are pushed in-app.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-automation/internal/connections/rabbitmq"
	"restaurant-automation/internal/domain"
	"restaurant-automation/internal/microservices/notificator/service"
)

// Publisher is satisfied by *rabbitmq.Client.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte, headers amqp.Table, contentType string, persistent bool) error
}

type BrokerAdapter struct {
	pub      Publisher
	exchange string
	channel  domain.Channel
	now      func() time.Time
}

func NewBrokerAdapter(pub Publisher, exchange string, channel domain.Channel, now func() time.Time) *BrokerAdapter {
	if exchange == "" {
		exchange = rabbitmq.ExchangeNotifications
	}
	if now == nil {
		now = time.Now
	}
	return &BrokerAdapter{pub: pub, exchange: exchange, channel: channel, now: now}
}

// RoutingKey is notify.<channel>.<kind>.
func RoutingKey(ch domain.Channel, kind domain.EventKind) string {
	return fmt.Sprintf("notify.%s.%s", ch, kind)
}

func (a *BrokerAdapter) SendConfirmation(ctx context.Context, o domain.Order) error {
	return a.publish(ctx, o, domain.EventConfirmed, "", confirmationText(o), "")
}

func (a *BrokerAdapter) SendStatusUpdate(ctx context.Context, o domain.Order, s domain.OrderStatus) error {
	return a.publish(ctx, o, domain.EventStatusChanged, s, statusText(o, s), "")
}

func (a *BrokerAdapter) SendBill(ctx context.Context, o domain.Order, b domain.Bill) error {
	return a.publish(ctx, o, domain.EventBilled, domain.StatusBilled, billText(o, b), b.Total.StringFixed(2))
}

func (a *BrokerAdapter) RequestFeedback(ctx context.Context, o domain.Order) error {
	return a.publish(ctx, o, domain.EventFeedbackRequested, "", feedbackText(o), "")
}

func (a *BrokerAdapter) publish(ctx context.Context, o domain.Order, kind domain.EventKind, status domain.OrderStatus, text, total string) error {
	body, err := json.Marshal(domain.NotificationMessage{
		OrderNumber:     o.Number,
		CustomerName:    o.CustomerName,
		CustomerContact: o.CustomerContact,
		Channel:         a.channel,
		Kind:            kind,
		Status:          status,
		Text:            text,
		Total:           total,
		Timestamp:       a.now().UTC(),
	})
	if err != nil {
		return err
	}
	headers := amqp.Table{
		"message_id": uuid.NewString(),
		"x-source":   "automation",
		"x-order":    o.Number,
	}
	if err := a.pub.Publish(ctx, a.exchange, RoutingKey(a.channel, kind), body, headers, "application/json", true); err != nil {
		return fmt.Errorf("publish %s to %s: %w", kind, a.channel, err)
	}
	return nil
}

var (
	_ service.ChannelAdapter    = (*BrokerAdapter)(nil)
	_ service.FeedbackRequester = (*BrokerAdapter)(nil)
)

package rabbitmq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/multierr"

	"restaurant-automation/internal/common/config"
)

// Топология брокера.
const (
	ExchangeOrders        = "orders_topic"
	ExchangeNotifications = "notifications_topic"
	ExchangeFanout        = "notifications_fanout"
	ExchangeDLX           = "dlx"

	QueueKitchen       = "kitchen_queue"
	QueueNotifications = "notifications.q"
	QueueDLQ           = "dlq"

	// kitchen.<channel>.<priority>
	OrdersBindingKey = "kitchen.*.*"
	// notify.<channel>.<kind>
	NotificationsBindingKey = "notify.#"
)

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	acks <-chan amqp.Confirmation // для publisher confirms
	mu   sync.Mutex               // сериализуем Publish при использовании confirms
}

func (c *Client) Channel() *amqp.Channel { return c.ch }

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	var err error
	if c.ch != nil {
		err = multierr.Append(err, c.ch.Close())
	}
	if c.conn != nil && !c.conn.IsClosed() {
		err = multierr.Append(err, c.conn.Close())
	}
	return err
}

func URL(cfg config.RabbitMQConfig) string {
	vhost := cfg.VHost
	if vhost == "" || vhost == "/" {
		vhost = ""
	}
	scheme := "amqp"
	if cfg.UseTLS {
		scheme = "amqps"
	}
	return fmt.Sprintf("%s://%s:%s@%s:%d/%s", scheme, cfg.User, cfg.Password, cfg.Host, cfg.Port, vhost)
}

func Dial(cfg config.RabbitMQConfig) (*Client, error) {
	url := URL(cfg)

	var (
		conn *amqp.Connection
		err  error
	)
	if cfg.UseTLS {
		conn, err = amqp.DialTLS(url, &tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		conn, err = amqp.Dial(url)
	}
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, multierr.Append(err, conn.Close())
	}

	// Включаем publisher confirms и подписываемся на подтверждения
	if err := ch.Confirm(false); err != nil {
		return nil, multierr.Combine(err, ch.Close(), conn.Close())
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	return &Client{conn: conn, ch: ch, acks: acks}, nil
}

// DialWithRetry повторяет Dial, пока брокер не поднимется или не кончится ctx.
func DialWithRetry(ctx context.Context, cfg config.RabbitMQConfig, every time.Duration) (*Client, error) {
	for {
		c, err := Dial(cfg)
		if err == nil {
			return c, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitmq unreachable: %w", multierr.Append(err, ctx.Err()))
		case <-time.After(every):
		}
	}
}

// DeclareTopology создаёт exchange-и, очереди и биндинги. Идемпотентно.
func (c *Client) DeclareTopology() error {
	if c == nil || c.ch == nil {
		return errors.New("nil channel")
	}
	exchanges := []struct{ name, kind string }{
		{ExchangeOrders, "topic"},
		{ExchangeNotifications, "topic"},
		{ExchangeFanout, "fanout"},
		{ExchangeDLX, "direct"},
	}
	for _, ex := range exchanges {
		if err := c.ch.ExchangeDeclare(ex.name, ex.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}
	dlq := amqp.Table{
		"x-dead-letter-exchange":    ExchangeDLX,
		"x-dead-letter-routing-key": QueueDLQ,
	}
	queues := []struct {
		name string
		args amqp.Table
	}{
		{QueueKitchen, dlq},
		{QueueNotifications, dlq},
		{QueueDLQ, nil},
	}
	for _, q := range queues {
		if _, err := c.ch.QueueDeclare(q.name, true, false, false, false, q.args); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	bindings := []struct{ queue, key, exchange string }{
		{QueueKitchen, OrdersBindingKey, ExchangeOrders},
		{QueueNotifications, NotificationsBindingKey, ExchangeNotifications},
		{QueueDLQ, QueueDLQ, ExchangeDLX},
	}
	for _, b := range bindings {
		if err := c.ch.QueueBind(b.queue, b.key, b.exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

// Лёгкая health-проверка соединения
func (c *Client) Ping() error {
	if c == nil || c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// Publish публикует сообщение и ждёт ack/nack от брокера.
// Не вызывает горутинно одновременно (сериализуется mutex-ом).
func (c *Client) Publish(ctx context.Context, exchange, key string,
	body []byte, headers amqp.Table, contentType string, persistent bool) error {

	c.mu.Lock()
	defer c.mu.Unlock()

	mode := amqp.Transient
	if persistent {
		mode = amqp.Persistent
	}

	msgID, _ := headers["message_id"].(string)
	if err := c.ch.PublishWithContext(
		ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: mode,
			ContentType:  contentType,
			MessageId:    msgID,
			Timestamp:    time.Now().UTC(),
			Headers:      headers,
			Body:         body,
		},
	); err != nil {
		return err
	}

	// ждём publisher confirm или отмену контекста
	select {
	case conf := <-c.acks:
		if conf.Ack {
			return nil
		}
		return errors.New("publish NACK from broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume открывает отдельный канал с prefetch и manual ack.
// Канал закрывается вместе с ctx.
func (c *Client) Consume(ctx context.Context, queue, consumer string, prefetch int) (<-chan amqp.Delivery, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, multierr.Append(err, ch.Close())
	}
	msgs, err := ch.ConsumeWithContext(ctx, queue, consumer, false, false, false, false, nil)
	if err != nil {
		return nil, multierr.Append(err, ch.Close())
	}
	go func() {
		<-ctx.Done()
		_ = ch.Close()
	}()
	return msgs, nil
}

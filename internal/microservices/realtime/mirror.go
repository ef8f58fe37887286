package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-automation/internal/common/logger"
	"restaurant-automation/internal/connections/rabbitmq"
	"restaurant-automation/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte, headers amqp.Table, contentType string, persistent bool) error
}

// FanoutMirror republishes broadcast events on notifications_fanout. Events
// are queued and published by Run so callers never wait for the broker.
type FanoutMirror struct {
	pub     Publisher
	log     *logger.Logger
	queue   chan domain.BroadcastEvent
	timeout time.Duration
}

func NewFanoutMirror(pub Publisher, log *logger.Logger, buffer int) *FanoutMirror {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &FanoutMirror{pub: pub, log: log, queue: make(chan domain.BroadcastEvent, buffer), timeout: 5 * time.Second}
}

func (m *FanoutMirror) Broadcast(ev domain.BroadcastEvent) {
	select {
	case m.queue <- ev:
	default:
		m.log.Warn("fanout_queue_full", map[string]any{"type": ev.Type, "order_number": ev.OrderNumber})
	}
}

func (m *FanoutMirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-m.queue:
			m.publish(ctx, ev)
		}
	}
}

func (m *FanoutMirror) publish(ctx context.Context, ev domain.BroadcastEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		m.log.Error("fanout_marshal_failed", err, nil)
		return
	}
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	headers := amqp.Table{"message_id": uuid.NewString(), "x-event": string(ev.Type)}
	if err := m.pub.Publish(pctx, rabbitmq.ExchangeFanout, "", body, headers, "application/json", false); err != nil {
		m.log.Error("fanout_publish_failed", err, map[string]any{"type": ev.Type, "order_number": ev.OrderNumber})
	}
}

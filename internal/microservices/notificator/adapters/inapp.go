package adapters

import (
	"context"
	"time"

	"restaurant-automation/internal/domain"
	"restaurant-automation/internal/microservices/notificator/service"
)

type Sink interface {
	Broadcast(ev domain.BroadcastEvent)
}

// InAppAdapter pushes notifications to connected UI clients. It has no
// feedback capability: walk-in and web customers are asked at the counter.
type InAppAdapter struct {
	sink Sink
	now  func() time.Time
}

func NewInAppAdapter(sink Sink, now func() time.Time) *InAppAdapter {
	if now == nil {
		now = time.Now
	}
	return &InAppAdapter{sink: sink, now: now}
}

func (a *InAppAdapter) SendConfirmation(_ context.Context, o domain.Order) error {
	a.push(o, o.Status, confirmationText(o))
	return nil
}

func (a *InAppAdapter) SendStatusUpdate(_ context.Context, o domain.Order, s domain.OrderStatus) error {
	a.push(o, s, statusText(o, s))
	return nil
}

func (a *InAppAdapter) SendBill(_ context.Context, o domain.Order, b domain.Bill) error {
	a.push(o, domain.StatusBilled, billText(o, b))
	return nil
}

func (a *InAppAdapter) push(o domain.Order, s domain.OrderStatus, text string) {
	a.sink.Broadcast(domain.BroadcastEvent{
		Type:        domain.BroadcastNotification,
		OrderID:     o.ID,
		OrderNumber: o.Number,
		Status:      s,
		Message:     text,
		At:          a.now().UTC(),
	})
}

var _ service.ChannelAdapter = (*InAppAdapter)(nil)

// RegisterDefaults wires every known channel to its adapter.
func RegisterDefaults(reg *service.Registry, pub Publisher, exchange string, sink Sink, now func() time.Time) {
	for _, ch := range []domain.Channel{domain.ChannelWhatsApp, domain.ChannelSMS, domain.ChannelZomato, domain.ChannelSwiggy} {
		reg.Register(ch, NewBrokerAdapter(pub, exchange, ch, now))
	}
	inApp := NewInAppAdapter(sink, now)
	reg.Register(domain.ChannelWeb, inApp)
	reg.Register(domain.ChannelManual, inApp)
}

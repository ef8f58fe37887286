package service

import (
	"context"
	"fmt"
	"sync"

	"restaurant-automation/internal/domain"
)

// ChannelAdapter delivers customer messages over one origin channel.
type ChannelAdapter interface {
	SendConfirmation(ctx context.Context, order domain.Order) error
	SendStatusUpdate(ctx context.Context, order domain.Order, status domain.OrderStatus) error
	SendBill(ctx context.Context, order domain.Order, bill domain.Bill) error
}

// FeedbackRequester is implemented by adapters that can ask for a review.
type FeedbackRequester interface {
	RequestFeedback(ctx context.Context, order domain.Order) error
}

type Registry struct {
	mu       sync.RWMutex
	adapters map[domain.Channel]ChannelAdapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[domain.Channel]ChannelAdapter)}
}

func (r *Registry) Register(ch domain.Channel, a ChannelAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[ch] = a
}

func (r *Registry) Resolve(ch domain.Channel) (ChannelAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[ch]
	if !ok || a == nil {
		return nil, fmt.Errorf("channel %q: %w", ch, domain.ErrNoAdapter)
	}
	return a, nil
}

func (r *Registry) Channels() []domain.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Channel, 0, len(r.adapters))
	for ch := range r.adapters {
		out = append(out, ch)
	}
	return out
}

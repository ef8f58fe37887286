// Package realtime pushes order events to connected UI clients over SSE and
// mirrors them onto the broker fanout exchange for other consumers.
package realtime

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"restaurant-automation/internal/common/logger"
	"restaurant-automation/internal/domain"
)

type BroadcasterInterface interface {
	Broadcast(ev domain.BroadcastEvent)
}

// Hub fans events out to in-process subscribers. A slow subscriber loses
// events instead of blocking the publisher.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]chan domain.BroadcastEvent
	next    uint64
	buffer  int
	dropped atomic.Int64
	log     *logger.Logger
}

func NewHub(buffer int, log *logger.Logger) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{subs: make(map[uint64]chan domain.BroadcastEvent), buffer: buffer, log: log}
}

func (h *Hub) Subscribe() (uint64, <-chan domain.BroadcastEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	ch := make(chan domain.BroadcastEvent, h.buffer)
	h.subs[h.next] = ch
	return h.next, ch
}

func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *Hub) Broadcast(ev domain.BroadcastEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
			h.log.Debug("broadcast_dropped", map[string]any{"subscriber": id, "type": ev.Type})
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Handler streams hub events as server-sent events until the client leaves.
func (h *Hub) Handler(keepAlive time.Duration) gin.HandlerFunc {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return func(c *gin.Context) {
		id, events := h.Subscribe()
		defer h.Unsubscribe(id)

		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		ping := time.NewTicker(keepAlive)
		defer ping.Stop()

		c.SSEvent("ready", gin.H{"subscriber": id})
		c.Writer.Flush()

		c.Stream(func(_ io.Writer) bool {
			select {
			case ev, ok := <-events:
				if !ok {
					return false
				}
				c.SSEvent(string(ev.Type), ev)
				return true
			case <-ping.C:
				c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}

// Multi broadcasts to several sinks in order.
type Multi []BroadcasterInterface

func (m Multi) Broadcast(ev domain.BroadcastEvent) {
	for _, b := range m {
		if b != nil {
			b.Broadcast(ev)
		}
	}
}

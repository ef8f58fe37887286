// Package load tracks how many kitchen tickets are in flight.
//
// # Drift
//
// The counter relies on every Inc (ticket created) being paired with a Dec
// (ticket completed). Tickets completed by staff outside the automation, or
// chains halted by a storage failure, leave it too high. Reconcile re-seeds the
// counter from the persisted count of active tickets; Run does so periodically.
package load

import (
	"context"
	"sync/atomic"
	"time"

	"restaurant-automation/internal/common/logger"
	"restaurant-automation/internal/common/metrics"
)

// ActiveCounter is the storage query Reconcile relies on.
type ActiveCounter interface {
	CountActiveKitchenTickets(ctx context.Context) (int64, error)
}

type TrackerInterface interface {
	Inc() int64
	Dec() int64
	Set(n int64)
	Active() int64
	Capacity() int
	Load() float64
	Reconcile(ctx context.Context, counter ActiveCounter) error
}

type Tracker struct {
	active   atomic.Int64
	capacity int
	log      *logger.Logger
}

func NewTracker(capacity int, log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.NewNop()
	}
	return &Tracker{capacity: capacity, log: log}
}

func (t *Tracker) Inc() int64 {
	n := t.active.Add(1)
	t.publish(n)
	return n
}

// Dec never takes the counter below zero.
func (t *Tracker) Dec() int64 {
	for {
		cur := t.active.Load()
		if cur <= 0 {
			return 0
		}
		if t.active.CompareAndSwap(cur, cur-1) {
			t.publish(cur - 1)
			return cur - 1
		}
	}
}

func (t *Tracker) Set(n int64) {
	if n < 0 {
		n = 0
	}
	t.active.Store(n)
	t.publish(n)
}

func (t *Tracker) Active() int64 { return t.active.Load() }

func (t *Tracker) Capacity() int { return t.capacity }

// Load is active/capacity clamped to [0,1].
func (t *Tracker) Load() float64 { return ratio(t.active.Load(), t.capacity) }

func (t *Tracker) Reconcile(ctx context.Context, counter ActiveCounter) error {
	n, err := counter.CountActiveKitchenTickets(ctx)
	if err != nil {
		return err
	}
	if prev := t.active.Swap(n); prev != n {
		t.log.Info("kitchen_load_reconciled", map[string]any{"previous": prev, "actual": n})
	}
	t.publish(n)
	return nil
}

// Run reconciles every interval until ctx is done.
func (t *Tracker) Run(ctx context.Context, counter ActiveCounter, every time.Duration) error {
	if every <= 0 {
		every = time.Minute
	}
	if err := t.Reconcile(ctx, counter); err != nil {
		t.log.Error("kitchen_load_reconcile_failed", err, nil)
	}
	tk := time.NewTicker(every)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tk.C:
			if err := t.Reconcile(ctx, counter); err != nil {
				t.log.Error("kitchen_load_reconcile_failed", err, nil)
			}
		}
	}
}

func (t *Tracker) publish(n int64) { metrics.RecordKitchenLoad(n, ratio(n, t.capacity)) }

func ratio(active int64, capacity int) float64 {
	if capacity <= 0 {
		return 1
	}
	r := float64(active) / float64(capacity)
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"restaurant-automation/internal/common/config"
	"restaurant-automation/internal/common/logger"
	"restaurant-automation/internal/common/metrics"
	"restaurant-automation/internal/common/scheduler"
	"restaurant-automation/internal/domain"
)

type DispatcherInterface interface {
	Notify(ctx context.Context, order domain.Order, ev domain.Event) error
	WatchOrder(ctx context.Context, order domain.Order)
	Observe(order domain.Order)
	Watching(orderID uint) bool
	Stop()
}

// OrderReader is what the dispatcher needs from storage.
type OrderReader interface {
	GetOrder(ctx context.Context, id uint) (domain.Order, error)
	GetBillByOrder(ctx context.Context, orderID uint) (domain.Bill, error)
}

type Options struct {
	PollInterval  time.Duration
	MaxWatch      time.Duration
	FeedbackDelay time.Duration
}

func OptionsFromConfig(c config.NotificationsConfig) Options {
	return Options{PollInterval: c.PollInterval, MaxWatch: c.MaxWatch, FeedbackDelay: c.FeedbackDelay}
}

type watch struct {
	orderID  uint
	ctx      context.Context
	deadline time.Time

	mu    sync.Mutex
	order domain.Order // последний увиденный снимок
	task  *scheduler.Task
	done  bool
}

type Dispatcher struct {
	registry *Registry
	orders   OrderReader
	sched    scheduler.SchedulerInterface
	log      *logger.Logger
	opts     Options

	mu       sync.Mutex
	watches  map[uint]*watch
	feedback map[uint]*scheduler.Task
}

func NewDispatcher(registry *Registry, orders OrderReader, sched scheduler.SchedulerInterface, log *logger.Logger, opts Options) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.MaxWatch < opts.PollInterval {
		opts.MaxWatch = opts.PollInterval
	}
	return &Dispatcher{
		registry: registry,
		orders:   orders,
		sched:    sched,
		log:      log,
		opts:     opts,
		watches:  make(map[uint]*watch),
		feedback: make(map[uint]*scheduler.Task),
	}
}

// Notify sends one event over the order's origin channel. Failures are
// returned for logging only; they never affect the order.
func (d *Dispatcher) Notify(ctx context.Context, order domain.Order, ev domain.Event) error {
	err := d.send(ctx, order, ev)
	result := "ok"
	switch {
	case err == nil:
		d.log.Debug("notification_sent", map[string]any{"order_number": order.Number, "channel": order.Channel, "event": ev.String()})
	case errors.Is(err, domain.ErrNoAdapter), errors.Is(err, domain.ErrUnsupported):
		result = "skipped"
		d.log.Warn("notification_skipped", map[string]any{"order_number": order.Number, "channel": order.Channel, "event": ev.String(), "reason": err.Error()})
	default:
		result = "failed"
		d.log.Error("notification_failed", err, map[string]any{"order_number": order.Number, "channel": order.Channel, "event": ev.String()})
	}
	metrics.RecordNotification(string(order.Channel), string(ev.Kind), result)
	return err
}

func (d *Dispatcher) send(ctx context.Context, order domain.Order, ev domain.Event) error {
	adapter, err := d.registry.Resolve(order.Channel)
	if err != nil {
		return err
	}
	switch ev.Kind {
	case domain.EventConfirmed:
		return adapter.SendConfirmation(ctx, order)
	case domain.EventStatusChanged:
		return adapter.SendStatusUpdate(ctx, order, ev.Status)
	case domain.EventBilled:
		bill, err := d.orders.GetBillByOrder(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("load bill: %w", err)
		}
		return adapter.SendBill(ctx, order, bill)
	case domain.EventFeedbackRequested:
		fr, ok := adapter.(FeedbackRequester)
		if !ok {
			return fmt.Errorf("feedback over %q: %w", order.Channel, domain.ErrUnsupported)
		}
		return fr.RequestFeedback(ctx, order)
	}
	return fmt.Errorf("event %q: %w", ev.Kind, domain.ErrUnsupported)
}

// WatchOrder starts polling the order's persisted status. Pushed updates from
// Observe are merged into the same watch, so each status is announced once.
func (d *Dispatcher) WatchOrder(ctx context.Context, order domain.Order) {
	w := &watch{
		orderID:  order.ID,
		ctx:      ctx,
		deadline: d.sched.Now().Add(d.opts.MaxWatch),
		order:    order,
	}
	d.mu.Lock()
	if _, ok := d.watches[order.ID]; ok {
		d.mu.Unlock()
		return
	}
	d.watches[order.ID] = w
	d.mu.Unlock()

	d.log.Debug("watch_started", map[string]any{"order_number": order.Number, "status": order.Status})
	d.schedulePoll(w)
}

// Observe is the push path used by the controller after every transition.
func (d *Dispatcher) Observe(order domain.Order) {
	d.mu.Lock()
	w, ok := d.watches[order.ID]
	d.mu.Unlock()
	if !ok {
		return
	}
	d.check(w, order)
}

func (d *Dispatcher) Watching(orderID uint) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.watches[orderID]
	return ok
}

func (d *Dispatcher) ActiveWatches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.watches)
}

// Stop tears down every watch and pending feedback request.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	watches := d.watches
	feedback := d.feedback
	d.watches = make(map[uint]*watch)
	d.feedback = make(map[uint]*scheduler.Task)
	d.mu.Unlock()

	for _, w := range watches {
		w.mu.Lock()
		w.done = true
		w.task.Cancel()
		w.mu.Unlock()
	}
	for _, t := range feedback {
		t.Cancel()
	}
}

func (d *Dispatcher) schedulePoll(w *watch) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return
	}
	w.task = d.sched.After(d.opts.PollInterval, fmt.Sprintf("watch-%d", w.orderID), func() { d.poll(w) })
}

func (d *Dispatcher) poll(w *watch) {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done {
		return
	}
	if w.ctx.Err() != nil {
		d.teardown(w, "context_done")
		return
	}
	if !d.sched.Now().Before(w.deadline) {
		d.teardown(w, "max_watch_reached")
		return
	}

	order, err := d.orders.GetOrder(w.ctx, w.orderID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		d.teardown(w, "order_not_found")
		return
	case err != nil:
		d.log.Error("watch_poll_failed", err, map[string]any{"order_id": w.orderID})
	default:
		d.check(w, order)
	}
	d.schedulePoll(w)
}

// check compares order with the last seen snapshot and announces a change.
func (d *Dispatcher) check(w *watch, order domain.Order) {
	w.mu.Lock()
	if w.done || order.Status == w.order.Status {
		w.mu.Unlock()
		return
	}
	prev := w.order.Status
	w.order = order
	terminal := order.Status.Terminal()
	if terminal {
		w.done = true
		w.task.Cancel()
	}
	w.mu.Unlock()

	d.log.Debug("watch_status_changed", map[string]any{"order_number": order.Number, "from": prev, "to": order.Status})
	_ = d.Notify(w.ctx, order, domain.EventForStatus(order.Status))

	if !terminal {
		return
	}
	if order.Status == domain.StatusBilled {
		d.scheduleFeedback(order)
	}
	d.teardown(w, "terminal_status")
}

func (d *Dispatcher) scheduleFeedback(order domain.Order) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.feedback[order.ID]; ok {
		return
	}
	d.feedback[order.ID] = d.sched.After(d.opts.FeedbackDelay, fmt.Sprintf("feedback-%d", order.ID), func() {
		d.mu.Lock()
		delete(d.feedback, order.ID)
		d.mu.Unlock()
		_ = d.Notify(context.Background(), order, domain.FeedbackRequested())
	})
}

func (d *Dispatcher) teardown(w *watch, reason string) {
	w.mu.Lock()
	w.done = true
	w.task.Cancel()
	w.mu.Unlock()

	d.mu.Lock()
	if d.watches[w.orderID] == w {
		delete(d.watches, w.orderID)
	}
	d.mu.Unlock()
	d.log.Debug("watch_stopped", map[string]any{"order_id": w.orderID, "reason": reason})
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-automation/internal/common/config"
	"restaurant-automation/internal/common/logger"
	"restaurant-automation/internal/common/scheduler"
	"restaurant-automation/internal/connections/objectstore"
	"restaurant-automation/internal/domain"
	"restaurant-automation/internal/microservices/automation/decision"
	"restaurant-automation/internal/microservices/automation/load"
	"restaurant-automation/internal/microservices/automation/repository"
)

const actorAutomation = "automation"

type AutomationServiceInterface interface {
	StartAutomation(ctx context.Context, orderID uint) error
	CancelAutomation(orderID uint) bool
	SetGlobalEnabled(enabled bool)
	IsGlobalEnabled() bool
	IsAutomated(orderID uint) bool
	GetRecommendedSequence(ctx context.Context) ([]decision.ScoredTicket, error)
	OverrideStatus(ctx context.Context, orderID uint, status domain.OrderStatus, actor string) (domain.Order, error)
	PayBill(ctx context.Context, orderID uint, actor string) (domain.Bill, error)
	Resume(ctx context.Context) (int, error)
	Shutdown()
}

// Notifier is the part of the notification dispatcher the controller drives.
type Notifier interface {
	Notify(ctx context.Context, order domain.Order, ev domain.Event) error
	WatchOrder(ctx context.Context, order domain.Order)
	Observe(order domain.Order)
}

type Broadcaster interface {
	Broadcast(ev domain.BroadcastEvent)
}

type Options struct {
	Enabled          bool
	AcknowledgeDelay time.Duration
	BasePrepDelay    time.Duration
	ServingDelay     time.Duration
	BillingDelay     time.Duration
	TaxRate          decimal.Decimal
}

func OptionsFromConfig(c config.AutomationConfig) Options {
	return Options{
		Enabled:          c.Enabled,
		AcknowledgeDelay: c.AcknowledgeDelay,
		BasePrepDelay:    c.BasePrepDelay,
		ServingDelay:     c.ServingDelay,
		BillingDelay:     c.BillingDelay,
		TaxRate:          decimal.NewFromFloat(c.TaxRate),
	}
}

type Deps struct {
	Store       repository.StorageInterface
	Engine      decision.EngineInterface
	Tracker     load.TrackerInterface
	Scheduler   scheduler.SchedulerInterface
	Notifier    Notifier
	Broadcaster Broadcaster
	// Archive is optional; receipts are skipped when nil.
	Archive objectstore.ReceiptArchiveInterface
	Logger  *logger.Logger
}

// chain is the in-memory automation state of one order. Only the controller
// mutex guards task/expected/parked; cancelled is read lock-free by callbacks.
// step is held for the whole read-apply of one transition.
type chain struct {
	orderID   uint
	factor    float64
	expected  domain.OrderStatus
	task      *scheduler.Task
	parked    bool
	cancelled atomic.Bool
	step      sync.Mutex
}

type AutomationService struct {
	store       repository.StorageInterface
	engine      decision.EngineInterface
	tracker     load.TrackerInterface
	sched       scheduler.SchedulerInterface
	notifier    Notifier
	broadcaster Broadcaster
	archive     objectstore.ReceiptArchiveInterface
	log         *logger.Logger
	opts        Options

	// контекст для колбэков таймеров, живёт до Shutdown
	ctx    context.Context
	cancel context.CancelFunc

	enabled atomic.Bool
	mu      sync.Mutex
	chains  map[uint]*chain
}

func NewAutomationService(deps Deps, opts Options) *AutomationService {
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = nopBroadcaster{}
	}
	if deps.Scheduler == nil {
		deps.Scheduler = scheduler.New(nil, deps.Logger)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &AutomationService{
		store:       deps.Store,
		engine:      deps.Engine,
		tracker:     deps.Tracker,
		sched:       deps.Scheduler,
		notifier:    deps.Notifier,
		broadcaster: deps.Broadcaster,
		archive:     deps.Archive,
		log:         deps.Logger,
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		chains:      make(map[uint]*chain),
	}
	s.enabled.Store(opts.Enabled)
	return s
}

// StartAutomation creates the kitchen ticket, scores the order and arms the
// first timer. A second call for an order that is already automated is a no-op.
func (s *AutomationService) StartAutomation(ctx context.Context, orderID uint) error {
	if s.IsAutomated(orderID) {
		s.log.Info("automation_already_active", map[string]any{"order_id": orderID})
		return nil
	}
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.AutomationEnabled {
		return fmt.Errorf("order %s: %w", order.Number, domain.ErrAutomationDisabled)
	}
	if order.Status != domain.StatusPending {
		return fmt.Errorf("order %s is %s: %w", order.Number, order.Status, domain.ErrStateConflict)
	}

	c := &chain{orderID: orderID, expected: domain.StatusPending}
	s.mu.Lock()
	if _, ok := s.chains[orderID]; ok {
		s.mu.Unlock()
		s.log.Info("automation_already_active", map[string]any{"order_number": order.Number})
		return nil
	}
	s.chains[orderID] = c
	s.mu.Unlock()

	order, err = s.prepare(ctx, c, order)
	if err != nil {
		s.drop(c)
		return err
	}

	s.log.Info("automation_started", map[string]any{
		"order_number":      order.Number,
		"priority":          order.Priority,
		"estimated_minutes": order.EstimatedPrepMinutes,
		"complexity":        c.factor,
	})
	if err := s.notifier.Notify(ctx, order, domain.Confirmed()); err != nil {
		s.log.Warn("notification_failed", map[string]any{"order_number": order.Number, "event": domain.EventConfirmed, "error": err.Error()})
	}
	s.notifier.WatchOrder(s.ctx, order)
	s.broadcaster.Broadcast(domain.OrderBroadcast(domain.BroadcastOrderUpdated, order, s.sched.Now()))

	s.arm(c, domain.StatusPending)
	return nil
}

// prepare does the synchronous part of StartAutomation.
func (s *AutomationService) prepare(ctx context.Context, c *chain, order domain.Order) (domain.Order, error) {
	items, err := s.store.GetOrderItems(ctx, order.ID)
	if err != nil {
		return order, err
	}
	menu, err := s.store.GetMenuItemsByIds(ctx, menuIDs(items))
	if err != nil {
		return order, err
	}
	a := s.engine.Assess(order, items, menu, s.tracker.Load())
	c.factor = a.ComplexityFactor

	ticket := domain.KitchenTicket{
		OrderID:              order.ID,
		Status:               domain.TicketPending,
		Priority:             a.Priority,
		Urgent:               a.Urgent,
		EstimatedPrepMinutes: a.EstimatedMinutes,
	}
	switch err := s.store.CreateKitchenTicket(ctx, &ticket); {
	case err == nil:
		s.tracker.Inc()
	case errors.Is(err, domain.ErrStateConflict):
		// тикет уже есть (перезапуск после сбоя), счётчик не трогаем
	default:
		return order, err
	}

	if err := s.store.UpdateOrder(ctx, order.ID, domain.StatusPending, repository.OrderPatch{
		Priority:             &a.Priority,
		EstimatedPrepMinutes: &a.EstimatedMinutes,
	}); err != nil {
		return order, err
	}
	order.Priority = a.Priority
	order.EstimatedPrepMinutes = a.EstimatedMinutes

	err = s.store.RecordActivity(ctx, &domain.ActivityLogEntry{
		OrderID:  order.ID,
		Action:   domain.ActivityAutomationStarted,
		ToStatus: order.Status,
		Actor:    actorAutomation,
		Details: fmt.Sprintf("priority=%d urgent=%t estimate=%dm complexity=%.1f load=%.2f",
			a.Priority, a.Urgent, a.EstimatedMinutes, a.ComplexityFactor, a.Load),
	})
	return order, err
}

// CancelAutomation stops the order's chain. It reports whether a chain existed;
// cancelling an order without one is a no-op. When it returns, no further
// status change is made by that chain.
func (s *AutomationService) CancelAutomation(orderID uint) bool {
	s.mu.Lock()
	c, ok := s.chains[orderID]
	if ok {
		delete(s.chains, orderID)
		c.cancelled.Store(true)
		c.task.Cancel()
	}
	s.mu.Unlock()

	if ok {
		// дождаться перехода, который уже пишет в базу
		c.step.Lock()
		c.step.Unlock()
	}
	if !ok {
		s.log.Debug("automation_cancel_noop", map[string]any{"order_id": orderID})
		return false
	}
	s.log.Info("automation_cancelled", map[string]any{"order_id": orderID})
	if err := s.store.RecordActivity(s.ctx, &domain.ActivityLogEntry{
		OrderID: orderID,
		Action:  domain.ActivityAutomationCanceled,
		Actor:   actorAutomation,
	}); err != nil {
		s.log.Error("activity_record_failed", err, map[string]any{"order_id": orderID})
	}
	return true
}

// SetGlobalEnabled flips the kill switch. Turning it back on re-arms every
// chain that was parked while it was off.
func (s *AutomationService) SetGlobalEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.enabled.Swap(enabled)
	s.log.Info("automation_global_switch", map[string]any{"enabled": enabled, "previous": prev})
	if !enabled || prev {
		return
	}
	for _, c := range s.chains {
		if c.parked {
			s.log.Info("automation_resumed", map[string]any{"order_id": c.orderID, "status": c.expected})
			s.armLocked(c)
		}
	}
}

func (s *AutomationService) IsGlobalEnabled() bool { return s.enabled.Load() }

func (s *AutomationService) IsAutomated(orderID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.chains[orderID]
	return ok
}

// ActiveChains returns the number of orders currently driven by automation.
func (s *AutomationService) ActiveChains() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chains)
}

func (s *AutomationService) GetRecommendedSequence(ctx context.Context) ([]decision.ScoredTicket, error) {
	tickets, err := s.store.ListActiveKitchenTickets(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.RecommendSequence(tickets, s.sched.Now()), nil
}

// Shutdown cancels every pending timer. Persisted state is left as is and is
// picked up again by Resume on the next start.
func (s *AutomationService) Shutdown() {
	s.mu.Lock()
	for id, c := range s.chains {
		c.cancelled.Store(true)
		c.task.Cancel()
		delete(s.chains, id)
	}
	s.mu.Unlock()
	s.cancel()
}

// arm schedules the timer that moves the order out of status. It does nothing
// if the chain was cancelled or replaced in the meantime.
func (s *AutomationService) arm(c *chain, status domain.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chains[c.orderID] != c || c.cancelled.Load() {
		return
	}
	c.expected = status
	s.armLocked(c)
}

// park is called by a timer that fired while the switch was off. The switch
// is re-read under the lock: if it was turned back on in between, the chain
// is re-armed instead of being left without a timer.
func (s *AutomationService) park(c *chain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chains[c.orderID] != c || c.cancelled.Load() {
		return
	}
	s.armLocked(c)
}

// armLocked expects s.mu to be held. While the switch is off the chain is
// parked; SetGlobalEnabled re-arms it.
func (s *AutomationService) armLocked(c *chain) {
	if !s.enabled.Load() {
		c.parked = true
		s.log.Debug("automation_parked", map[string]any{"order_id": c.orderID, "status": c.expected})
		return
	}
	c.parked = false
	name := fmt.Sprintf("order-%d:%s", c.orderID, c.expected)
	c.task = s.sched.After(s.delayFor(c.expected, c.factor), name, func() { s.advance(c) })
}

// drop removes the chain if it is still the registered one.
func (s *AutomationService) drop(c *chain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chains[c.orderID] == c {
		delete(s.chains, c.orderID)
	}
	c.cancelled.Store(true)
}

// delayFor is the dwell time in status before the next transition fires.
func (s *AutomationService) delayFor(status domain.OrderStatus, factor float64) time.Duration {
	switch status {
	case domain.StatusPending:
		return s.opts.AcknowledgeDelay
	case domain.StatusPreparing:
		if factor < 1 {
			factor = 1
		}
		return time.Duration(float64(s.opts.BasePrepDelay) * factor)
	case domain.StatusReady:
		return s.opts.ServingDelay
	case domain.StatusCompleted:
		return s.opts.BillingDelay
	}
	return 0
}

func menuIDs(items []domain.OrderItem) []uint {
	seen := make(map[uint]struct{}, len(items))
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.MenuItemID]; ok {
			continue
		}
		seen[it.MenuItemID] = struct{}{}
		ids = append(ids, it.MenuItemID)
	}
	return ids
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.Order, domain.Event) error { return nil }
func (nopNotifier) WatchOrder(context.Context, domain.Order)                 {}
func (nopNotifier) Observe(domain.Order)                                     {}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(domain.BroadcastEvent) {}

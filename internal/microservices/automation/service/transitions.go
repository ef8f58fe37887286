package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"restaurant-automation/internal/common/metrics"
	"restaurant-automation/internal/domain"
	"restaurant-automation/internal/microservices/automation/repository"
)

// lifecycle is the only path automation may take.
var lifecycle = map[domain.OrderStatus]domain.OrderStatus{
	domain.StatusPending:   domain.StatusPreparing,
	domain.StatusPreparing: domain.StatusReady,
	domain.StatusReady:     domain.StatusCompleted,
	domain.StatusCompleted: domain.StatusBilled,
}

// NextStatus returns the automated successor of s.
func NextStatus(s domain.OrderStatus) (domain.OrderStatus, bool) {
	next, ok := lifecycle[s]
	return next, ok
}

// advance is the timer callback. It re-reads the order, applies exactly one
// forward transition and arms the next timer.
func (s *AutomationService) advance(c *chain) {
	if c.cancelled.Load() {
		return
	}
	if !s.enabled.Load() {
		s.park(c)
		return
	}
	from, updated, ok := s.step(c)
	if !ok {
		return
	}

	s.log.Info("order_status_changed", map[string]any{
		"order_number": updated.Number,
		"from":         from,
		"to":           updated.Status,
	})
	metrics.RecordTransition(string(updated.Status))
	s.notifier.Observe(updated)
	s.broadcaster.Broadcast(domain.OrderBroadcast(domain.BroadcastOrderUpdated, updated, s.sched.Now()))

	if updated.Status == domain.StatusBilled {
		s.drop(c)
		s.log.Info("automation_finished", map[string]any{"order_number": updated.Number})
		return
	}
	s.arm(c, updated.Status)
}

// step persists one transition while holding the chain's step lock, so a
// CancelAutomation that returned never races with a commit. ok is false when
// the chain ended instead.
func (s *AutomationService) step(c *chain) (domain.OrderStatus, domain.Order, bool) {
	c.step.Lock()
	defer c.step.Unlock()
	if c.cancelled.Load() {
		return "", domain.Order{}, false
	}
	ctx := s.ctx

	s.mu.Lock()
	expected := c.expected
	s.mu.Unlock()

	order, err := s.store.GetOrder(ctx, c.orderID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.log.Warn("automation_order_vanished", map[string]any{"order_id": c.orderID})
		s.drop(c)
		return "", order, false
	case err != nil:
		s.stall(ctx, c, domain.Order{ID: c.orderID}, expected, err)
		return "", order, false
	}

	if order.Status != expected {
		// статус поменяли вручную, ничего не меняем
		s.conflict(c, order, expected)
		return "", order, false
	}
	next, ok := NextStatus(order.Status)
	if !ok {
		s.drop(c)
		return "", order, false
	}

	updated, err := s.apply(ctx, order, next, actorAutomation)
	switch {
	case err == nil:
		return order.Status, updated, true
	case errors.Is(err, domain.ErrNotFound):
		s.log.Warn("automation_order_vanished", map[string]any{"order_id": c.orderID})
		s.drop(c)
	case errors.Is(err, domain.ErrStateConflict):
		// условное обновление проиграло гонку, транзакция откатилась
		if cur, gerr := s.store.GetOrder(ctx, c.orderID); gerr == nil {
			order = cur
		}
		s.conflict(c, order, expected)
	default:
		s.stall(ctx, c, order, order.Status, err)
	}
	return "", order, false
}

// effects are the parts of a transition that live outside the database and
// run only after its transaction committed.
type effects struct {
	freedSlot bool
	bill      *domain.Bill
	items     []domain.OrderItem
}

// apply persists one transition together with its kitchen, billing and audit
// writes in a single transaction. On error nothing was written and the
// returned order is the one passed in.
func (s *AutomationService) apply(ctx context.Context, order domain.Order, next domain.OrderStatus, actor string) (domain.Order, error) {
	var fx effects
	err := s.store.InTx(ctx, func(tx repository.StorageInterface) error {
		var err error
		fx, err = transition(ctx, tx, order, next, actor, s.opts.TaxRate)
		return err
	})
	if err != nil {
		return order, err
	}
	order.Status = next
	if fx.freedSlot {
		s.tracker.Dec()
	}
	if fx.bill != nil {
		s.archiveReceipt(ctx, order, fx.items, *fx.bill)
	}
	return order, nil
}

func transition(ctx context.Context, tx repository.StorageInterface, order domain.Order, next domain.OrderStatus, actor string, taxRate decimal.Decimal) (effects, error) {
	var fx effects
	from := order.Status
	if err := tx.UpdateOrder(ctx, order.ID, from, repository.OrderPatch{Status: &next}); err != nil {
		return fx, err
	}

	switch next {
	case domain.StatusPreparing:
		if _, err := tx.UpdateKitchenTicket(ctx, order.ID, domain.TicketInProgress); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fx, fmt.Errorf("start ticket: %w", err)
		}
	case domain.StatusReady, domain.StatusCancelled:
		freed, err := completeTicket(ctx, tx, order.ID)
		if err != nil {
			return fx, err
		}
		fx.freedSlot = freed
	case domain.StatusCompleted, domain.StatusBilled:
		freed, err := completeTicket(ctx, tx, order.ID)
		if err != nil {
			return fx, err
		}
		fx.freedSlot = freed
		if fx.bill, fx.items, err = ensureBill(ctx, tx, order.ID, actor, taxRate); err != nil {
			return fx, err
		}
	}

	err := tx.RecordActivity(ctx, &domain.ActivityLogEntry{
		OrderID:    order.ID,
		Action:     domain.ActivityStatusChanged,
		FromStatus: from,
		ToStatus:   next,
		Actor:      actor,
	})
	return fx, err
}

// completeTicket closes the kitchen ticket once. It reports whether a kitchen
// slot was freed by this call.
func completeTicket(ctx context.Context, tx repository.StorageInterface, orderID uint) (bool, error) {
	ticket, err := tx.GetKitchenTicketByOrder(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !ticket.Active() {
		return false, nil
	}
	if _, err := tx.UpdateKitchenTicket(ctx, orderID, domain.TicketCompleted); err != nil {
		return false, fmt.Errorf("complete ticket: %w", err)
	}
	return true, nil
}

// ensureBill creates the order's bill unless one exists already. The new bill
// is returned so its receipt can be archived after commit.
func ensureBill(ctx context.Context, tx repository.StorageInterface, orderID uint, actor string, taxRate decimal.Decimal) (*domain.Bill, []domain.OrderItem, error) {
	if _, err := tx.GetBillByOrder(ctx, orderID); err == nil {
		return nil, nil, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	items, err := tx.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	bill := domain.NewBill(orderID, items, taxRate)
	if err := tx.CreateBill(ctx, &bill); err != nil {
		if errors.Is(err, domain.ErrStateConflict) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("create bill: %w", err)
	}
	if err := tx.RecordActivity(ctx, &domain.ActivityLogEntry{
		OrderID: orderID,
		Action:  domain.ActivityBillCreated,
		Actor:   actor,
		Details: "total=" + bill.Total.StringFixed(2),
	}); err != nil {
		return nil, nil, err
	}
	return &bill, items, nil
}

// archiveReceipt is best effort; the bill row is the record of truth.
func (s *AutomationService) archiveReceipt(ctx context.Context, order domain.Order, items []domain.OrderItem, bill domain.Bill) {
	if s.archive == nil {
		return
	}
	key, err := s.archive.ArchiveBill(ctx, order, items, bill)
	if err != nil {
		s.log.Error("receipt_archive_failed", err, map[string]any{"order_number": order.Number})
		return
	}
	s.log.Debug("receipt_archived", map[string]any{"order_number": order.Number, "key": key})
}

func (s *AutomationService) conflict(c *chain, order domain.Order, expected domain.OrderStatus) {
	metrics.RecordConflict()
	s.log.Info("automation_state_diverged", map[string]any{
		"order_number": order.Number,
		"expected":     expected,
		"actual":       order.Status,
	})
	s.drop(c)
}

// stall halts the chain for good. Nothing is retried; staff take over.
func (s *AutomationService) stall(ctx context.Context, c *chain, order domain.Order, at domain.OrderStatus, cause error) {
	s.drop(c)
	metrics.RecordStalled()
	s.log.Error("automation_stalled", cause, map[string]any{
		"order_id":     c.orderID,
		"order_number": order.Number,
		"status":       at,
	})
	if err := s.store.RecordActivity(ctx, &domain.ActivityLogEntry{
		OrderID:    c.orderID,
		Action:     domain.ActivityAutomationStalled,
		FromStatus: at,
		Actor:      actorAutomation,
		Details:    cause.Error(),
	}); err != nil {
		s.log.Error("activity_record_failed", err, map[string]any{"order_id": c.orderID})
	}
	ev := domain.OrderBroadcast(domain.BroadcastAutomationStalled, order, s.sched.Now())
	ev.Status = at
	ev.Message = cause.Error()
	s.broadcaster.Broadcast(ev)
}

package service

import (
	"context"
	"fmt"

	"restaurant-automation/internal/domain"
)

// OverrideStatus is a staff edit. It ends the order's automation first, then
// writes the requested status with the same side effects automation would apply.
func (s *AutomationService) OverrideStatus(ctx context.Context, orderID uint, status domain.OrderStatus, actor string) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("status %q: %w", status, domain.ErrValidation)
	}
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status.Terminal() || order.Status == status {
		return order, fmt.Errorf("order %s is %s: %w", order.Number, order.Status, domain.ErrStateConflict)
	}

	s.CancelAutomation(orderID)

	from := order.Status
	order, err = s.apply(ctx, order, status, actor)
	if err != nil {
		return order, err
	}

	s.log.Info("order_status_overridden", map[string]any{"order_number": order.Number, "from": from, "to": status, "actor": actor})
	s.notifier.Observe(order)
	s.broadcaster.Broadcast(domain.OrderBroadcast(domain.BroadcastOrderUpdated, order, s.sched.Now()))
	return order, nil
}

func (s *AutomationService) PayBill(ctx context.Context, orderID uint, actor string) (domain.Bill, error) {
	bill, err := s.store.MarkBillPaid(ctx, orderID)
	if err != nil {
		return bill, err
	}
	s.log.Info("bill_paid", map[string]any{"order_id": orderID, "total": bill.Total.StringFixed(2), "actor": actor})
	if order, err := s.store.GetOrder(ctx, orderID); err == nil {
		ev := domain.OrderBroadcast(domain.BroadcastOrderUpdated, order, s.sched.Now())
		ev.Message = "bill paid"
		s.broadcaster.Broadcast(ev)
	}
	return bill, nil
}

// Resume re-attaches automation to every persisted order that was still in
// flight when the process stopped. It returns how many chains were armed.
func (s *AutomationService) Resume(ctx context.Context) (int, error) {
	orders, err := s.store.ListAutomatableOrders(ctx)
	if err != nil {
		return 0, err
	}
	resumed := 0
	for _, order := range orders {
		if s.IsAutomated(order.ID) {
			continue
		}
		if order.Status == domain.StatusPending {
			if err := s.StartAutomation(ctx, order.ID); err != nil {
				s.log.Error("automation_resume_failed", err, map[string]any{"order_number": order.Number})
				continue
			}
			resumed++
			continue
		}
		if err := s.reattach(ctx, order); err != nil {
			s.log.Error("automation_resume_failed", err, map[string]any{"order_number": order.Number})
			continue
		}
		resumed++
	}
	s.log.Info("automation_resume_done", map[string]any{"orders": len(orders), "resumed": resumed})
	return resumed, nil
}

func (s *AutomationService) reattach(ctx context.Context, order domain.Order) error {
	if _, ok := NextStatus(order.Status); !ok {
		return nil
	}
	items, err := s.store.GetOrderItems(ctx, order.ID)
	if err != nil {
		return err
	}
	c := &chain{orderID: order.ID, factor: s.engine.ComplexityFactor(items), expected: order.Status}

	s.mu.Lock()
	if _, ok := s.chains[order.ID]; ok {
		s.mu.Unlock()
		return nil
	}
	s.chains[order.ID] = c
	s.mu.Unlock()

	s.notifier.WatchOrder(s.ctx, order)
	s.arm(c, order.Status)
	return nil
}

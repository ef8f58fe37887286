package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"restaurant-automation/internal/domain"
)

const numberAttempts = 5

// CreateOrder inserts the order with its items and an order_created activity
// entry in one transaction. The human-readable number (ORD_YYYYMMDD_NNN) is
// assigned here; a concurrent insert that takes the same number is retried.
func (s *Store) CreateOrder(ctx context.Context, order *domain.Order, actor string) error {
	if len(order.Items) == 0 {
		return fmt.Errorf("create order: %w: order has no items", domain.ErrValidation)
	}
	order.TotalAmount = domain.ItemsTotal(order.Items)

	var err error
	for attempt := 0; attempt < numberAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			number, err := nextOrderNumber(tx)
			if err != nil {
				return err
			}
			order.Number = number
			if err := tx.Create(order).Error; err != nil {
				return err
			}
			return tx.Create(&domain.ActivityLogEntry{
				OrderID:  order.ID,
				Action:   domain.ActivityOrderCreated,
				ToStatus: order.Status,
				Actor:    actor,
				Details:  fmt.Sprintf("channel=%s total=%s", order.Channel, order.TotalAmount.StringFixed(2)),
			}).Error
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		order.ID = 0
		for i := range order.Items {
			order.Items[i].ID = 0
			order.Items[i].OrderID = 0
		}
	}
	return wrap("create order", err)
}

func nextOrderNumber(tx *gorm.DB) (string, error) {
	prefix := "ORD_" + tx.NowFunc().UTC().Format("20060102") + "_"
	var count int64
	if err := tx.Model(&domain.Order{}).Where("number LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}

func (s *Store) GetOrder(ctx context.Context, id uint) (domain.Order, error) {
	var o domain.Order
	err := s.db.WithContext(ctx).First(&o, id).Error
	return o, wrap("get order", err)
}

func (s *Store) GetOrderItems(ctx context.Context, orderID uint) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id").Find(&items).Error
	return items, wrap("get order items", err)
}

func (s *Store) UpdateOrder(ctx context.Context, id uint, expected domain.OrderStatus, patch OrderPatch) error {
	cols := patch.columns()
	if len(cols) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(cols)
	if res.Error != nil {
		return wrap("update order", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	// ничего не обновили: либо заказа нет, либо статус уже другой
	var n int64
	if err := s.db.WithContext(ctx).Model(&domain.Order{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return wrap("update order", err)
	}
	if n == 0 {
		return wrap("update order", domain.ErrNotFound)
	}
	return wrap("update order", domain.ErrStateConflict)
}

// ListAutomatableOrders returns orders that opted into automation and have not
// reached a terminal status.
func (s *Store) ListAutomatableOrders(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	err := s.db.WithContext(ctx).
		Where("automation_enabled = ? AND status IN ?", true, []domain.OrderStatus{
			domain.StatusPending, domain.StatusPreparing, domain.StatusReady, domain.StatusCompleted,
		}).
		Order("id").
		Find(&out).Error
	return out, wrap("list automatable orders", err)
}

package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"restaurant-automation/internal/domain"
)

var activeTicketStatuses = []domain.TicketStatus{domain.TicketPending, domain.TicketInProgress}

// CreateKitchenTicket fails with ErrStateConflict when the order already has one.
func (s *Store) CreateKitchenTicket(ctx context.Context, ticket *domain.KitchenTicket) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(ticket).Error
	})
	return wrap("create kitchen ticket", err)
}

func (s *Store) GetKitchenTicketByOrder(ctx context.Context, orderID uint) (domain.KitchenTicket, error) {
	var t domain.KitchenTicket
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&t).Error
	return t, wrap("get kitchen ticket", err)
}

// UpdateKitchenTicket moves the order's ticket to status. started_at and
// completed_at are written only the first time the ticket enters the
// corresponding status.
func (s *Store) UpdateKitchenTicket(ctx context.Context, orderID uint, status domain.TicketStatus) (domain.KitchenTicket, error) {
	now := s.db.NowFunc()
	cols := map[string]any{"status": status}
	switch status {
	case domain.TicketInProgress:
		cols["started_at"] = gorm.Expr("COALESCE(started_at, ?)", now)
	case domain.TicketCompleted:
		cols["started_at"] = gorm.Expr("COALESCE(started_at, ?)", now)
		cols["completed_at"] = gorm.Expr("COALESCE(completed_at, ?)", now)
	case domain.TicketPending:
	default:
		return domain.KitchenTicket{}, fmt.Errorf("update kitchen ticket: %w: unknown status %q", domain.ErrValidation, status)
	}

	var out domain.KitchenTicket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.KitchenTicket{}).Where("order_id = ?", orderID).Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("order_id = ?", orderID).First(&out).Error
	})
	return out, wrap("update kitchen ticket", err)
}

func (s *Store) ListActiveKitchenTickets(ctx context.Context) ([]domain.KitchenTicket, error) {
	var out []domain.KitchenTicket
	err := s.db.WithContext(ctx).Where("status IN ?", activeTicketStatuses).Order("id").Find(&out).Error
	return out, wrap("list kitchen tickets", err)
}

func (s *Store) CountActiveKitchenTickets(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.KitchenTicket{}).Where("status IN ?", activeTicketStatuses).Count(&n).Error
	return n, wrap("count kitchen tickets", err)
}

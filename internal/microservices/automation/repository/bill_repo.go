package repository

import (
	"context"

	"gorm.io/gorm"

	"restaurant-automation/internal/domain"
)

// CreateBill fails with ErrStateConflict when the order is already billed.
// Inside InTx the insert runs under a savepoint, so a duplicate does not
// abort the surrounding transaction.
func (s *Store) CreateBill(ctx context.Context, bill *domain.Bill) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(bill).Error
	})
	return wrap("create bill", err)
}

func (s *Store) GetBillByOrder(ctx context.Context, orderID uint) (domain.Bill, error) {
	var b domain.Bill
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&b).Error
	return b, wrap("get bill", err)
}

// MarkBillPaid is the only mutation a bill ever sees. A paid bill is locked.
func (s *Store) MarkBillPaid(ctx context.Context, orderID uint) (domain.Bill, error) {
	var out domain.Bill
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Bill{}).
			Where("order_id = ? AND payment_status = ?", orderID, domain.PaymentPending).
			Updates(map[string]any{"payment_status": domain.PaymentPaid, "paid_at": tx.NowFunc()})
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Where("order_id = ?", orderID).First(&out).Error; err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return domain.ErrBillLocked
		}
		return tx.Create(&domain.ActivityLogEntry{
			OrderID: orderID,
			Action:  domain.ActivityBillPaid,
			Actor:   "staff",
			Details: "total=" + out.Total.StringFixed(2),
		}).Error
	})
	return out, wrap("mark bill paid", err)
}

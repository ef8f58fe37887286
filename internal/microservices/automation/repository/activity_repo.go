package repository

import (
	"context"

	"restaurant-automation/internal/domain"
)

func (s *Store) RecordActivity(ctx context.Context, entry *domain.ActivityLogEntry) error {
	return wrap("record activity", s.db.WithContext(ctx).Create(entry).Error)
}

// ListActivity returns an order's timeline, oldest first.
func (s *Store) ListActivity(ctx context.Context, orderID uint, limit, offset int) ([]domain.ActivityLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var out []domain.ActivityLogEntry
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Limit(limit).Offset(offset).
		Find(&out).Error
	return out, wrap("list activity", err)
}

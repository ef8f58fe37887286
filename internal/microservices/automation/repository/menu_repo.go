package repository

import (
	"context"

	"restaurant-automation/internal/domain"
)

func (s *Store) CreateMenuItem(ctx context.Context, item *domain.MenuItem) error {
	return wrap("create menu item", s.db.WithContext(ctx).Create(item).Error)
}

func (s *Store) ListMenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	var out []domain.MenuItem
	err := s.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, wrap("list menu items", err)
}

// GetMenuItemsByIds returns the items that exist; missing ids are simply absent.
func (s *Store) GetMenuItemsByIds(ctx context.Context, ids []uint) ([]domain.MenuItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.MenuItem
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&out).Error
	return out, wrap("get menu items", err)
}

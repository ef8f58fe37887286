package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"restaurant-automation/internal/domain"
)

type OrderRepositoryInterface interface {
	CreateOrder(ctx context.Context, order *domain.Order, actor string) error
	GetOrder(ctx context.Context, id uint) (domain.Order, error)
	GetOrderItems(ctx context.Context, orderID uint) ([]domain.OrderItem, error)
	// UpdateOrder applies patch only while the persisted status still equals expected.
	UpdateOrder(ctx context.Context, id uint, expected domain.OrderStatus, patch OrderPatch) error
	ListAutomatableOrders(ctx context.Context) ([]domain.Order, error)
}

type MenuRepositoryInterface interface {
	CreateMenuItem(ctx context.Context, item *domain.MenuItem) error
	ListMenuItems(ctx context.Context) ([]domain.MenuItem, error)
	GetMenuItemsByIds(ctx context.Context, ids []uint) ([]domain.MenuItem, error)
}

type KitchenRepositoryInterface interface {
	CreateKitchenTicket(ctx context.Context, ticket *domain.KitchenTicket) error
	GetKitchenTicketByOrder(ctx context.Context, orderID uint) (domain.KitchenTicket, error)
	UpdateKitchenTicket(ctx context.Context, orderID uint, status domain.TicketStatus) (domain.KitchenTicket, error)
	ListActiveKitchenTickets(ctx context.Context) ([]domain.KitchenTicket, error)
	CountActiveKitchenTickets(ctx context.Context) (int64, error)
}

type BillRepositoryInterface interface {
	CreateBill(ctx context.Context, bill *domain.Bill) error
	GetBillByOrder(ctx context.Context, orderID uint) (domain.Bill, error)
	MarkBillPaid(ctx context.Context, orderID uint) (domain.Bill, error)
}

type ActivityRepositoryInterface interface {
	RecordActivity(ctx context.Context, entry *domain.ActivityLogEntry) error
	ListActivity(ctx context.Context, orderID uint, limit, offset int) ([]domain.ActivityLogEntry, error)
}

// StorageInterface is everything the automation service persists through.
type StorageInterface interface {
	OrderRepositoryInterface
	MenuRepositoryInterface
	KitchenRepositoryInterface
	BillRepositoryInterface
	ActivityRepositoryInterface
	// InTx runs fn against storage bound to one transaction. An error from fn
	// rolls back every write fn made.
	InTx(ctx context.Context, fn func(tx StorageInterface) error) error
}

// OrderPatch lists the order columns automation is allowed to change.
type OrderPatch struct {
	Status               *domain.OrderStatus
	Priority             *int
	EstimatedPrepMinutes *int
}

func (p OrderPatch) columns() map[string]any {
	cols := map[string]any{}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.Priority != nil {
		cols["priority"] = *p.Priority
	}
	if p.EstimatedPrepMinutes != nil {
		cols["estimated_prep_minutes"] = *p.EstimatedPrepMinutes
	}
	return cols
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) InTx(ctx context.Context, fn func(tx StorageInterface) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
	return wrap("transaction", err)
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// wrap maps driver/gorm errors onto the domain taxonomy.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, domain.ErrStateConflict)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrStateConflict),
		errors.Is(err, domain.ErrBillLocked), errors.Is(err, domain.ErrStorage):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
	}
}

package service

import (
	"context"
	"errors"
	"time"

	"restaurant-automation/internal/domain"
	"restaurant-automation/internal/microservices/tracker/models"
)

const (
	DefaultTimelineLimit = 50
	MaxTimelineLimit     = 200
)

type TrackerServiceInterface interface {
	GetOrderView(ctx context.Context, id uint) (models.OrderView, error)
	GetOrderStatus(ctx context.Context, id uint) (models.StatusView, error)
	GetOrderTimeline(ctx context.Context, id uint, limit, offset int) (models.Timeline, error)
	KitchenLoad() models.KitchenLoad
}

type Reader interface {
	GetOrder(ctx context.Context, id uint) (domain.Order, error)
	GetOrderItems(ctx context.Context, orderID uint) ([]domain.OrderItem, error)
	GetKitchenTicketByOrder(ctx context.Context, orderID uint) (domain.KitchenTicket, error)
	GetBillByOrder(ctx context.Context, orderID uint) (domain.Bill, error)
	ListActivity(ctx context.Context, orderID uint, limit, offset int) ([]domain.ActivityLogEntry, error)
}

type LoadGauge interface {
	Active() int64
	Capacity() int
	Load() float64
}

type AutomationChecker interface {
	IsAutomated(orderID uint) bool
}

type TrackerService struct {
	repo       Reader
	gauge      LoadGauge
	automation AutomationChecker
}

func NewTrackerService(repo Reader, gauge LoadGauge, automation AutomationChecker) *TrackerService {
	return &TrackerService{repo: repo, gauge: gauge, automation: automation}
}

func (s *TrackerService) GetOrderView(ctx context.Context, id uint) (models.OrderView, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return models.OrderView{}, err
	}
	if o.Items, err = s.repo.GetOrderItems(ctx, id); err != nil {
		return models.OrderView{}, err
	}
	v := models.OrderView{Order: o}
	if s.automation != nil {
		v.Automated = s.automation.IsAutomated(id)
	}
	if o.EstimatedPrepMinutes > 0 {
		eta := o.CreatedAt.Add(minutes(o.EstimatedPrepMinutes))
		v.EstimatedCompletion = &eta
	}

	t, err := s.repo.GetKitchenTicketByOrder(ctx, id)
	switch {
	case err == nil:
		v.Ticket = &t
	case !errors.Is(err, domain.ErrNotFound):
		return models.OrderView{}, err
	}
	b, err := s.repo.GetBillByOrder(ctx, id)
	switch {
	case err == nil:
		v.Bill = &b
	case !errors.Is(err, domain.ErrNotFound):
		return models.OrderView{}, err
	}
	return v, nil
}

func (s *TrackerService) GetOrderStatus(ctx context.Context, id uint) (models.StatusView, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return models.StatusView{}, err
	}
	return models.StatusView{OrderID: o.ID, OrderNumber: o.Number, Status: o.Status, UpdatedAt: o.UpdatedAt}, nil
}

// GetOrderTimeline returns the activity log oldest first. The order must exist.
func (s *TrackerService) GetOrderTimeline(ctx context.Context, id uint, limit, offset int) (models.Timeline, error) {
	if limit <= 0 {
		limit = DefaultTimelineLimit
	}
	if limit > MaxTimelineLimit {
		limit = MaxTimelineLimit
	}
	if offset < 0 {
		offset = 0
	}
	if _, err := s.repo.GetOrder(ctx, id); err != nil {
		return models.Timeline{}, err
	}
	events, err := s.repo.ListActivity(ctx, id, limit, offset)
	if err != nil {
		return models.Timeline{}, err
	}
	if events == nil {
		events = []domain.ActivityLogEntry{}
	}
	return models.Timeline{OrderID: id, Events: events, Limit: limit, Offset: offset}, nil
}

func (s *TrackerService) KitchenLoad() models.KitchenLoad {
	if s.gauge == nil {
		return models.KitchenLoad{}
	}
	return models.KitchenLoad{ActiveTickets: s.gauge.Active(), Capacity: s.gauge.Capacity(), Load: s.gauge.Load()}
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }

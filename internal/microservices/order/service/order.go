package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-automation/internal/common/logger"
	"restaurant-automation/internal/domain"
)

type OrderServiceInterface interface {
	AddOrder(ctx context.Context, req domain.CreateOrderRequest, actor string) (domain.CreateOrderResponse, error)
	AddMenuItem(ctx context.Context, req domain.CreateMenuItemRequest) (domain.MenuItem, error)
	ListMenu(ctx context.Context) ([]domain.MenuItem, error)
}

type Repository interface {
	CreateOrder(ctx context.Context, order *domain.Order, actor string) error
	CreateMenuItem(ctx context.Context, item *domain.MenuItem) error
	ListMenuItems(ctx context.Context) ([]domain.MenuItem, error)
	GetMenuItemsByIds(ctx context.Context, ids []uint) ([]domain.MenuItem, error)
}

// Accepter hands the persisted order to automation (in-process or via the broker).
type Accepter interface {
	Accept(ctx context.Context, order domain.Order) error
}

type Broadcaster interface {
	Broadcast(ev domain.BroadcastEvent)
}

type OrderService struct {
	db       Repository
	accepter Accepter
	bc       Broadcaster
	log      *logger.Logger
	now      func() time.Time
}

func NewOrderService(db Repository, accepter Accepter, bc Broadcaster, log *logger.Logger, now func() time.Time) *OrderService {
	if log == nil {
		log = logger.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &OrderService{db: db, accepter: accepter, bc: bc, log: log, now: now}
}

func (or *OrderService) AddOrder(ctx context.Context, req domain.CreateOrderRequest, actor string) (domain.CreateOrderResponse, error) {
	// 1. Basic validation
	if strings.TrimSpace(req.CustomerName) == "" {
		return domain.CreateOrderResponse{}, fmt.Errorf("%w: customer name is required", domain.ErrValidation)
	}
	if !req.Channel.Valid() {
		return domain.CreateOrderResponse{}, fmt.Errorf("%w: unknown channel %q", domain.ErrValidation, req.Channel)
	}
	if len(req.Items) == 0 {
		return domain.CreateOrderResponse{}, fmt.Errorf("%w: at least one item is required", domain.ErrValidation)
	}

	// 2. Snapshot menu prices
	qty := map[uint]int{}
	var ids []uint
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return domain.CreateOrderResponse{}, fmt.Errorf("%w: invalid quantity for menu item %d", domain.ErrValidation, it.MenuItemID)
		}
		if _, seen := qty[it.MenuItemID]; !seen {
			ids = append(ids, it.MenuItemID)
		}
		qty[it.MenuItemID] += it.Quantity
	}
	menu, err := or.db.GetMenuItemsByIds(ctx, ids)
	if err != nil {
		return domain.CreateOrderResponse{}, err
	}
	byID := make(map[uint]domain.MenuItem, len(menu))
	for _, m := range menu {
		byID[m.ID] = m
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	items := make([]domain.OrderItem, 0, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			return domain.CreateOrderResponse{}, fmt.Errorf("%w: menu item %d does not exist", domain.ErrValidation, id)
		}
		items = append(items, domain.OrderItem{MenuItemID: id, Name: m.Name, Quantity: qty[id], UnitPrice: m.Price})
	}

	// 3. Save order (number and total are assigned by the repository)
	automated := true
	if req.AutomationEnabled != nil {
		automated = *req.AutomationEnabled
	}
	order := domain.Order{
		CustomerName:      strings.TrimSpace(req.CustomerName),
		CustomerContact:   req.CustomerContact,
		Channel:           req.Channel,
		Status:            domain.StatusPending,
		Notes:             req.Notes,
		AutomationEnabled: automated,
		Items:             items,
	}
	if err := or.db.CreateOrder(ctx, &order, actor); err != nil {
		return domain.CreateOrderResponse{}, err
	}
	or.log.Info("order_created", map[string]any{
		"order_number": order.Number,
		"channel":      order.Channel,
		"total":        order.TotalAmount.StringFixed(2),
	})
	if or.bc != nil {
		or.bc.Broadcast(domain.OrderBroadcast(domain.BroadcastOrderCreated, order, or.now()))
	}

	// 4. Hand over to automation
	if automated && or.accepter != nil {
		if err := or.accepter.Accept(ctx, order); err != nil {
			// заказ уже сохранён; автоматизацию подхватит Resume при рестарте
			or.log.Error("automation_handover_failed", err, map[string]any{"order_number": order.Number})
			automated = false
		}
	}

	return domain.CreateOrderResponse{
		ID:          order.ID,
		OrderNumber: order.Number,
		Status:      order.Status,
		TotalAmount: order.TotalAmount.StringFixed(2),
		Automated:   automated,
	}, nil
}

func (or *OrderService) AddMenuItem(ctx context.Context, req domain.CreateMenuItemRequest) (domain.MenuItem, error) {
	if strings.TrimSpace(req.Name) == "" {
		return domain.MenuItem{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || !price.IsPositive() {
		return domain.MenuItem{}, fmt.Errorf("%w: price must be a positive decimal", domain.ErrValidation)
	}
	item := domain.MenuItem{Name: strings.TrimSpace(req.Name), Description: req.Description, Price: price.Round(2)}
	if err := or.db.CreateMenuItem(ctx, &item); err != nil {
		return domain.MenuItem{}, err
	}
	return item, nil
}

func (or *OrderService) ListMenu(ctx context.Context) ([]domain.MenuItem, error) {
	return or.db.ListMenuItems(ctx)
}

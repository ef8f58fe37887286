package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"restaurant-automation/internal/connections/database"
	"restaurant-automation/internal/domain"
	"restaurant-automation/internal/microservices/automation/repository"
)

type recordingAccepter struct {
	accepted []domain.Order
	err      error
}

func (r *recordingAccepter) Accept(_ context.Context, o domain.Order) error {
	if r.err != nil {
		return r.err
	}
	r.accepted = append(r.accepted, o)
	return nil
}

type recordingBroadcaster struct{ events []domain.BroadcastEvent }

func (r *recordingBroadcaster) Broadcast(ev domain.BroadcastEvent) { r.events = append(r.events, ev) }

type OrderServiceSuite struct {
	suite.Suite
	store    *repository.Store
	accepter *recordingAccepter
	bc       *recordingBroadcaster
	svc      *OrderService
	ctx      context.Context
	dosa     domain.MenuItem
	chai     domain.MenuItem
}

func TestOrderServiceSuite(t *testing.T) { suite.Run(t, new(OrderServiceSuite)) }

func (s *OrderServiceSuite) SetupTest() {
	now := func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	db, err := database.OpenSQLite(":memory:", database.Options{NowFunc: now, Silent: true})
	s.Require().NoError(err)
	s.Require().NoError(repository.Migrate(db))
	s.store = repository.NewStore(db)
	s.accepter = &recordingAccepter{}
	s.bc = &recordingBroadcaster{}
	s.svc = NewOrderService(s.store, s.accepter, s.bc, nil, now)
	s.ctx = context.Background()

	s.dosa, err = s.svc.AddMenuItem(s.ctx, domain.CreateMenuItemRequest{Name: "Dosa", Price: "4.50"})
	s.Require().NoError(err)
	s.chai, err = s.svc.AddMenuItem(s.ctx, domain.CreateMenuItemRequest{Name: "Chai", Price: "1.25"})
	s.Require().NoError(err)
}

func (s *OrderServiceSuite) TearDownTest() { _ = database.Close(s.store.DB()) }

func (s *OrderServiceSuite) TestAddOrderSnapshotsPricesAndStartsAutomation() {
	resp, err := s.svc.AddOrder(s.ctx, domain.CreateOrderRequest{
		CustomerName: " Meera ",
		Channel:      domain.ChannelWhatsApp,
		Items: []domain.CreateOrderItem{
			{MenuItemID: s.chai.ID, Quantity: 2},
			{MenuItemID: s.dosa.ID, Quantity: 1},
			{MenuItemID: s.chai.ID, Quantity: 1},
		},
	}, "staff")
	s.Require().NoError(err)

	s.Equal("ORD_20250601_001", resp.OrderNumber)
	s.Equal(domain.StatusPending, resp.Status)
	s.Equal("8.25", resp.TotalAmount)
	s.True(resp.Automated)

	s.Require().Len(s.accepter.accepted, 1)
	s.Equal(resp.ID, s.accepter.accepted[0].ID)
	s.Require().Len(s.bc.events, 1)
	s.Equal(domain.BroadcastOrderCreated, s.bc.events[0].Type)

	items, err := s.store.GetOrderItems(s.ctx, resp.ID)
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal("Dosa", items[0].Name)
	s.Equal(3, items[1].Quantity)
	s.True(decimal.RequireFromString("1.25").Equal(items[1].UnitPrice))

	order, err := s.store.GetOrder(s.ctx, resp.ID)
	s.Require().NoError(err)
	s.Equal("Meera", order.CustomerName)
}

func (s *OrderServiceSuite) TestOptOutSkipsAutomation() {
	off := false
	resp, err := s.svc.AddOrder(s.ctx, domain.CreateOrderRequest{
		CustomerName:      "Ravi",
		Channel:           domain.ChannelManual,
		AutomationEnabled: &off,
		Items:             []domain.CreateOrderItem{{MenuItemID: s.dosa.ID, Quantity: 1}},
	}, "staff")
	s.Require().NoError(err)
	s.False(resp.Automated)
	s.Empty(s.accepter.accepted)
}

func (s *OrderServiceSuite) TestHandoverFailureKeepsOrder() {
	s.accepter.err = errors.New("broker unreachable")
	resp, err := s.svc.AddOrder(s.ctx, domain.CreateOrderRequest{
		CustomerName: "Ravi",
		Channel:      domain.ChannelSMS,
		Items:        []domain.CreateOrderItem{{MenuItemID: s.dosa.ID, Quantity: 1}},
	}, "staff")
	s.Require().NoError(err)
	s.False(resp.Automated)

	_, err = s.store.GetOrder(s.ctx, resp.ID)
	s.NoError(err)
}

func TestAddOrderValidation(t *testing.T) {
	db, err := database.OpenSQLite(":memory:", database.Options{Silent: true})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))
	store := repository.NewStore(db)
	svc := NewOrderService(store, nil, nil, nil, nil)
	ctx := context.Background()
	item, err := svc.AddMenuItem(ctx, domain.CreateMenuItemRequest{Name: "Vada", Price: "2"})
	require.NoError(t, err)

	cases := []struct {
		name string
		req  domain.CreateOrderRequest
	}{
		{"blank customer", domain.CreateOrderRequest{CustomerName: "  ", Channel: domain.ChannelWeb, Items: []domain.CreateOrderItem{{MenuItemID: item.ID, Quantity: 1}}}},
		{"unknown channel", domain.CreateOrderRequest{CustomerName: "A", Channel: "fax", Items: []domain.CreateOrderItem{{MenuItemID: item.ID, Quantity: 1}}}},
		{"no items", domain.CreateOrderRequest{CustomerName: "A", Channel: domain.ChannelWeb}},
		{"zero quantity", domain.CreateOrderRequest{CustomerName: "A", Channel: domain.ChannelWeb, Items: []domain.CreateOrderItem{{MenuItemID: item.ID}}}},
		{"unknown menu item", domain.CreateOrderRequest{CustomerName: "A", Channel: domain.ChannelWeb, Items: []domain.CreateOrderItem{{MenuItemID: 999, Quantity: 1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddOrder(ctx, tc.req, "staff")
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err = svc.AddMenuItem(ctx, domain.CreateMenuItemRequest{Name: "Free lunch", Price: "0"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.AddMenuItem(ctx, domain.CreateMenuItemRequest{Name: "Idli", Price: "two"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	menu, err := svc.ListMenu(ctx)
	require.NoError(t, err)
	assert.Len(t, menu, 1)
	assert.True(t, decimal.RequireFromString("2.00").Equal(menu[0].Price))
}

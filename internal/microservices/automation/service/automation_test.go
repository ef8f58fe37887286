package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"restaurant-automation/internal/common/scheduler"
	"restaurant-automation/internal/connections/database"
	"restaurant-automation/internal/connections/objectstore"
	"restaurant-automation/internal/domain"
	"restaurant-automation/internal/microservices/automation/decision"
	"restaurant-automation/internal/microservices/automation/load"
	"restaurant-automation/internal/microservices/automation/repository"
)

type fakeNotifier struct {
	mu        sync.Mutex
	notified  []domain.Event
	observed  []domain.OrderStatus
	watched   []uint
	onObserve func(domain.Order)
}

func (f *fakeNotifier) Notify(_ context.Context, _ domain.Order, ev domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, ev)
	return nil
}

func (f *fakeNotifier) WatchOrder(_ context.Context, o domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watched = append(f.watched, o.ID)
}

func (f *fakeNotifier) Observe(o domain.Order) {
	f.mu.Lock()
	f.observed = append(f.observed, o.Status)
	hook := f.onObserve
	f.mu.Unlock()
	if hook != nil {
		hook(o)
	}
}

func (f *fakeNotifier) statuses() []domain.OrderStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.OrderStatus(nil), f.observed...)
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []domain.BroadcastEvent
}

func (f *fakeBroadcaster) Broadcast(ev domain.BroadcastEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeBroadcaster) ofType(t domain.BroadcastType) []domain.BroadcastEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.BroadcastEvent
	for _, ev := range f.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// failingStore fails the order write that moves into failOrder and the ticket
// write that moves into failTicket, also inside transactions.
type failingStore struct {
	repository.StorageInterface
	failOrder  domain.OrderStatus
	failTicket domain.TicketStatus
}

func (f *failingStore) UpdateOrder(ctx context.Context, id uint, expected domain.OrderStatus, patch repository.OrderPatch) error {
	if patch.Status != nil && *patch.Status == f.failOrder {
		return fmt.Errorf("%w: disk full", domain.ErrStorage)
	}
	return f.StorageInterface.UpdateOrder(ctx, id, expected, patch)
}

func (f *failingStore) UpdateKitchenTicket(ctx context.Context, orderID uint, status domain.TicketStatus) (domain.KitchenTicket, error) {
	if status == f.failTicket {
		return domain.KitchenTicket{}, fmt.Errorf("%w: disk full", domain.ErrStorage)
	}
	return f.StorageInterface.UpdateKitchenTicket(ctx, orderID, status)
}

func (f *failingStore) InTx(ctx context.Context, fn func(tx repository.StorageInterface) error) error {
	return f.StorageInterface.InTx(ctx, func(tx repository.StorageInterface) error {
		return fn(&failingStore{StorageInterface: tx, failOrder: f.failOrder, failTicket: f.failTicket})
	})
}

type AutomationTestSuite struct {
	suite.Suite
	ctx      context.Context
	clk      *clock.Mock
	store    *repository.Store
	tracker  *load.Tracker
	notifier *fakeNotifier
	bcast    *fakeBroadcaster
	archive  *objectstore.MemoryReceiptArchive
	svc      *AutomationService
	menu     []domain.MenuItem
}

func (s *AutomationTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clk = clock.NewMock()
	s.clk.Add(time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC).Sub(s.clk.Now()))

	db, err := database.OpenSQLite(":memory:", database.Options{NowFunc: s.clk.Now, Silent: true})
	s.Require().NoError(err)
	s.Require().NoError(repository.Migrate(db))
	s.store = repository.NewStore(db)

	s.menu = nil
	for _, m := range []struct{ name, price, desc string }{
		{"Dosa", "4.50", "crispy"},
		{"Chai", "1.25", ""},
		{"Vada", "2.00", ""},
		{"Biryani", "9.00", "slow cooked dum"},
	} {
		item := domain.MenuItem{Name: m.name, Price: decimal.RequireFromString(m.price), Description: m.desc}
		s.Require().NoError(s.store.CreateMenuItem(s.ctx, &item))
		s.menu = append(s.menu, item)
	}

	s.svc = s.newService(s.store)
}

func (s *AutomationTestSuite) newService(store repository.StorageInterface) *AutomationService {
	s.tracker = load.NewTracker(20, nil)
	s.notifier = &fakeNotifier{}
	s.bcast = &fakeBroadcaster{}
	s.archive = objectstore.NewMemoryReceiptArchive()
	return NewAutomationService(Deps{
		Store:       store,
		Engine:      decision.NewEngine(decision.DefaultConfig()),
		Tracker:     s.tracker,
		Scheduler:   scheduler.New(s.clk, nil),
		Notifier:    s.notifier,
		Broadcaster: s.bcast,
		Archive:     s.archive,
	}, Options{
		Enabled:          true,
		AcknowledgeDelay: 3 * time.Second,
		BasePrepDelay:    30 * time.Second,
		ServingDelay:     10 * time.Second,
		BillingDelay:     5 * time.Second,
		TaxRate:          decimal.RequireFromString("0.05"),
	})
}

func (s *AutomationTestSuite) TearDownTest() {
	s.svc.Shutdown()
	_ = database.Close(s.store.DB())
}

func (s *AutomationTestSuite) newOrder(channel domain.Channel, notes string, menu ...domain.MenuItem) domain.Order {
	var items []domain.OrderItem
	for _, m := range menu {
		items = append(items, domain.OrderItem{MenuItemID: m.ID, Name: m.Name, Quantity: 1, UnitPrice: m.Price})
	}
	o := domain.Order{
		CustomerName:      "Meera",
		Channel:           channel,
		Notes:             notes,
		Status:            domain.StatusPending,
		AutomationEnabled: true,
		Items:             items,
	}
	s.Require().NoError(s.store.CreateOrder(s.ctx, &o, "test"))
	return o
}

func (s *AutomationTestSuite) status(id uint) domain.OrderStatus {
	o, err := s.store.GetOrder(s.ctx, id)
	s.Require().NoError(err)
	return o.Status
}

func (s *AutomationTestSuite) actions(id uint) []string {
	entries, err := s.store.ListActivity(s.ctx, id, 100, 0)
	s.Require().NoError(err)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func (s *AutomationTestSuite) TestFullLifecycle() {
	o := s.newOrder(domain.ChannelManual, "", s.menu[0], s.menu[1], s.menu[2])

	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))
	s.True(s.svc.IsAutomated(o.ID))
	s.Equal(int64(1), s.tracker.Active())

	got, err := s.store.GetOrder(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(5, got.Priority)
	s.Equal(10, got.EstimatedPrepMinutes)

	ticket, err := s.store.GetKitchenTicketByOrder(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(domain.TicketPending, ticket.Status)
	s.False(ticket.Urgent)

	s.clk.Add(2 * time.Second)
	s.Equal(domain.StatusPending, s.status(o.ID))

	s.clk.Add(time.Second)
	s.Equal(domain.StatusPreparing, s.status(o.ID))
	ticket, err = s.store.GetKitchenTicketByOrder(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(domain.TicketInProgress, ticket.Status)
	s.NotNil(ticket.StartedAt)

	s.clk.Add(30 * time.Second)
	s.Equal(domain.StatusReady, s.status(o.ID))
	ticket, err = s.store.GetKitchenTicketByOrder(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(domain.TicketCompleted, ticket.Status)
	s.Require().NotNil(ticket.CompletedAt)
	s.Equal(int64(0), s.tracker.Active())

	s.clk.Add(10 * time.Second)
	s.Equal(domain.StatusCompleted, s.status(o.ID))
	bill, err := s.store.GetBillByOrder(s.ctx, o.ID)
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("7.75").Equal(bill.Subtotal), bill.Subtotal.String())
	s.True(decimal.RequireFromString("0.39").Equal(bill.Tax), bill.Tax.String())
	s.True(decimal.RequireFromString("8.14").Equal(bill.Total), bill.Total.String())
	s.Equal(1, s.archive.Count())

	s.clk.Add(5 * time.Second)
	s.Equal(domain.StatusBilled, s.status(o.ID))
	s.False(s.svc.IsAutomated(o.ID))

	want := []domain.OrderStatus{domain.StatusPreparing, domain.StatusReady, domain.StatusCompleted, domain.StatusBilled}
	if diff := cmp.Diff(want, s.notifier.statuses()); diff != "" {
		s.Failf("observed statuses", "(-want +got):\n%s", diff)
	}
	s.Equal([]domain.Event{domain.Confirmed()}, s.notifier.notified)
	s.Equal([]uint{o.ID}, s.notifier.watched)
	s.Len(s.bcast.ofType(domain.BroadcastOrderUpdated), 5)

	wantActions := []string{
		domain.ActivityOrderCreated,
		domain.ActivityAutomationStarted,
		domain.ActivityStatusChanged,
		domain.ActivityStatusChanged,
		domain.ActivityBillCreated,
		domain.ActivityStatusChanged,
		domain.ActivityStatusChanged,
	}
	if diff := cmp.Diff(wantActions, s.actions(o.ID)); diff != "" {
		s.Failf("activity log", "(-want +got):\n%s", diff)
	}
}

func (s *AutomationTestSuite) TestStartTwiceIsNoop() {
	o := s.newOrder(domain.ChannelWeb, "", s.menu[0])

	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))
	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))
	s.Equal(1, s.svc.ActiveChains())
	s.Equal(int64(1), s.tracker.Active())

	s.clk.Add(time.Hour)
	s.Equal(domain.StatusBilled, s.status(o.ID))

	want := []domain.OrderStatus{domain.StatusPreparing, domain.StatusReady, domain.StatusCompleted, domain.StatusBilled}
	s.Equal(want, s.notifier.statuses())

	var bills int64
	s.Require().NoError(s.store.DB().Model(&domain.Bill{}).Where("order_id = ?", o.ID).Count(&bills).Error)
	s.Equal(int64(1), bills)
}

func (s *AutomationTestSuite) TestStartAgainMidChainIsNoop() {
	o := s.newOrder(domain.ChannelWeb, "", s.menu[0])
	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))
	s.clk.Add(3 * time.Second)
	s.Equal(domain.StatusPreparing, s.status(o.ID))
	s.True(s.svc.IsAutomated(o.ID))

	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))
	s.Equal(1, s.svc.ActiveChains())
	s.Equal(int64(1), s.tracker.Active())

	s.clk.Add(time.Hour)
	s.Equal(domain.StatusBilled, s.status(o.ID))

	// без цепочки повторный старт снова проверяет статус
	s.ErrorIs(s.svc.StartAutomation(s.ctx, o.ID), domain.ErrStateConflict)
}

func (s *AutomationTestSuite) TestPreparationDelayScalesWithComplexity() {
	var items []domain.OrderItem
	for i := 0; i < 6; i++ {
		m := domain.MenuItem{Name: fmt.Sprintf("Thali %d", i), Price: decimal.RequireFromString("3.00")}
		s.Require().NoError(s.store.CreateMenuItem(s.ctx, &m))
		items = append(items, domain.OrderItem{MenuItemID: m.ID, Name: m.Name, Quantity: 1, UnitPrice: m.Price})
	}
	o := domain.Order{CustomerName: "Big table", Channel: domain.ChannelManual, Status: domain.StatusPending, AutomationEnabled: true, Items: items}
	s.Require().NoError(s.store.CreateOrder(s.ctx, &o, "test"))

	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))
	s.clk.Add(3 * time.Second)
	s.Equal(domain.StatusPreparing, s.status(o.ID))

	// factor 1.5 gives 45s of preparation
	s.clk.Add(44 * time.Second)
	s.Equal(domain.StatusPreparing, s.status(o.ID))
	s.clk.Add(time.Second)
	s.Equal(domain.StatusReady, s.status(o.ID))
}

func (s *AutomationTestSuite) TestOrderOptedOut() {
	o := s.newOrder(domain.ChannelWeb, "", s.menu[0])
	off := false
	s.Require().NoError(s.store.DB().Model(&domain.Order{}).Where("id = ?", o.ID).Update("automation_enabled", off).Error)

	err := s.svc.StartAutomation(s.ctx, o.ID)
	s.ErrorIs(err, domain.ErrAutomationDisabled)
	s.False(s.svc.IsAutomated(o.ID))

	s.ErrorIs(s.svc.StartAutomation(s.ctx, 4040), domain.ErrNotFound)
}

func (s *AutomationTestSuite) TestCancelWithoutChainIsNoop() {
	s.False(s.svc.CancelAutomation(12345))
	s.Equal(0, s.svc.ActiveChains())
}

func (s *AutomationTestSuite) TestCancelMidChain() {
	o := s.newOrder(domain.ChannelWeb, "", s.menu[0])
	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))
	s.clk.Add(3 * time.Second)
	s.Equal(domain.StatusPreparing, s.status(o.ID))

	s.True(s.svc.CancelAutomation(o.ID))
	s.clk.Add(time.Hour)

	s.Equal(domain.StatusPreparing, s.status(o.ID))
	s.Equal([]domain.OrderStatus{domain.StatusPreparing}, s.notifier.statuses())
	s.Contains(s.actions(o.ID), domain.ActivityAutomationCanceled)
}

func (s *AutomationTestSuite) TestCancelDuringCallbackDoesNotRearm() {
	o := s.newOrder(domain.ChannelWeb, "", s.menu[0])
	s.notifier.onObserve = func(order domain.Order) {
		if order.Status == domain.StatusPreparing {
			s.svc.CancelAutomation(order.ID)
		}
	}
	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))

	s.clk.Add(3 * time.Second)
	s.False(s.svc.IsAutomated(o.ID))

	s.clk.Add(time.Hour)
	s.Equal(domain.StatusPreparing, s.status(o.ID))
	s.Equal([]domain.OrderStatus{domain.StatusPreparing}, s.notifier.statuses())
}

func (s *AutomationTestSuite) TestStorageFailureStallsChain() {
	s.svc.Shutdown()
	s.svc = s.newService(&failingStore{StorageInterface: s.store, failOrder: domain.StatusReady})

	o := s.newOrder(domain.ChannelWeb, "", s.menu[0])
	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))
	s.clk.Add(3 * time.Second)
	s.Equal(domain.StatusPreparing, s.status(o.ID))

	s.clk.Add(30 * time.Second)
	s.Equal(domain.StatusPreparing, s.status(o.ID))
	s.False(s.svc.IsAutomated(o.ID))
	s.Contains(s.actions(o.ID), domain.ActivityAutomationStalled)

	stalled := s.bcast.ofType(domain.BroadcastAutomationStalled)
	s.Require().Len(stalled, 1)
	s.Equal(domain.StatusPreparing, stalled[0].Status)

	s.clk.Add(time.Hour)
	s.Equal(domain.StatusPreparing, s.status(o.ID))
	s.Equal([]domain.OrderStatus{domain.StatusPreparing}, s.notifier.statuses())

	_, err := s.store.GetBillByOrder(s.ctx, o.ID)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *AutomationTestSuite) TestTicketFailureRollsBackTransition() {
	s.svc.Shutdown()
	s.svc = s.newService(&failingStore{StorageInterface: s.store, failTicket: domain.TicketCompleted})

	o := s.newOrder(domain.ChannelWeb, "", s.menu[0])
	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))
	s.clk.Add(3 * time.Second)
	s.Equal(domain.StatusPreparing, s.status(o.ID))

	s.clk.Add(30 * time.Second)
	s.Equal(domain.StatusPreparing, s.status(o.ID))
	s.False(s.svc.IsAutomated(o.ID))

	ticket, err := s.store.GetKitchenTicketByOrder(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(domain.TicketInProgress, ticket.Status)
	s.Nil(ticket.CompletedAt)
	s.Equal(int64(1), s.tracker.Active())

	want := []string{
		domain.ActivityOrderCreated,
		domain.ActivityAutomationStarted,
		domain.ActivityStatusChanged,
		domain.ActivityAutomationStalled,
	}
	if diff := cmp.Diff(want, s.actions(o.ID)); diff != "" {
		s.Failf("activity log", "(-want +got):\n%s", diff)
	}
	stalled := s.bcast.ofType(domain.BroadcastAutomationStalled)
	s.Require().Len(stalled, 1)
	s.Equal(domain.StatusPreparing, stalled[0].Status)
	s.Equal([]domain.OrderStatus{domain.StatusPreparing}, s.notifier.statuses())
}

func (s *AutomationTestSuite) TestOverrideFailureWritesNothing() {
	s.svc.Shutdown()
	s.svc = s.newService(&failingStore{StorageInterface: s.store, failTicket: domain.TicketCompleted})

	o := s.newOrder(domain.ChannelWeb, "", s.menu[0])
	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))

	_, err := s.svc.OverrideStatus(s.ctx, o.ID, domain.StatusCompleted, "staff:ravi")
	s.ErrorIs(err, domain.ErrStorage)
	s.Equal(domain.StatusPending, s.status(o.ID))
	_, err = s.store.GetBillByOrder(s.ctx, o.ID)
	s.ErrorIs(err, domain.ErrNotFound)
	s.NotContains(s.actions(o.ID), domain.ActivityBillCreated)
	s.Equal(0, s.archive.Count())
}

func (s *AutomationTestSuite) TestManualAdvanceEndsChainSilently() {
	o := s.newOrder(domain.ChannelWeb, "", s.menu[0])
	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))

	st := domain.StatusPreparing
	s.Require().NoError(s.store.UpdateOrder(s.ctx, o.ID, domain.StatusPending, repository.OrderPatch{Status: &st}))

	s.clk.Add(time.Hour)
	s.Equal(domain.StatusPreparing, s.status(o.ID))
	s.False(s.svc.IsAutomated(o.ID))
	s.Empty(s.notifier.statuses())
	s.NotContains(s.actions(o.ID), domain.ActivityAutomationStalled)
}

func (s *AutomationTestSuite) TestGlobalSwitchParksAndResumes() {
	o := s.newOrder(domain.ChannelWeb, "", s.menu[0])
	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))

	s.svc.SetGlobalEnabled(false)
	s.False(s.svc.IsGlobalEnabled())
	s.clk.Add(time.Hour)
	s.Equal(domain.StatusPending, s.status(o.ID))
	s.True(s.svc.IsAutomated(o.ID))

	s.svc.SetGlobalEnabled(true)
	s.clk.Add(3 * time.Second)
	s.Equal(domain.StatusPreparing, s.status(o.ID))

	s.clk.Add(time.Hour)
	s.Equal(domain.StatusBilled, s.status(o.ID))
}

func (s *AutomationTestSuite) TestLateParkAfterReenableRearms() {
	o := s.newOrder(domain.ChannelWeb, "", s.menu[0])
	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))

	s.svc.mu.Lock()
	c := s.svc.chains[o.ID]
	s.svc.mu.Unlock()
	s.Require().NotNil(c)
	c.task.Cancel()

	// колбэк увидел выключенный переключатель, но до park его уже включили
	s.svc.park(c)
	s.svc.mu.Lock()
	parked := c.parked
	s.svc.mu.Unlock()
	s.False(parked)

	s.clk.Add(time.Hour)
	s.Equal(domain.StatusBilled, s.status(o.ID))
	s.False(s.svc.IsAutomated(o.ID))
}

func (s *AutomationTestSuite) TestStartWhileDisabledParks() {
	s.svc.SetGlobalEnabled(false)
	o := s.newOrder(domain.ChannelWeb, "", s.menu[0])
	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))

	s.clk.Add(time.Hour)
	s.Equal(domain.StatusPending, s.status(o.ID))

	s.svc.SetGlobalEnabled(true)
	s.clk.Add(time.Hour)
	s.Equal(domain.StatusBilled, s.status(o.ID))
}

func (s *AutomationTestSuite) TestOverrideStatusCancelsAutomation() {
	o := s.newOrder(domain.ChannelWeb, "", s.menu[0])
	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))

	got, err := s.svc.OverrideStatus(s.ctx, o.ID, domain.StatusReady, "staff:ravi")
	s.Require().NoError(err)
	s.Equal(domain.StatusReady, got.Status)
	s.False(s.svc.IsAutomated(o.ID))
	s.Equal(int64(0), s.tracker.Active())

	s.clk.Add(time.Hour)
	s.Equal(domain.StatusReady, s.status(o.ID))

	_, err = s.svc.OverrideStatus(s.ctx, o.ID, domain.StatusCompleted, "staff:ravi")
	s.Require().NoError(err)
	_, err = s.store.GetBillByOrder(s.ctx, o.ID)
	s.NoError(err)

	_, err = s.svc.OverrideStatus(s.ctx, o.ID, "bogus", "staff:ravi")
	s.ErrorIs(err, domain.ErrValidation)
}

func (s *AutomationTestSuite) TestPayBillLocksIt() {
	o := s.newOrder(domain.ChannelWeb, "", s.menu[0])
	s.Require().NoError(s.svc.StartAutomation(s.ctx, o.ID))
	s.clk.Add(time.Hour)

	bill, err := s.svc.PayBill(s.ctx, o.ID, "cashier")
	s.Require().NoError(err)
	s.Equal(domain.PaymentPaid, bill.PaymentStatus)

	_, err = s.svc.PayBill(s.ctx, o.ID, "cashier")
	s.ErrorIs(err, domain.ErrBillLocked)
}

func (s *AutomationTestSuite) TestResumeReattachesInFlightOrders() {
	pending := s.newOrder(domain.ChannelWeb, "", s.menu[0])
	cooking := s.newOrder(domain.ChannelWeb, "", s.menu[1])
	s.Require().NoError(s.store.CreateKitchenTicket(s.ctx, &domain.KitchenTicket{OrderID: cooking.ID, Status: domain.TicketPending, Priority: 5}))
	st := domain.StatusPreparing
	s.Require().NoError(s.store.UpdateOrder(s.ctx, cooking.ID, domain.StatusPending, repository.OrderPatch{Status: &st}))
	_, err := s.store.UpdateKitchenTicket(s.ctx, cooking.ID, domain.TicketInProgress)
	s.Require().NoError(err)
	s.Require().NoError(s.tracker.Reconcile(s.ctx, s.store))

	n, err := s.svc.Resume(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
	s.True(s.svc.IsAutomated(pending.ID))
	s.True(s.svc.IsAutomated(cooking.ID))

	again, err := s.svc.Resume(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, again)

	s.clk.Add(30 * time.Second)
	s.Equal(domain.StatusReady, s.status(cooking.ID))
	s.clk.Add(time.Hour)
	s.Equal(domain.StatusBilled, s.status(cooking.ID))
	s.Equal(domain.StatusBilled, s.status(pending.ID))
	s.Equal(int64(0), s.tracker.Active())
}

func (s *AutomationTestSuite) TestRecommendedSequence() {
	regular := s.newOrder(domain.ChannelManual, "", s.menu[0])
	vip := s.newOrder(domain.ChannelZomato, "VIP guest, table 4", s.menu[1])
	s.Require().NoError(s.svc.StartAutomation(s.ctx, regular.ID))
	s.Require().NoError(s.svc.StartAutomation(s.ctx, vip.ID))

	seq, err := s.svc.GetRecommendedSequence(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(seq, 2)
	s.Equal(vip.ID, seq[0].OrderID)
	s.Equal(8, seq[0].Priority)
	s.True(seq[0].Urgent)
	s.Equal(regular.ID, seq[1].OrderID)
}

func TestAutomationTestSuite(t *testing.T) {
	suite.Run(t, new(AutomationTestSuite))
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-automation/internal/common/scheduler"
	"restaurant-automation/internal/connections/database"
	"restaurant-automation/internal/domain"
	"restaurant-automation/internal/microservices/automation/decision"
	"restaurant-automation/internal/microservices/automation/load"
	"restaurant-automation/internal/microservices/automation/repository"
)

// newLiveService runs on the wall clock with millisecond delays, so timer
// callbacks fire on their own goroutines.
func newLiveService(t *testing.T) (*AutomationService, *repository.Store, domain.MenuItem) {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", database.Options{Silent: true})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))
	store := repository.NewStore(db)

	item := domain.MenuItem{Name: "Idli", Price: decimal.RequireFromString("2.50")}
	require.NoError(t, store.CreateMenuItem(context.Background(), &item))

	svc := NewAutomationService(Deps{
		Store:     store,
		Engine:    decision.NewEngine(decision.DefaultConfig()),
		Tracker:   load.NewTracker(50, nil),
		Scheduler: scheduler.New(nil, nil),
	}, Options{
		Enabled:          true,
		AcknowledgeDelay: 2 * time.Millisecond,
		BasePrepDelay:    2 * time.Millisecond,
		ServingDelay:     2 * time.Millisecond,
		BillingDelay:     2 * time.Millisecond,
		TaxRate:          decimal.RequireFromString("0.05"),
	})
	t.Cleanup(func() {
		svc.Shutdown()
		_ = database.Close(db)
	})
	return svc, store, item
}

func startOrders(t *testing.T, svc *AutomationService, store *repository.Store, item domain.MenuItem, n int) []domain.Order {
	t.Helper()
	orders := make([]domain.Order, n)
	for i := range orders {
		o := domain.Order{
			CustomerName:      "Table",
			Channel:           domain.ChannelManual,
			Status:            domain.StatusPending,
			AutomationEnabled: true,
			Items:             []domain.OrderItem{{MenuItemID: item.ID, Name: item.Name, Quantity: 1, UnitPrice: item.Price}},
		}
		require.NoError(t, store.CreateOrder(context.Background(), &o, "test"))
		require.NoError(t, svc.StartAutomation(context.Background(), o.ID))
		orders[i] = o
	}
	return orders
}

func TestCancelFromOtherGoroutinesStopsChains(t *testing.T) {
	svc, store, item := newLiveService(t)
	ctx := context.Background()
	orders := startOrders(t, svc, store, item, 12)

	seen := make([]domain.OrderStatus, len(orders))
	var wg sync.WaitGroup
	for i := range orders {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			time.Sleep(time.Duration(i) * time.Millisecond)
			svc.CancelAutomation(orders[i].ID)
			o, err := store.GetOrder(ctx, orders[i].ID)
			if assert.NoError(t, err) {
				seen[i] = o.Status
			}
		}(i)
	}
	wg.Wait()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, svc.ActiveChains())
	for i, o := range orders {
		got, err := store.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, seen[i], got.Status, "order %s changed after cancel returned", o.Number)
	}
}

func TestGlobalSwitchFlappingLeavesNoChainBehind(t *testing.T) {
	svc, store, item := newLiveService(t)
	ctx := context.Background()
	orders := startOrders(t, svc, store, item, 8)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 40; i++ {
			svc.SetGlobalEnabled(i%2 == 1)
			time.Sleep(500 * time.Microsecond)
		}
		svc.SetGlobalEnabled(true)
	}()
	<-done

	require.Eventually(t, func() bool { return svc.ActiveChains() == 0 }, 5*time.Second, 10*time.Millisecond)
	for _, o := range orders {
		got, err := store.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusBilled, got.Status, o.Number)
	}
}

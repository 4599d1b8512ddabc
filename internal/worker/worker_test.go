package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"bytron/internal/catalog"
	"bytron/internal/config"
	"bytron/internal/models"
	"bytron/internal/pricing"
	"bytron/internal/services"
	"bytron/internal/store"
	"bytron/internal/tron"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOracle struct{}

func (stubOracle) Rate(ctx context.Context) (float64, pricing.Source) {
	return 0.10, pricing.SourceLive
}

type stubExplorer struct {
	mu        sync.Mutex
	amountSun int64
}

func (s *stubExplorer) Transactions(ctx context.Context, address string, limit int) ([]tron.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.amountSun == 0 {
		return nil, nil
	}
	return []tron.Transaction{{
		TxID:        "feed01",
		ToAddress:   address,
		AmountSun:   s.amountSun,
		ContractRet: "SUCCESS",
		Timestamp:   time.Now().UTC(),
	}}, nil
}

func newTestWorker(explorer *stubExplorer) (*Worker, *services.OrderService) {
	st := store.NewMemory()
	n := 0
	svc := &services.OrderService{
		Store: st,
		Catalog: catalog.New(map[string]config.Product{
			"luckyjet": {PriceUSD: 100, File: "luckyjet.zip"},
		}),
		Oracle:   stubOracle{},
		Explorer: explorer,
		NewID: func() string {
			n++
			return fmt.Sprintf("order-%d", n)
		},
		ScanLimit: 50,
		Validity:  30 * time.Minute,
	}
	w := &Worker{
		Store:      st,
		Orders:     svc,
		Interval:   time.Second,
		AbandonTTL: 24 * time.Hour,
	}
	return w, svc
}

func TestSyncOnceConfirmsPendingOrders(t *testing.T) {
	ctx := context.Background()
	explorer := &stubExplorer{}
	w, svc := newTestWorker(explorer)

	order, err := svc.CreateOrder(ctx, "luckyjet")
	require.NoError(t, err)

	require.NoError(t, w.SyncOnce(ctx))
	got, err := w.Store.GetOrder(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCreated, got.State)

	explorer.mu.Lock()
	explorer.amountSun = order.RequiredSun
	explorer.mu.Unlock()

	require.NoError(t, w.SyncOnce(ctx))
	got, err = w.Store.GetOrder(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, got.State)
}

func TestSyncOnceReapsAbandonedOrders(t *testing.T) {
	ctx := context.Background()
	w, svc := newTestWorker(&stubExplorer{})

	order, err := svc.CreateOrder(ctx, "luckyjet")
	require.NoError(t, err)

	// Age the record beyond the abandon TTL.
	stale := &models.Order{
		OrderID:        order.OrderID,
		ProductID:      order.ProductID,
		RequiredSun:    order.RequiredSun,
		DepositAddress: order.DepositAddress,
		DepositSecret:  order.DepositSecret,
		State:          models.OrderCreated,
		CreatedAt:      time.Now().UTC().Add(-25 * time.Hour),
	}
	require.NoError(t, w.Store.CreateOrder(ctx, stale))

	require.NoError(t, w.SyncOnce(ctx))

	got, err := w.Store.GetOrder(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderExpired, got.State)
	assert.Empty(t, got.DepositSecret)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	w, _ := newTestWorker(&stubExplorer{})
	w.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

package store

import (
	"context"
	"testing"
	"time"

	"bytron/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(id string) *models.Order {
	return &models.Order{
		OrderID:        id,
		ProductID:      "luckyjet",
		RequiredSun:    1_000_000_000,
		DepositAddress: "TDeposit" + id,
		DepositSecret:  "secret-" + id,
		State:          models.OrderCreated,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestMemoryMarkPaidWinsOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateOrder(ctx, newOrder("a")))

	paidAt := time.Now().UTC()
	expiresAt := paidAt.Add(30 * time.Minute)

	won, err := m.MarkPaid(ctx, "a", 1_000_000_000, "tx1", paidAt, expiresAt)
	require.NoError(t, err)
	assert.True(t, won)

	// Second transition attempt loses without error.
	won, err = m.MarkPaid(ctx, "a", 2_000_000_000, "tx2", paidAt, expiresAt)
	require.NoError(t, err)
	assert.False(t, won)

	got, err := m.GetOrder(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, got.State)
	assert.Equal(t, "tx1", got.PaidTxID)
	assert.Equal(t, int64(1_000_000_000), got.PaidSun)
}

func TestMemoryMarkPaidUnknownOrder(t *testing.T) {
	m := NewMemory()
	_, err := m.MarkPaid(context.Background(), "ghost", 1, "tx", time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryGetOrderReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateOrder(ctx, newOrder("a")))

	got, err := m.GetOrder(ctx, "a")
	require.NoError(t, err)
	got.State = models.OrderPaid

	again, err := m.GetOrder(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCreated, again.State)
}

func TestMemoryMarkForwardedClearsSecret(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateOrder(ctx, newOrder("a")))

	require.NoError(t, m.MarkForwarded(ctx, "a"))

	got, err := m.GetOrder(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.Forwarded)
	assert.Empty(t, got.DepositSecret)
}

func TestMemoryRecordPaymentDedupes(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	p := &models.Payment{PaymentID: "p1", OrderID: "a", TxID: "tx1", AmountSun: 5}
	require.NoError(t, m.RecordPayment(ctx, p))
	require.NoError(t, m.RecordPayment(ctx, p))
	assert.Len(t, m.payments, 1)
}

func TestMemoryMarkAbandoned(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	old := newOrder("old")
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, m.CreateOrder(ctx, old))

	fresh := newOrder("fresh")
	require.NoError(t, m.CreateOrder(ctx, fresh))

	paid := newOrder("paid")
	paid.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, m.CreateOrder(ctx, paid))
	_, err := m.MarkPaid(ctx, "paid", 1, "tx", time.Now(), time.Now().Add(time.Minute))
	require.NoError(t, err)

	n, err := m.MarkAbandoned(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := m.GetOrder(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, models.OrderExpired, got.State)
	assert.Empty(t, got.DepositSecret)

	got, err = m.GetOrder(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCreated, got.State)

	got, err = m.GetOrder(ctx, "paid")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, got.State)
}

func TestMemoryListPending(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateOrder(ctx, newOrder("a")))
	require.NoError(t, m.CreateOrder(ctx, newOrder("b")))
	_, err := m.MarkPaid(ctx, "b", 1, "tx", time.Now(), time.Now().Add(time.Minute))
	require.NoError(t, err)

	pending, err := m.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].OrderID)
}

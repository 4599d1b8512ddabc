package store

import (
	"context"
	"sync"
	"time"

	"bytron/internal/models"
)

// Memory keeps orders for the lifetime of the process. It is the default
// store; the Postgres store is wired instead when a DSN is configured.
type Memory struct {
	mu       sync.RWMutex
	orders   map[string]*models.Order
	payments []models.Payment
}

func NewMemory() *Memory {
	return &Memory{orders: make(map[string]*models.Order)}
}

func (m *Memory) CreateOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.orders[order.OrderID] = &cp
	return nil
}

func (m *Memory) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (m *Memory) MarkPaid(ctx context.Context, orderID string, paidSun int64, txID string, paidAt, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return false, ErrNotFound
	}
	if order.State != models.OrderCreated {
		return false, nil
	}
	order.State = models.OrderPaid
	order.PaidSun = paidSun
	order.PaidTxID = txID
	order.PaidAt = &paidAt
	order.ExpiresAt = &expiresAt
	return true, nil
}

func (m *Memory) SetEmail(ctx context.Context, orderID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.NotificationEmail = email
	return nil
}

// MarkForwarded records a successful sweep and drops the deposit secret,
// which is no longer needed once funds have left the address.
func (m *Memory) MarkForwarded(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.Forwarded = true
	order.DepositSecret = ""
	return nil
}

func (m *Memory) RecordPayment(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.TxID == payment.TxID {
			return nil
		}
	}
	m.payments = append(m.payments, *payment)
	return nil
}

func (m *Memory) ListPending(ctx context.Context) ([]*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Order
	for _, order := range m.orders {
		if order.State == models.OrderCreated {
			cp := *order
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) MarkAbandoned(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, order := range m.orders {
		if order.State == models.OrderCreated && order.CreatedAt.Before(cutoff) {
			order.State = models.OrderExpired
			order.DepositSecret = ""
			n++
		}
	}
	return n, nil
}

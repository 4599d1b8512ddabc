package store

import (
	"context"
	"errors"
	"time"

	"bytron/internal/models"
)

// ErrNotFound is returned by every implementation for an unknown order id.
var ErrNotFound = errors.New("order not found")

// Store is the single source of truth for order state. MarkPaid is the atomic
// transition primitive: it moves an order from created to paid exactly once
// and reports whether this call won the transition, so callers can gate
// paid-side effects (forwarding, notification) on the result.
type Store interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID string, paidSun int64, txID string, paidAt, expiresAt time.Time) (bool, error)
	SetEmail(ctx context.Context, orderID, email string) error
	MarkForwarded(ctx context.Context, orderID string) error
	RecordPayment(ctx context.Context, payment *models.Payment) error
	ListPending(ctx context.Context) ([]*models.Order, error)
	MarkAbandoned(ctx context.Context, cutoff time.Time) (int64, error)
}

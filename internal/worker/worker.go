package worker

import (
	"context"
	"time"

	"bytron/internal/logger"
	"bytron/internal/services"
	"bytron/internal/store"

	"go.uber.org/zap"
)

// Worker drives order lifecycle progress that does not depend on the buyer
// polling: it confirms payments for pending orders (feeding the WS push) and
// reaps orders that were never paid. It runs in-process with the API because
// the default store is in-memory.
type Worker struct {
	Store      store.Store
	Orders     *services.OrderService
	Interval   time.Duration
	AbandonTTL time.Duration
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		if err := w.SyncOnce(ctx); err != nil {
			logger.L.Warn("sync error", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) SyncOnce(ctx context.Context) error {
	if w.AbandonTTL > 0 {
		cutoff := time.Now().UTC().Add(-w.AbandonTTL)
		reaped, err := w.Store.MarkAbandoned(ctx, cutoff)
		if err != nil {
			return err
		}
		if reaped > 0 {
			logger.L.Info("abandoned orders reaped", zap.Int64("count", reaped))
		}
	}

	pending, err := w.Store.ListPending(ctx)
	if err != nil {
		return err
	}
	for _, order := range pending {
		if _, err := w.Orders.CheckPayment(ctx, order.OrderID); err != nil {
			logger.L.Warn("pending order check failed", zap.String("order", order.OrderID), zap.Error(err))
		}
	}
	return nil
}

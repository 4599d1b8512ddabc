package http

import (
	"context"
	"net/http"
	"time"

	"bytron/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsPollInterval = 3 * time.Second
	wsMaxWait      = 30 * time.Minute
)

// OrderEvents pushes the payment confirmation to a connected storefront so it
// does not have to poll /check-payment. One message is sent, then the socket
// closes. The polling endpoint remains the source of truth.
func (h *Handler) OrderEvents(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), wsMaxWait)
	defer cancel()

	// Reads only serve to notice the peer going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPollInterval)
	defer ticker.Stop()

	for {
		res, err := h.Orders.CheckPayment(ctx, orderID)
		if err != nil {
			logger.L.Warn("ws payment check failed", zap.String("order", orderID), zap.Error(err))
		} else if res.Paid {
			resp := checkPaymentResponse{Paid: true}
			if res.ExpiresAt != nil {
				resp.ExpiresAt = res.ExpiresAt.Format(time.RFC3339)
			}
			_ = conn.WriteJSON(resp)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bytron/internal/services"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Orders *services.OrderService
}

func NewHandler(orders *services.OrderService) *Handler {
	return &Handler{Orders: orders}
}

type priceResponse struct {
	Product string  `json:"product"`
	Price   int64   `json:"price"`
	Trx     string  `json:"trx"`
	Rate    float64 `json:"rate"`
}

func (h *Handler) Price(w http.ResponseWriter, r *http.Request) {
	quote, err := h.Orders.Quote(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidProduct):
			writeError(w, http.StatusNotFound, "Product not found")
		default:
			writeError(w, http.StatusInternalServerError, "Price fetch failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{
		Product: quote.Product,
		Price:   quote.PriceUSD,
		Trx:     formatTrx(quote.RequiredSun),
		Rate:    quote.Rate,
	})
}

type createOrderRequest struct {
	ProductID string `json:"productId"`
}

type createOrderResponse struct {
	OrderID     string  `json:"orderId"`
	Address     string  `json:"address"`
	RequiredSun int64   `json:"requiredSun"`
	RequiredTrx string  `json:"requiredTrx"`
	LivePrice   float64 `json:"livePrice"`
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	order, err := h.Orders.CreateOrder(r.Context(), req.ProductID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidProduct):
			writeError(w, http.StatusBadRequest, "Invalid product")
		case errors.Is(err, services.ErrOracleUnavailable):
			writeError(w, http.StatusInternalServerError, "Price fetch failed")
		default:
			writeError(w, http.StatusInternalServerError, "Create order failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, createOrderResponse{
		OrderID:     order.OrderID,
		Address:     order.DepositAddress,
		RequiredSun: order.RequiredSun,
		RequiredTrx: formatTrx(order.RequiredSun),
		LivePrice:   order.RateSnapshot,
	})
}

type checkPaymentResponse struct {
	Paid      bool   `json:"paid"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

func (h *Handler) CheckPayment(w http.ResponseWriter, r *http.Request) {
	res, err := h.Orders.CheckPayment(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Payment check failed")
		return
	}
	resp := checkPaymentResponse{Paid: res.Paid}
	if res.ExpiresAt != nil {
		resp.ExpiresAt = res.ExpiresAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

type sendEmailRequest struct {
	OrderID string `json:"orderId"`
	Email   string `json:"email"`
}

func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if err := h.Orders.SendReceipt(r.Context(), req.OrderID, req.Email); err != nil {
		if errors.Is(err, services.ErrNotPaid) {
			writeError(w, http.StatusForbidden, "Payment not verified")
			return
		}
		writeError(w, http.StatusInternalServerError, "Send email failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	path, err := h.Orders.AuthorizeDownload(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotPaid):
			writeError(w, http.StatusForbidden, "Payment not verified")
		case errors.Is(err, services.ErrLinkExpired):
			writeError(w, http.StatusForbidden, "Link expired")
		default:
			writeError(w, http.StatusInternalServerError, "Download failed")
		}
		return
	}
	w.Header().Set("Content-Disposition", "attachment")
	http.ServeFile(w, r, path)
}

func formatTrx(sun int64) string {
	return fmt.Sprintf("%.2f", float64(sun)/1e6)
}

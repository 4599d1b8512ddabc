package models

import "time"

type OrderState string

const (
	OrderCreated OrderState = "created"
	OrderPaid    OrderState = "paid"
	OrderExpired OrderState = "expired"
)

// Order is the central record of the shop. RequiredSun is fixed at creation
// from the rate snapshot and never recomputed. DepositSecret is the hex-encoded
// private key of the deposit address; it is cleared once forwarding resolves.
type Order struct {
	OrderID           string
	ProductID         string
	RequiredSun       int64
	DepositAddress    string
	DepositSecret     string
	State             OrderState
	RateSnapshot      float64
	PaidSun           int64
	PaidTxID          string
	PaidAt            *time.Time
	ExpiresAt         *time.Time
	Forwarded         bool
	NotificationEmail string
	CreatedAt         time.Time
}

// DownloadableAt reports whether the download window is open at t.
func (o *Order) DownloadableAt(t time.Time) bool {
	return o.State == OrderPaid && o.ExpiresAt != nil && !t.After(*o.ExpiresAt)
}

type Payment struct {
	PaymentID string
	OrderID   string
	TxID      string
	FromAddr  string
	ToAddr    string
	AmountSun int64
	CreatedAt time.Time
}

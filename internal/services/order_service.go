package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"time"

	"bytron/internal/catalog"
	"bytron/internal/logger"
	"bytron/internal/metrics"
	"bytron/internal/models"
	"bytron/internal/pricing"
	"bytron/internal/store"
	"bytron/internal/tron"
	"bytron/internal/wallet"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidProduct     = errors.New("invalid product")
	ErrOracleUnavailable  = errors.New("rate unavailable")
	ErrMintFailure        = errors.New("address mint failed")
	ErrPaymentCheckFailed = errors.New("payment check failed")
	ErrNotPaid            = errors.New("payment not verified")
	ErrLinkExpired        = errors.New("link expired")
	ErrMissingArtifact    = errors.New("artifact not configured")
)

// sunPerTrx is the smallest-unit scale of TRX.
const sunPerTrx = 1_000_000

type Oracle interface {
	Rate(ctx context.Context) (float64, pricing.Source)
}

type Explorer interface {
	Transactions(ctx context.Context, address string, limit int) ([]tron.Transaction, error)
}

type Forwarder interface {
	Sweep(ctx context.Context, order *models.Order) (bool, error)
}

type Mailer interface {
	SendReceipt(order *models.Order, to string) error
}

// OrderService owns the order lifecycle: creation, payment verification, the
// paid transition and its side effects, and download authorization. The paid
// transition is serialized through the store's MarkPaid compare-and-swap, so
// racing payment checks agree on a single winner and forwarding runs at most
// once per order.
type OrderService struct {
	Store     store.Store
	Catalog   *catalog.Catalog
	Oracle    Oracle
	Explorer  Explorer
	Forwarder Forwarder
	Mailer    Mailer
	NewID     func() string
	ScanLimit int
	Validity  time.Duration
	FilesDir  string
}

type Quote struct {
	Product     string
	PriceUSD    int64
	Rate        float64
	RequiredSun int64
}

func (s *OrderService) Quote(ctx context.Context, productID string) (*Quote, error) {
	product, ok := s.Catalog.Lookup(productID)
	if !ok {
		return nil, ErrInvalidProduct
	}
	rate, _ := s.Oracle.Rate(ctx)
	if rate <= 0 {
		return nil, ErrOracleUnavailable
	}
	return &Quote{
		Product:     product.ID,
		PriceUSD:    product.PriceUSD,
		Rate:        rate,
		RequiredSun: requiredSun(product.PriceUSD, rate),
	}, nil
}

func (s *OrderService) CreateOrder(ctx context.Context, productID string) (*models.Order, error) {
	product, ok := s.Catalog.Lookup(productID)
	if !ok {
		return nil, ErrInvalidProduct
	}

	rate, source := s.Oracle.Rate(ctx)
	if rate <= 0 {
		return nil, ErrOracleUnavailable
	}

	address, secret, err := wallet.Mint()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMintFailure, err)
	}

	order := &models.Order{
		OrderID:        s.NewID(),
		ProductID:      product.ID,
		RequiredSun:    requiredSun(product.PriceUSD, rate),
		DepositAddress: address,
		DepositSecret:  secret,
		State:          models.OrderCreated,
		RateSnapshot:   rate,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.Store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	metrics.OrdersCreatedTotal.WithLabelValues(product.ID).Inc()
	logger.L.Info("order created",
		zap.String("order", order.OrderID),
		zap.String("product", product.ID),
		zap.Int64("required_sun", order.RequiredSun),
		zap.Float64("rate", rate),
		zap.String("rate_source", string(source)),
	)
	return order, nil
}

type CheckResult struct {
	Paid      bool
	ExpiresAt *time.Time
}

// CheckPayment scans the ledger for a qualifying transaction and performs the
// paid transition on the first match. It mutates nothing until a match is
// found, so it is always safe to poll again after an upstream failure. On an
// already-paid order it short-circuits to the recorded result.
func (s *OrderService) CheckPayment(ctx context.Context, orderID string) (*CheckResult, error) {
	order, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &CheckResult{Paid: false}, nil
		}
		return nil, err
	}
	if order.State == models.OrderPaid {
		return &CheckResult{Paid: true, ExpiresAt: order.ExpiresAt}, nil
	}
	if order.State == models.OrderExpired {
		return &CheckResult{Paid: false}, nil
	}

	txs, err := s.Explorer.Transactions(ctx, order.DepositAddress, s.ScanLimit)
	if err != nil {
		metrics.PaymentChecksTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPaymentCheckFailed, err)
	}

	match, ok := firstQualifying(txs, order)
	if !ok {
		metrics.PaymentChecksTotal.WithLabelValues("pending").Inc()
		return &CheckResult{Paid: false}, nil
	}

	paidAt := time.Now().UTC()
	expiresAt := paidAt.Add(s.Validity)
	won, err := s.Store.MarkPaid(ctx, order.OrderID, match.AmountSun, match.TxID, paidAt, expiresAt)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &CheckResult{Paid: false}, nil
		}
		return nil, err
	}
	if !won {
		// A concurrent check got there first; report its outcome.
		recorded, err := s.Store.GetOrder(ctx, order.OrderID)
		if err != nil {
			return nil, err
		}
		return &CheckResult{Paid: recorded.State == models.OrderPaid, ExpiresAt: recorded.ExpiresAt}, nil
	}

	metrics.PaymentsConfirmedTotal.Inc()
	metrics.PaymentChecksTotal.WithLabelValues("paid").Inc()
	logger.L.Info("payment confirmed",
		zap.String("order", order.OrderID),
		zap.String("tx", match.TxID),
		zap.Int64("amount_sun", match.AmountSun),
	)

	if err := s.Store.RecordPayment(ctx, &models.Payment{
		PaymentID: uuid.NewString(),
		OrderID:   order.OrderID,
		TxID:      match.TxID,
		FromAddr:  match.FromAddress,
		ToAddr:    order.DepositAddress,
		AmountSun: match.AmountSun,
		CreatedAt: paidAt,
	}); err != nil {
		logger.L.Warn("record payment failed", zap.String("order", order.OrderID), zap.Error(err))
	}

	order.State = models.OrderPaid
	order.PaidSun = match.AmountSun
	order.PaidTxID = match.TxID
	order.PaidAt = &paidAt
	order.ExpiresAt = &expiresAt
	s.forward(ctx, order)

	return &CheckResult{Paid: true, ExpiresAt: &expiresAt}, nil
}

// forward runs only on the goroutine that won the paid transition. A failure
// here never rolls back the paid state or blocks the buyer's download.
func (s *OrderService) forward(ctx context.Context, order *models.Order) {
	if s.Forwarder == nil {
		return
	}
	swept, err := s.Forwarder.Sweep(ctx, order)
	if err != nil {
		metrics.ForwardsTotal.WithLabelValues("failed").Inc()
		logger.L.Warn("forward failed", zap.String("order", order.OrderID), zap.Error(err))
		return
	}
	if !swept {
		metrics.ForwardsTotal.WithLabelValues("skipped").Inc()
		return
	}
	metrics.ForwardsTotal.WithLabelValues("ok").Inc()
	logger.L.Info("deposit forwarded", zap.String("order", order.OrderID))
	if err := s.Store.MarkForwarded(ctx, order.OrderID); err != nil {
		logger.L.Warn("mark forwarded failed", zap.String("order", order.OrderID), zap.Error(err))
	}
}

// SendReceipt stores the buyer's email and dispatches a receipt. Mail failures
// are swallowed: a verified buyer is never blocked by the mail relay.
func (s *OrderService) SendReceipt(ctx context.Context, orderID, email string) error {
	order, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotPaid
		}
		return err
	}
	if order.State != models.OrderPaid {
		return ErrNotPaid
	}
	if err := s.Store.SetEmail(ctx, orderID, email); err != nil {
		return err
	}
	if s.Mailer == nil {
		return nil
	}
	if err := s.Mailer.SendReceipt(order, email); err != nil {
		logger.L.Warn("receipt send failed", zap.String("order", orderID), zap.Error(err))
	}
	return nil
}

// AuthorizeDownload resolves the artifact path for a paid, non-expired order.
func (s *OrderService) AuthorizeDownload(ctx context.Context, orderID string) (string, error) {
	order, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.DownloadsTotal.WithLabelValues("denied").Inc()
			return "", ErrNotPaid
		}
		return "", err
	}
	if order.State != models.OrderPaid {
		metrics.DownloadsTotal.WithLabelValues("denied").Inc()
		return "", ErrNotPaid
	}
	if !order.DownloadableAt(time.Now().UTC()) {
		metrics.DownloadsTotal.WithLabelValues("expired").Inc()
		return "", ErrLinkExpired
	}

	product, ok := s.Catalog.Lookup(order.ProductID)
	if !ok || product.File == "" {
		return "", ErrMissingArtifact
	}
	metrics.DownloadsTotal.WithLabelValues("ok").Inc()
	return filepath.Join(s.FilesDir, product.File), nil
}

func firstQualifying(txs []tron.Transaction, order *models.Order) (tron.Transaction, bool) {
	for _, tx := range txs {
		if tx.ToAddress != order.DepositAddress {
			continue
		}
		if !tx.Settled() {
			continue
		}
		if tx.AmountSun < order.RequiredSun {
			continue
		}
		return tx, true
	}
	return tron.Transaction{}, false
}

// requiredSun converts a fiat price to sun at the given USD/TRX rate, rounded
// up so the buyer can never underpay through rounding.
func requiredSun(priceUSD int64, rate float64) int64 {
	r := new(big.Rat).SetFloat64(rate)
	if r == nil || r.Sign() <= 0 {
		return 0
	}
	amount := new(big.Rat).SetInt64(priceUSD * sunPerTrx)
	amount.Quo(amount, r)

	quot, rem := new(big.Int).QuoRem(amount.Num(), amount.Denom(), new(big.Int))
	if rem.Sign() > 0 {
		quot.Add(quot, big.NewInt(1))
	}
	return quot.Int64()
}

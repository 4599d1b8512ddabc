package forward

import (
	"context"
	"fmt"

	"bytron/internal/models"
	"bytron/internal/tron"
	"bytron/internal/wallet"
)

// NodeClient is the slice of the full-node API the forwarder needs.
type NodeClient interface {
	AccountBalance(ctx context.Context, address string) (int64, error)
	CreateTransfer(ctx context.Context, from, to string, amountSun int64) (*tron.UnsignedTx, error)
	Broadcast(ctx context.Context, tx *tron.UnsignedTx, signatureHex string) error
}

// Forwarder sweeps a paid order's deposit balance, minus a fee buffer, to the
// owner address. It signs with the order's deposit key.
type Forwarder struct {
	Node         NodeClient
	OwnerAddress string
	FeeBufferSun int64
}

// Sweep moves the deposit balance to the owner address. It returns false with
// a nil error when there is nothing to do: no owner address configured, or a
// balance too small to cover the fee buffer. Callers must treat errors as
// non-fatal; a failed sweep never affects the order's paid state.
func (f *Forwarder) Sweep(ctx context.Context, order *models.Order) (bool, error) {
	if f.OwnerAddress == "" {
		return false, nil
	}
	if order.DepositSecret == "" {
		return false, fmt.Errorf("order %s has no deposit secret", order.OrderID)
	}

	priv, err := wallet.ParseKey(order.DepositSecret)
	if err != nil {
		return false, fmt.Errorf("parse deposit key: %w", err)
	}

	balance, err := f.Node.AccountBalance(ctx, order.DepositAddress)
	if err != nil {
		return false, fmt.Errorf("account balance: %w", err)
	}
	amount := balance - f.FeeBufferSun
	if amount <= 0 {
		return false, nil
	}

	tx, err := f.Node.CreateTransfer(ctx, order.DepositAddress, f.OwnerAddress, amount)
	if err != nil {
		return false, fmt.Errorf("create transfer: %w", err)
	}
	sig, err := tron.SignTxID(priv, tx.TxID)
	if err != nil {
		return false, fmt.Errorf("sign transfer: %w", err)
	}
	if err := f.Node.Broadcast(ctx, tx, sig); err != nil {
		return false, err
	}
	return true, nil
}

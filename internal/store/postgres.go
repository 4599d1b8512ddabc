package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bytron/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the durable store variant. State transitions rely on guarded
// UPDATEs instead of in-process locks, so several API processes can share it.
type Postgres struct {
	Pool *pgxpool.Pool
}

func Connect(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Postgres{Pool: pool}, nil
}

func (s *Postgres) Close() {
	s.Pool.Close()
}

const orderColumns = `order_id, product_id, required_sun, deposit_address, deposit_secret,
	state, rate_snapshot, paid_sun, paid_tx_id, paid_at, expires_at,
	forwarded, notification_email, created_at`

func (s *Postgres) CreateOrder(ctx context.Context, order *models.Order) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO orders (
			order_id, product_id, required_sun, deposit_address, deposit_secret,
			state, rate_snapshot, paid_sun, paid_tx_id, paid_at, expires_at,
			forwarded, notification_email, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		order.OrderID,
		order.ProductID,
		order.RequiredSun,
		order.DepositAddress,
		order.DepositSecret,
		order.State,
		order.RateSnapshot,
		order.PaidSun,
		nullString(order.PaidTxID),
		order.PaidAt,
		order.ExpiresAt,
		order.Forwarded,
		nullString(order.NotificationEmail),
		order.CreatedAt,
	)
	return err
}

func (s *Postgres) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id=$1`, orderID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *Postgres) MarkPaid(ctx context.Context, orderID string, paidSun int64, txID string, paidAt, expiresAt time.Time) (bool, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE orders
		SET state='paid', paid_sun=$2, paid_tx_id=$3, paid_at=$4, expires_at=$5
		WHERE order_id=$1 AND state='created'
	`, orderID, paidSun, txID, paidAt, expiresAt)
	if err != nil {
		return false, err
	}
	if res.RowsAffected() > 0 {
		return true, nil
	}
	// Distinguish a lost race from an unknown order.
	var exists bool
	if err := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE order_id=$1)`, orderID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (s *Postgres) SetEmail(ctx context.Context, orderID, email string) error {
	res, err := s.Pool.Exec(ctx, `UPDATE orders SET notification_email=$2 WHERE order_id=$1`, orderID, email)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) MarkForwarded(ctx context.Context, orderID string) error {
	res, err := s.Pool.Exec(ctx, `
		UPDATE orders SET forwarded=true, deposit_secret='' WHERE order_id=$1
	`, orderID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) RecordPayment(ctx context.Context, payment *models.Payment) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO payments (payment_id, order_id, tx_id, from_addr, to_addr, amount_sun, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (tx_id) DO NOTHING
	`,
		payment.PaymentID,
		payment.OrderID,
		payment.TxID,
		payment.FromAddr,
		payment.ToAddr,
		payment.AmountSun,
		payment.CreatedAt,
	)
	return err
}

func (s *Postgres) ListPending(ctx context.Context) ([]*models.Order, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE state='created'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (s *Postgres) MarkAbandoned(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE orders
		SET state='expired', deposit_secret=''
		WHERE state='created' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var order models.Order
	var paidTxID, email sql.NullString
	var paidAt, expiresAt sql.NullTime

	err := row.Scan(
		&order.OrderID,
		&order.ProductID,
		&order.RequiredSun,
		&order.DepositAddress,
		&order.DepositSecret,
		&order.State,
		&order.RateSnapshot,
		&order.PaidSun,
		&paidTxID,
		&paidAt,
		&expiresAt,
		&order.Forwarded,
		&email,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if paidTxID.Valid {
		order.PaidTxID = paidTxID.String
	}
	if email.Valid {
		order.NotificationEmail = email.String
	}
	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}
	if expiresAt.Valid {
		order.ExpiresAt = &expiresAt.Time
	}
	return &order, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/AnshRaj112/prescripto-backend/internal/models"
)

// OrderLog records gateway orders in the payment_orders table so payments
// can be reconciled against Razorpay.
type OrderLog struct {
	db *sql.DB
}

func NewOrderLog(db *sql.DB) *OrderLog {
	return &OrderLog{db: db}
}

const (
	insertOrderQuery = `INSERT INTO payment_orders (id, receipt, amount, currency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`
	markOrderPaidQuery = `UPDATE payment_orders SET status = 'paid', paid_at = NOW()
		WHERE id = $1 AND status <> 'paid'`
	ordersByReceiptQuery = `SELECT id, receipt, amount, currency, status, created_at
		FROM payment_orders WHERE receipt = $1 ORDER BY created_at DESC`
)

// Save stores a newly created order. Saving the same order twice is a no-op.
func (l *OrderLog) Save(ctx context.Context, order *models.PaymentOrder) error {
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	status := order.Status
	if status == "" {
		status = models.OrderStatusCreated
	}
	_, err := l.db.ExecContext(ctx, insertOrderQuery,
		order.ID, order.Receipt, order.Amount, order.Currency, status, createdAt)
	return err
}

// MarkPaid flags the order as paid. Already-paid orders keep their first
// paid_at.
func (l *OrderLog) MarkPaid(ctx context.Context, orderID string) error {
	_, err := l.db.ExecContext(ctx, markOrderPaidQuery, orderID)
	return err
}

// ListByReceipt returns the orders opened for one appointment, newest first.
func (l *OrderLog) ListByReceipt(ctx context.Context, receipt string) ([]models.PaymentOrder, error) {
	rows, err := l.db.QueryContext(ctx, ordersByReceiptQuery, receipt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.PaymentOrder
	for rows.Next() {
		var o models.PaymentOrder
		if err := rows.Scan(&o.ID, &o.Receipt, &o.Amount, &o.Currency, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

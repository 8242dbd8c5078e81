package models

import "time"

// PaymentOrderStatus values as reported by the gateway.
const (
	OrderStatusCreated   = "created"
	OrderStatusAttempted = "attempted"
	OrderStatusPaid      = "paid"
)

// PaymentOrder is a gateway-side charge for one appointment. Receipt holds
// the appointment id. Amount is in minor currency units.
type PaymentOrder struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Receipt   string    `json:"receipt"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Paid reports whether the gateway settled the order.
func (o *PaymentOrder) Paid() bool {
	return o.Status == OrderStatusPaid
}

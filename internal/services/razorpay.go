package services

import (
	"context"
	"fmt"
	"time"

	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/razorpay/razorpay-go"
)

// razorpayOrders is the part of the Razorpay client the gateway uses.
type razorpayOrders interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayGateway creates and fetches orders through the Razorpay API.
type RazorpayGateway struct {
	orders razorpayOrders
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	return &RazorpayGateway{orders: client.Order}
}

// CreateOrder opens an order for amount minor units. receipt carries the
// appointment id back on verification.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*models.PaymentOrder, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	body, err := call(ctx, func() (map[string]interface{}, error) {
		return g.orders.Create(data, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	return orderFromResponse(body)
}

func (g *RazorpayGateway) FetchOrder(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	body, err := call(ctx, func() (map[string]interface{}, error) {
		return g.orders.Fetch(orderID, nil, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay fetch order: %w", err)
	}
	return orderFromResponse(body)
}

// call runs a blocking SDK request and gives up when ctx ends. The SDK has
// no context support, so an abandoned request finishes in the background.
func call(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := fn()
		done <- result{body, err}
	}()

	select {
	case res := <-done:
		return res.body, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// orderFromResponse reads the fields we need out of a decoded order body.
// JSON numbers arrive as float64.
func orderFromResponse(body map[string]interface{}) (*models.PaymentOrder, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay response has no order id")
	}

	order := &models.PaymentOrder{ID: id}
	order.Status, _ = body["status"].(string)
	order.Currency, _ = body["currency"].(string)
	order.Receipt, _ = body["receipt"].(string)

	switch v := body["amount"].(type) {
	case float64:
		order.Amount = int64(v)
	case int64:
		order.Amount = v
	case int:
		order.Amount = int64(v)
	}
	if ts, ok := body["created_at"].(float64); ok {
		order.CreatedAt = time.Unix(int64(ts), 0).UTC()
	}
	return order, nil
}

// Package gateway creates orders on the Razorpay REST API.
package gateway

import (
	"context"
	"errors"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

var ErrNotConfigured = errors.New("razorpay credentials not configured")

// orderAPI matches the order resource of the razorpay-go client.
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// OrderRequest is what the checkout sends to the gateway.
type OrderRequest struct {
	Amount   int64 // minor units
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Order is the minted gateway order.
type Order struct {
	ID       string
	Amount   int64
	Currency string
}

type Client struct {
	keyID     string
	keySecret string
	orders    orderAPI
}

// New returns a gateway client. Missing credentials are not an error here;
// CreateOrder rejects them so the condition is reported per request.
func New(keyID, keySecret string) *Client {
	c := &Client{keyID: keyID, keySecret: keySecret}
	if keyID != "" && keySecret != "" {
		c.orders = razorpay.NewClient(keyID, keySecret).Order
	}
	return c
}

// KeyID is the public key the browser checkout needs.
func (c *Client) KeyID() string { return c.keyID }

// KeySecret is the secret used to verify checkout signatures.
func (c *Client) KeySecret() string { return c.keySecret }

func (c *Client) Configured() bool {
	return c.keyID != "" && c.keySecret != "" && c.orders != nil
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if !c.Configured() {
		return Order{}, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	if req.Amount <= 0 {
		return Order{}, fmt.Errorf("invalid order amount %d", req.Amount)
	}

	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}

	body, err := c.orders.Create(data, nil)
	if err != nil {
		return Order{}, fmt.Errorf("create razorpay order: %w", err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return Order{}, fmt.Errorf("create razorpay order: %s", errorDescription(body))
	}

	return Order{ID: id, Amount: req.Amount, Currency: req.Currency}, nil
}

func errorDescription(body map[string]interface{}) string {
	if e, ok := body["error"].(map[string]interface{}); ok {
		if d, ok := e["description"].(string); ok && d != "" {
			return d
		}
	}
	return "failed to create order"
}

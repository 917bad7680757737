package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/masterclass-checkout/internal/gateway"
)

// EventPurchaseCompleted is the type of the message published after a verified payment.
const EventPurchaseCompleted = "purchase.completed"

var (
	ErrProductMismatch = errors.New("purchase belongs to a different product")
	ErrOrderMismatch   = errors.New("order does not belong to purchase")
	ErrPriceMismatch   = errors.New("purchase price no longer matches catalog")
)

// Gateway is the subset of the payment gateway client the service needs.
type Gateway interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (gateway.Order, error)
	KeyID() string
	KeySecret() string
}

// EventPublisher sends fulfillment events. *aws.Publisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, payload any, attributes map[string]string) error
}

// Counter records checkout metrics. *metrics.Recorder satisfies it.
type Counter interface {
	Incr(ctx context.Context, name, product string)
}

type PurchaseResponse struct {
	PurchaseID string          `json:"purchaseId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

// OrderResponse is what the browser needs to open the gateway checkout.
type OrderResponse struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

type VerifyResponse struct {
	Success      bool   `json:"success"`
	DownloadLink string `json:"downloadLink,omitempty"`
	FileContent  string `json:"fileContent,omitempty"`
	FileName     string `json:"fileName,omitempty"`
}

// CompletedEvent is the fulfillment queue message body.
type CompletedEvent struct {
	Type        string    `json:"type"`
	PurchaseID  string    `json:"purchase_id"`
	Product     string    `json:"product"`
	OrderID     string    `json:"order_id"`
	PaymentID   string    `json:"payment_id"`
	CompletedAt time.Time `json:"completed_at"`
}

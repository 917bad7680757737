package purchases

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

var (
	ErrNotFound = errors.New("purchase not found")
	// ErrFileNotFound means no product_files row exists for the product.
	ErrFileNotFound = errors.New("product file not found")
	// ErrStatusMismatch means the conditional pending -> completed transition was rejected.
	ErrStatusMismatch = errors.New("purchase is not pending")
)

// Purchase tracks one checkout attempt and its payment outcome.
type Purchase struct {
	ID            string
	Name          string
	Email         string
	Phone         string
	ProductName   string
	Amount        decimal.Decimal
	Currency      string
	PaymentStatus string // pending | completed
	OrderID       string
	PaymentID     string
	DownloadLink  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Store persists purchase records and product files.
type Store interface {
	Create(ctx context.Context, p Purchase) error
	Get(ctx context.Context, id string) (*Purchase, error)
	AttachOrder(ctx context.Context, id, orderID string) error
	MarkCompleted(ctx context.Context, id, paymentID, downloadLink string) error
	FileContent(ctx context.Context, productName string) (string, error)
}

// Package checkout runs the purchase, order and payment verification flow.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/masterclass-checkout/internal/catalog"
	"github.com/imrishuroy/masterclass-checkout/internal/gateway"
	"github.com/imrishuroy/masterclass-checkout/internal/metrics"
	"github.com/imrishuroy/masterclass-checkout/internal/purchases"
	"github.com/imrishuroy/masterclass-checkout/internal/signature"
	"github.com/imrishuroy/masterclass-checkout/internal/validation"
)

type Service struct {
	store         purchases.Store
	gateway       Gateway
	publisher     EventPublisher
	metrics       Counter
	materialsLink string
	log           *zap.Logger
	newID         func() string
	nowFunc       func() time.Time
}

type Options struct {
	Store     purchases.Store
	Gateway   Gateway
	Publisher EventPublisher // optional
	Metrics   Counter        // optional
	// MaterialsLink is handed out once a materials purchase is verified.
	MaterialsLink string
	Logger        *zap.Logger
}

func NewService(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:         opts.Store,
		gateway:       opts.Gateway,
		publisher:     opts.Publisher,
		metrics:       opts.Metrics,
		materialsLink: opts.MaterialsLink,
		log:           log,
		newID:         uuid.NewString,
		nowFunc:       time.Now,
	}
}

// CreatePurchase stores a pending purchase priced from the catalog.
func (s *Service) CreatePurchase(ctx context.Context, productKey string, req validation.PurchaseRequest) (*PurchaseResponse, error) {
	product, err := catalog.Lookup(productKey)
	if err != nil {
		return nil, err
	}

	amount, currency := product.Price(req.Currency)
	now := s.nowFunc().UTC()
	p := purchases.Purchase{
		ID:            s.newID(),
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		ProductName:   product.Name,
		Amount:        amount,
		Currency:      currency,
		PaymentStatus: purchases.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create purchase: %w", err)
	}

	s.log.Info("purchase created",
		zap.String("purchase_id", p.ID),
		zap.String("product", product.Key),
		zap.String("currency", currency))

	return &PurchaseResponse{PurchaseID: p.ID, Amount: amount, Currency: currency}, nil
}

// CreateOrder mints a gateway order for a pending purchase.
func (s *Service) CreateOrder(ctx context.Context, productKey string, req validation.OrderRequest) (*OrderResponse, error) {
	product, err := catalog.Lookup(productKey)
	if err != nil {
		return nil, err
	}
	if s.gateway.KeyID() == "" || s.gateway.KeySecret() == "" {
		return nil, gateway.ErrNotConfigured
	}

	p, err := s.store.Get(ctx, req.PurchaseID)
	if err != nil {
		return nil, fmt.Errorf("load purchase: %w", err)
	}
	if p.ProductName != product.Name {
		return nil, ErrProductMismatch
	}
	if p.PaymentStatus != purchases.StatusPending {
		return nil, purchases.ErrStatusMismatch
	}

	currency := req.Currency
	if currency == "" {
		currency = p.Currency
	}
	amount, currency := product.Price(currency)
	if currency != p.Currency || !amount.Equal(p.Amount) {
		return nil, ErrPriceMismatch
	}

	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   catalog.MinorUnits(amount),
		Currency: currency,
		Receipt:  p.ID,
		Notes: map[string]string{
			"name":    req.Name,
			"email":   req.Email,
			"phone":   req.Phone,
			"product": product.Name,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.AttachOrder(ctx, p.ID, order.ID); err != nil {
		return nil, fmt.Errorf("attach order: %w", err)
	}

	s.count(ctx, metrics.OrdersCreated, product.Key)
	s.log.Info("gateway order created",
		zap.String("purchase_id", p.ID),
		zap.String("order_id", order.ID),
		zap.Int64("amount", order.Amount),
		zap.String("currency", order.Currency))

	return &OrderResponse{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    s.gateway.KeyID(),
	}, nil
}

// VerifyPayment checks the gateway signature, completes the purchase and
// returns its deliverable. Verifying an already completed purchase with the
// same payment id returns the deliverable again.
func (s *Service) VerifyPayment(ctx context.Context, productKey string, req validation.VerifyRequest) (*VerifyResponse, error) {
	product, err := catalog.Lookup(productKey)
	if err != nil {
		return nil, err
	}

	if err := signature.Verify(s.gateway.KeySecret(), req.OrderID, req.PaymentID, req.Signature); err != nil {
		if errors.Is(err, signature.ErrMismatch) {
			s.count(ctx, metrics.PaymentsRejected, product.Key)
			s.log.Warn("payment signature rejected",
				zap.String("purchase_id", req.PurchaseID),
				zap.String("order_id", req.OrderID))
		}
		return nil, err
	}

	p, err := s.store.Get(ctx, req.PurchaseID)
	if err != nil {
		return nil, fmt.Errorf("load purchase: %w", err)
	}
	if p.ProductName != product.Name {
		return nil, ErrProductMismatch
	}
	if p.OrderID != "" && p.OrderID != req.OrderID {
		s.count(ctx, metrics.PaymentsRejected, product.Key)
		return nil, ErrOrderMismatch
	}

	if p.PaymentStatus == purchases.StatusCompleted {
		return s.replay(ctx, product, p, req)
	}

	link := ""
	if product.Deliverable == catalog.DeliverDownloadLink {
		link = s.materialsLink
	}
	if err := s.store.MarkCompleted(ctx, p.ID, req.PaymentID, link); err != nil {
		if !errors.Is(err, purchases.ErrStatusMismatch) {
			return nil, fmt.Errorf("complete purchase: %w", err)
		}
		// a concurrent verify completed the row first
		current, getErr := s.store.Get(ctx, p.ID)
		if getErr != nil {
			return nil, fmt.Errorf("complete purchase: %w", err)
		}
		return s.replay(ctx, product, current, req)
	}

	// the row is committed; the event and count must not depend on delivery
	s.count(ctx, metrics.PaymentsVerified, product.Key)
	s.publishCompleted(ctx, product, p.ID, req)
	s.log.Info("payment verified",
		zap.String("purchase_id", p.ID),
		zap.String("order_id", req.OrderID),
		zap.String("payment_id", req.PaymentID))

	return s.deliver(ctx, product)
}

// replay returns the deliverable of a purchase already completed with the
// same payment id.
func (s *Service) replay(ctx context.Context, product catalog.Product, p *purchases.Purchase, req validation.VerifyRequest) (*VerifyResponse, error) {
	if p.PaymentStatus != purchases.StatusCompleted || p.PaymentID != req.PaymentID {
		return nil, purchases.ErrStatusMismatch
	}
	s.log.Info("payment already verified, replaying deliverable",
		zap.String("purchase_id", p.ID),
		zap.String("payment_id", req.PaymentID))
	return s.deliver(ctx, product)
}

func (s *Service) deliver(ctx context.Context, product catalog.Product) (*VerifyResponse, error) {
	resp := &VerifyResponse{Success: true}
	switch product.Deliverable {
	case catalog.DeliverDownloadLink:
		resp.DownloadLink = s.materialsLink
	case catalog.DeliverFileContent:
		content, err := s.store.FileContent(ctx, product.Name)
		if err != nil {
			return nil, fmt.Errorf("retrieve file: %w", err)
		}
		resp.FileContent = content
		resp.FileName = product.FileName
	}
	return resp, nil
}

// publishCompleted enqueues the fulfillment event. The payment is already
// captured, so a failed publish is logged and not returned.
func (s *Service) publishCompleted(ctx context.Context, product catalog.Product, purchaseID string, req validation.VerifyRequest) {
	if s.publisher == nil {
		return
	}
	evt := CompletedEvent{
		Type:        EventPurchaseCompleted,
		PurchaseID:  purchaseID,
		Product:     product.Key,
		OrderID:     req.OrderID,
		PaymentID:   req.PaymentID,
		CompletedAt: s.nowFunc().UTC(),
	}
	attrs := map[string]string{
		"event_type":  EventPurchaseCompleted,
		"purchase_id": purchaseID,
		"product":     product.Key,
	}
	if err := s.publisher.Publish(ctx, evt, attrs); err != nil {
		s.log.Error("publish purchase completed failed",
			zap.String("purchase_id", purchaseID),
			zap.Error(err))
	}
}

func (s *Service) count(ctx context.Context, name, product string) {
	if s.metrics != nil {
		s.metrics.Incr(ctx, name, product)
	}
}

package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/imrishuroy/masterclass-checkout/internal/gateway"
	"github.com/imrishuroy/masterclass-checkout/internal/purchases"
)

type memStore struct {
	mu        sync.Mutex
	purchases map[string]purchases.Purchase
	files     map[string]string
	createErr error
}

func newMemStore() *memStore {
	return &memStore{
		purchases: map[string]purchases.Purchase{},
		files:     map[string]string{"Source Code Bundle": "https://github.com/budfi/masterclass-sources"},
	}
}

func (m *memStore) Create(ctx context.Context, p purchases.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.purchases[p.ID] = p
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (*purchases.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return nil, purchases.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) AttachOrder(ctx context.Context, id, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return purchases.ErrNotFound
	}
	if p.PaymentStatus != purchases.StatusPending {
		return purchases.ErrStatusMismatch
	}
	p.OrderID = orderID
	m.purchases[id] = p
	return nil
}

func (m *memStore) MarkCompleted(ctx context.Context, id, paymentID, downloadLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return purchases.ErrNotFound
	}
	if p.PaymentStatus != purchases.StatusPending {
		return purchases.ErrStatusMismatch
	}
	p.PaymentStatus = purchases.StatusCompleted
	p.PaymentID = paymentID
	p.DownloadLink = downloadLink
	m.purchases[id] = p
	return nil
}

func (m *memStore) FileContent(ctx context.Context, productName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.files[productName]
	if !ok {
		return "", purchases.ErrFileNotFound
	}
	return c, nil
}

type fakeGateway struct {
	keyID, keySecret string
	requests         []gateway.OrderRequest
	err              error
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req gateway.OrderRequest) (gateway.Order, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return gateway.Order{}, g.err
	}
	return gateway.Order{ID: "order_test_1", Amount: req.Amount, Currency: req.Currency}, nil
}

func (g *fakeGateway) KeyID() string     { return g.keyID }
func (g *fakeGateway) KeySecret() string { return g.keySecret }

type fakePublisher struct {
	payloads []any
	attrs    []map[string]string
	err      error
}

func (p *fakePublisher) Publish(ctx context.Context, payload any, attributes map[string]string) error {
	p.payloads = append(p.payloads, payload)
	p.attrs = append(p.attrs, attributes)
	return p.err
}

type fakeCounter struct {
	counts map[string]int
}

func (c *fakeCounter) Incr(ctx context.Context, name, product string) {
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[name+"/"+product]++
}

var errBoom = errors.New("boom")

package validation

import "strings"

// Customer is the buyer details collected by the checkout form.
type Customer struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email,max=255"`
	Phone string `json:"phone" validate:"required,phone"`
}

// PurchaseRequest is the payload for POST /checkout/:product/purchases
type PurchaseRequest struct {
	Customer
	Currency string `json:"currency,omitempty" validate:"omitempty,oneof=INR USD"`
}

// OrderRequest is the payload for POST /checkout/:product/orders
type OrderRequest struct {
	Customer
	PurchaseID string `json:"purchaseId" validate:"required,uuid"`
	Currency   string `json:"currency,omitempty" validate:"omitempty,oneof=INR USD"`
}

// VerifyRequest is the payload the browser posts after the gateway callback.
type VerifyRequest struct {
	OrderID    string `json:"razorpay_order_id" validate:"required"`
	PaymentID  string `json:"razorpay_payment_id" validate:"required"`
	Signature  string `json:"razorpay_signature" validate:"required"`
	PurchaseID string `json:"purchaseId" validate:"required,uuid"`
}

func (c *Customer) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
}

func (r *PurchaseRequest) Normalize() {
	r.Customer.Normalize()
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
}

func (r *OrderRequest) Normalize() {
	r.Customer.Normalize()
	r.PurchaseID = strings.TrimSpace(r.PurchaseID)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
}

func (r *VerifyRequest) Normalize() {
	r.OrderID = strings.TrimSpace(r.OrderID)
	r.PaymentID = strings.TrimSpace(r.PaymentID)
	r.PurchaseID = strings.TrimSpace(r.PurchaseID)
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/masterclass-checkout/internal/catalog"
	"github.com/imrishuroy/masterclass-checkout/internal/checkout"
	"github.com/imrishuroy/masterclass-checkout/internal/idempotency"
	"github.com/imrishuroy/masterclass-checkout/internal/validation"
)

// Checkout is the flow served by the routes. *checkout.Service satisfies it.
type Checkout interface {
	CreatePurchase(ctx context.Context, product string, req validation.PurchaseRequest) (*checkout.PurchaseResponse, error)
	CreateOrder(ctx context.Context, product string, req validation.OrderRequest) (*checkout.OrderResponse, error)
	VerifyPayment(ctx context.Context, product string, req validation.VerifyRequest) (*checkout.VerifyResponse, error)
}

// IdempotencyStore is satisfied by *idempotency.Store.
type IdempotencyStore interface {
	CreateIfNotExists(ctx context.Context, key, purchaseID string) (bool, error)
	Get(ctx context.Context, key string) (*idempotency.IdempotencyRecord, error)
	Reclaim(ctx context.Context, key, purchaseID string) (bool, error)
	MarkDone(ctx context.Context, key, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, key, note string) error
}

// HandlerConfig groups dependencies for the checkout routes.
type HandlerConfig struct {
	Checkout    Checkout
	Idempotency IdempotencyStore // optional; Idempotency-Key is ignored without it
	Limiter     RateLimiter      // optional
	Logger      *zap.Logger
}

type checkoutHandler struct {
	svc   Checkout
	idemp IdempotencyStore
	v     *validatorv10.Validate
	log   *zap.Logger
}

// NewRouter builds the gin engine with health and checkout routes.
func NewRouter(cfg HandlerConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(cfg.Logger), CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	RegisterCheckoutRoutes(r, cfg)
	return r
}

// RegisterCheckoutRoutes registers the purchase, order and verify routes per product.
func RegisterCheckoutRoutes(r *gin.Engine, cfg HandlerConfig) {
	h := &checkoutHandler{
		svc:   cfg.Checkout,
		idemp: cfg.Idempotency,
		v:     validation.New(),
		log:   cfg.Logger,
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}

	g := r.Group("/checkout/:product")
	if cfg.Limiter != nil {
		g.Use(RateLimit(cfg.Limiter, h.log))
	}
	g.Use(requireProduct())

	g.POST("/purchases", h.createPurchase)
	g.POST("/orders", h.createOrder)
	g.POST("/verify", h.verify)
}

func requireProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := catalog.Lookup(c.Param("product")); err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

func (h *checkoutHandler) createPurchase(c *gin.Context) {
	var req validation.PurchaseRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	resp, err := h.svc.CreatePurchase(c.Request.Context(), c.Param("product"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *checkoutHandler) createOrder(c *gin.Context) {
	ctx := c.Request.Context()
	product := c.Param("product")

	var req validation.OrderRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}

	idempKey := c.GetHeader("Idempotency-Key")
	if idempKey == "" || h.idemp == nil {
		resp, err := h.svc.CreateOrder(ctx, product, req)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	// keys are scoped per product
	scoped := product + ":" + idempKey
	proceed, err := h.claim(c, scoped, req.PurchaseID)
	if err != nil {
		h.fail(c, fmt.Errorf("idempotency check failed: %w", err))
		return
	}
	if !proceed {
		return
	}

	resp, err := h.svc.CreateOrder(ctx, product, req)
	if err != nil {
		if mErr := h.idemp.MarkFailed(ctx, scoped, err.Error()); mErr != nil {
			h.log.Warn("mark idempotency failed", zap.String("key", scoped), zap.Error(mErr))
		}
		h.fail(c, err)
		return
	}

	body, _ := json.Marshal(resp)
	if err := h.idemp.MarkDone(ctx, scoped, string(body), http.StatusOK); err != nil {
		h.log.Warn("mark idempotency done", zap.String("key", scoped), zap.Error(err))
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// claim takes ownership of an idempotency key. When it returns false the
// response has already been written (replay or conflict).
func (h *checkoutHandler) claim(c *gin.Context, key, purchaseID string) (bool, error) {
	ctx := c.Request.Context()

	created, err := h.idemp.CreateIfNotExists(ctx, key, purchaseID)
	if err != nil {
		return false, err
	}
	if created {
		return true, nil
	}

	rec, err := h.idemp.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if rec != nil && rec.PurchaseID != purchaseID {
		c.JSON(http.StatusConflict, gin.H{"error": "idempotency key reused for a different purchase"})
		return false, nil
	}

	switch {
	case rec != nil && rec.Status == idempotency.StatusDone:
		status := rec.ResponseStatus
		if status == 0 {
			status = http.StatusOK
		}
		c.Header("Idempotent-Replayed", "true")
		c.Data(status, "application/json; charset=utf-8", []byte(rec.ResponseBody))
		return false, nil
	case rec != nil && rec.Status == idempotency.StatusInProgress:
		c.JSON(http.StatusConflict, gin.H{"error": "request already in progress"})
		return false, nil
	}

	// FAILED or expired: retry under the same key
	ok, err := h.idemp.Reclaim(ctx, key, purchaseID)
	if err != nil {
		return false, err
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "request already in progress"})
		return false, nil
	}
	return true, nil
}

func (h *checkoutHandler) verify(c *gin.Context) {
	var req validation.VerifyRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	resp, err := h.svc.VerifyPayment(c.Request.Context(), c.Param("product"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// fail writes the error response. Only unknown products get a dedicated
// status; every other failure is a 500 carrying the error message.
func (h *checkoutHandler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, catalog.ErrUnknownProduct) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

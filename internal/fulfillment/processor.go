// Package fulfillment handles purchase.completed events from the fulfillment queue.
package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/masterclass-checkout/internal/checkout"
	"github.com/imrishuroy/masterclass-checkout/internal/purchases"
)

var ErrUnexpectedStatus = errors.New("purchase is not completed")

// Notifier delivers the purchase confirmation to the buyer.
type Notifier interface {
	SendConfirmation(ctx context.Context, p *purchases.Purchase) error
}

type Processor struct {
	store    purchases.Store
	notifier Notifier // nil when email is not configured
	log      *zap.Logger
}

func NewProcessor(store purchases.Store, notifier Notifier, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{store: store, notifier: notifier, log: log}
}

// Handle processes one SQS batch and reports the records that failed. Only
// those are redelivered (and eventually dead-lettered); the event source
// mapping must enable ReportBatchItemFailures.
func (p *Processor) Handle(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	p.log.Info("received fulfillment batch", zap.Int("records", len(event.Records)))
	var resp events.SQSEventResponse
	for _, r := range event.Records {
		if err := p.process(ctx, r); err != nil {
			p.log.Error("fulfillment failed",
				zap.String("message_id", r.MessageId),
				zap.Error(err))
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: r.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) process(ctx context.Context, r events.SQSMessage) error {
	var evt checkout.CompletedEvent
	if err := json.Unmarshal([]byte(r.Body), &evt); err != nil {
		return fmt.Errorf("unmarshal message body: %w", err)
	}
	if evt.Type != checkout.EventPurchaseCompleted {
		p.log.Warn("skipping unknown event", zap.String("type", evt.Type), zap.String("message_id", r.MessageId))
		return nil
	}
	if evt.PurchaseID == "" {
		return fmt.Errorf("message %s has no purchase id", r.MessageId)
	}

	purchase, err := p.store.Get(ctx, evt.PurchaseID)
	if err != nil {
		return fmt.Errorf("load purchase %s: %w", evt.PurchaseID, err)
	}
	if purchase.PaymentStatus != purchases.StatusCompleted {
		return fmt.Errorf("purchase %s: %w", evt.PurchaseID, ErrUnexpectedStatus)
	}

	if p.notifier == nil {
		p.log.Info("email not configured, skipping confirmation",
			zap.String("purchase_id", purchase.ID))
		return nil
	}
	if err := p.notifier.SendConfirmation(ctx, purchase); err != nil {
		return fmt.Errorf("send confirmation for %s: %w", purchase.ID, err)
	}

	p.log.Info("confirmation sent",
		zap.String("purchase_id", purchase.ID),
		zap.String("product", purchase.ProductName))
	return nil
}

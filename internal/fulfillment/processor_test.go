package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"

	"github.com/imrishuroy/masterclass-checkout/internal/checkout"
	"github.com/imrishuroy/masterclass-checkout/internal/purchases"
)

type stubStore struct {
	purchases.Store
	byID map[string]*purchases.Purchase
}

func (s *stubStore) Get(ctx context.Context, id string) (*purchases.Purchase, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, purchases.ErrNotFound
	}
	return p, nil
}

type recordingNotifier struct {
	sent []*purchases.Purchase
	err  error
}

func (n *recordingNotifier) SendConfirmation(ctx context.Context, p *purchases.Purchase) error {
	n.sent = append(n.sent, p)
	return n.err
}

func completedPurchase() *purchases.Purchase {
	return &purchases.Purchase{
		ID:            "p-1",
		Name:          "Asha Rao",
		Email:         "asha@example.com",
		ProductName:   "AI Masterclass Materials",
		Amount:        decimal.NewFromInt(99),
		Currency:      "INR",
		PaymentStatus: purchases.StatusCompleted,
		PaymentID:     "pay_1",
		DownloadLink:  "https://drive.example.com/materials",
	}
}

func sqsEvent(t *testing.T, evt checkout.CompletedEvent) events.SQSEvent {
	t.Helper()
	body, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}
	return events.SQSEvent{Records: []events.SQSMessage{{MessageId: "m-1", Body: string(body)}}}
}

// processAll runs every record through the processor and returns the first error.
func processAll(ctx context.Context, p *Processor, event events.SQSEvent) error {
	for _, r := range event.Records {
		if err := p.process(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func completedEvent() checkout.CompletedEvent {
	return checkout.CompletedEvent{
		Type:        checkout.EventPurchaseCompleted,
		PurchaseID:  "p-1",
		Product:     "materials",
		PaymentID:   "pay_1",
		CompletedAt: time.Now().UTC(),
	}
}

func TestProcess_SendsConfirmation(t *testing.T) {
	store := &stubStore{byID: map[string]*purchases.Purchase{"p-1": completedPurchase()}}
	n := &recordingNotifier{}
	p := NewProcessor(store, n, nil)

	if err := processAll(context.Background(), p, sqsEvent(t, completedEvent())); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(n.sent) != 1 || n.sent[0].ID != "p-1" {
		t.Fatalf("expected confirmation for p-1, got %+v", n.sent)
	}
}

func TestProcess_SkipsEmailWhenNotConfigured(t *testing.T) {
	store := &stubStore{byID: map[string]*purchases.Purchase{"p-1": completedPurchase()}}
	p := NewProcessor(store, nil, nil)
	if err := processAll(context.Background(), p, sqsEvent(t, completedEvent())); err != nil {
		t.Fatalf("handle: %v", err)
	}
}

func TestProcess_Errors(t *testing.T) {
	pending := completedPurchase()
	pending.PaymentStatus = purchases.StatusPending
	store := &stubStore{byID: map[string]*purchases.Purchase{"p-pending": pending}}
	p := NewProcessor(store, &recordingNotifier{}, nil)
	ctx := context.Background()

	malformed := events.SQSEvent{Records: []events.SQSMessage{{MessageId: "m-x", Body: "{not json"}}}
	if err := processAll(ctx, p, malformed); err == nil {
		t.Fatal("expected error for malformed body")
	}

	evt := completedEvent()
	evt.PurchaseID = "missing"
	if err := processAll(ctx, p, sqsEvent(t, evt)); !errors.Is(err, purchases.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	evt.PurchaseID = "p-pending"
	if err := processAll(ctx, p, sqsEvent(t, evt)); !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
	}

	evt.PurchaseID = ""
	if err := processAll(ctx, p, sqsEvent(t, evt)); err == nil {
		t.Fatal("expected error for missing purchase id")
	}
}

func TestProcess_NotifierErrorFailsRecord(t *testing.T) {
	store := &stubStore{byID: map[string]*purchases.Purchase{"p-1": completedPurchase()}}
	n := &recordingNotifier{err: errors.New("smtp down")}
	p := NewProcessor(store, n, nil)
	if err := processAll(context.Background(), p, sqsEvent(t, completedEvent())); err == nil {
		t.Fatal("expected notifier error to fail the record")
	}
}

func TestProcess_IgnoresUnknownEventTypes(t *testing.T) {
	n := &recordingNotifier{}
	p := NewProcessor(&stubStore{}, n, nil)
	evt := completedEvent()
	evt.Type = "purchase.refunded"
	if err := processAll(context.Background(), p, sqsEvent(t, evt)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(n.sent) != 0 {
		t.Fatal("no confirmation expected")
	}
}

type fakeSender struct {
	messages []*gomail.Message
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.messages = append(f.messages, m...)
	return nil
}

func TestMailer_SendConfirmation(t *testing.T) {
	fs := &fakeSender{}
	m := &Mailer{dialer: fs, from: "no-reply@example.com"}

	if err := m.SendConfirmation(context.Background(), completedPurchase()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(fs.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(fs.messages))
	}
	msg := fs.messages[0]
	if to := msg.GetHeader("To"); len(to) != 1 || !strings.Contains(to[0], "asha@example.com") {
		t.Fatalf("unexpected To header: %v", to)
	}
	if subj := msg.GetHeader("Subject"); len(subj) != 1 || subj[0] != "Your purchase: AI Masterclass Materials" {
		t.Fatalf("unexpected subject: %v", subj)
	}
}

func TestConfirmationBody(t *testing.T) {
	body := confirmationBody(completedPurchase())
	for _, want := range []string{"Hi Asha Rao", "AI Masterclass Materials (INR 99.00)", "https://drive.example.com/materials", "pay_1"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}

	p := completedPurchase()
	p.DownloadLink = ""
	if strings.Contains(confirmationBody(p), "Download") {
		t.Error("body without link must not mention a download")
	}
}

func TestMailer_RequiresEmail(t *testing.T) {
	m := &Mailer{dialer: &fakeSender{}, from: "x@example.com"}
	p := completedPurchase()
	p.Email = ""
	if err := m.SendConfirmation(context.Background(), p); err == nil {
		t.Fatal("expected error without email")
	}
}

func TestHandle_ReportsOnlyFailedRecords(t *testing.T) {
	store := &stubStore{byID: map[string]*purchases.Purchase{"p-1": completedPurchase()}}
	n := &recordingNotifier{}
	p := NewProcessor(store, n, nil)

	good, _ := json.Marshal(completedEvent())
	missing := completedEvent()
	missing.PurchaseID = "missing"
	bad, _ := json.Marshal(missing)

	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m-1", Body: string(good)},
		{MessageId: "m-2", Body: string(bad)},
		{MessageId: "m-3", Body: "{not json"},
		{MessageId: "m-4", Body: string(good)},
	}}

	resp, err := p.Handle(context.Background(), event)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(resp.BatchItemFailures) != 2 ||
		resp.BatchItemFailures[0].ItemIdentifier != "m-2" ||
		resp.BatchItemFailures[1].ItemIdentifier != "m-3" {
		t.Fatalf("unexpected batch failures: %+v", resp.BatchItemFailures)
	}
	if len(n.sent) != 2 {
		t.Fatalf("expected both good records to be emailed once, got %d", len(n.sent))
	}
}

func TestHandle_CleanBatchHasNoFailures(t *testing.T) {
	store := &stubStore{byID: map[string]*purchases.Purchase{"p-1": completedPurchase()}}
	p := NewProcessor(store, &recordingNotifier{}, nil)

	resp, err := p.Handle(context.Background(), sqsEvent(t, completedEvent()))
	if err != nil || len(resp.BatchItemFailures) != 0 {
		t.Fatalf("expected clean batch, resp=%+v err=%v", resp, err)
	}
}

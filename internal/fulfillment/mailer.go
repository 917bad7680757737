package fulfillment

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/imrishuroy/masterclass-checkout/internal/purchases"
)

// sender matches *gomail.Dialer.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends confirmation emails over SMTP.
type Mailer struct {
	dialer sender
	from   string
}

func NewMailer(host string, port int, username, password, from string) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (m *Mailer) SendConfirmation(ctx context.Context, p *purchases.Purchase) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Email == "" {
		return fmt.Errorf("purchase %s has no email", p.ID)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetAddressHeader("To", p.Email, p.Name)
	msg.SetHeader("Subject", "Your purchase: "+p.ProductName)
	msg.SetBody("text/plain", confirmationBody(p))

	return m.dialer.DialAndSend(msg)
}

func confirmationBody(p *purchases.Purchase) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", p.Name)
	fmt.Fprintf(&b, "Thank you for purchasing %s (%s %s).\n", p.ProductName, p.Currency, p.Amount.StringFixed(2))
	if p.DownloadLink != "" {
		fmt.Fprintf(&b, "\nDownload your materials here:\n%s\n", p.DownloadLink)
	}
	fmt.Fprintf(&b, "\nPayment reference: %s\n", p.PaymentID)
	return b.String()
}

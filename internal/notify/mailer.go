package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog/log"
)

// Mailer sends transactional mail. Callers treat delivery as best-effort.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, to, name, orderNumber, link string) error
}

type smtpMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPMailer(host, port, username, password, from string) Mailer {
	return &smtpMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (m *smtpMailer) SendOrderConfirmation(ctx context.Context, to, name, orderNumber, link string) error {
	if to == "" {
		return fmt.Errorf("order confirmation: missing recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("Subject: Order Confirmation - %s\r\n", orderNumber)
	mime := "MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n"
	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>Thank you for your order (<strong>%s</strong>).</p>
		<p><a href="%s">View your order</a></p>
		<p>Regards,<br/>Shopkart</p>
	`, name, orderNumber, link)

	msg := []byte("To: " + to + "\r\n" + subject + mime + body)
	addr := m.host + ":" + m.port

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send order confirmation: %w", err)
	}

	log.Info().Str("order_number", orderNumber).Str("to", to).Msg("order confirmation email sent")
	return nil
}

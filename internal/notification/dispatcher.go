package notification

import (
	"context"
	"fmt"
	"net/mail"
	"net/smtp"

	"github.com/rs/zerolog/log"
	"github.com/scorredoira/email"
)

// Dispatcher delivers a message to a single recipient. Implementations
// must be safe for concurrent use.
type Dispatcher interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// SMTPDispatcher sends plain-text mail through an SMTP relay. With an
// empty host it degrades to a logged no-op so local development does
// not require a mail server.
type SMTPDispatcher struct {
	Host     string // relay hostname, used for auth; empty disables sending
	Addr     string // host:port connection string
	FromName string
	FromAddr string
	Username string
	Password string
}

func NewSMTPDispatcher(host, addr, fromName, fromAddr, username, password string) *SMTPDispatcher {
	return &SMTPDispatcher{
		Host:     host,
		Addr:     addr,
		FromName: fromName,
		FromAddr: fromAddr,
		Username: username,
		Password: password,
	}
}

func (d *SMTPDispatcher) Send(_ context.Context, recipient, subject, body string) error {
	if d.Host == "" {
		log.Info().
			Str("recipient", recipient).
			Str("subject", subject).
			Msg("smtp not configured, skipping notification")
		return nil
	}

	msg := email.NewMessage(subject, body)
	msg.From = mail.Address{Name: d.FromName, Address: d.FromAddr}
	msg.To = []string{recipient}

	var auth smtp.Auth
	if d.Username != "" {
		auth = smtp.PlainAuth("", d.Username, d.Password, d.Host)
	}

	if err := email.Send(d.Addr, auth, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", recipient, err)
	}
	return nil
}

// MemoryDispatcher records messages for tests.
type MemoryDispatcher struct {
	Sent []Message
}

type Message struct {
	Recipient string
	Subject   string
	Body      string
}

func (d *MemoryDispatcher) Send(_ context.Context, recipient, subject, body string) error {
	d.Sent = append(d.Sent, Message{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

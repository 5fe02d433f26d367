// Package mail delivers outreach messages over SMTP.
package mail

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	gomail "github.com/wneessen/go-mail"

	"github.com/gconnect/leadgen-cli/internal/outreach"
)

// SMTPSender implements outreach.Sender over a direct SMTP connection.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates an SMTPSender with the given credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

// Send delivers one rendered message with both plain and HTML bodies.
func (s *SMTPSender) Send(ctx context.Context, to string, msg outreach.Message) error {
	m := gomail.NewMsg()
	if err := m.FromFormat(s.fromName, s.fromEmail); err != nil {
		return eris.Wrap(err, "mail: from")
	}
	if err := m.To(to); err != nil {
		return eris.Wrap(err, "mail: to")
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return eris.Wrap(err, "mail: client")
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return eris.Wrap(err, "mail: send")
	}
	return nil
}

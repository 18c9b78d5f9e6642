package services

import (
	"log"

	mail "github.com/wneessen/go-mail"
)

// MailService delivers transactional email over SMTP.
type MailService struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewMailService creates a new MailService.
func NewMailService(host string, port int, username, password, from string) *MailService {
	return &MailService{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Send delivers a plain-text email. With no SMTP host configured the
// message is logged and dropped so local setups work without a mail
// server.
func (s *MailService) Send(to, subject, body string) error {
	if s.host == "" {
		log.Printf("[Mail] SMTP not configured, skipping %q to %s", subject, to)
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{mail.WithPort(s.port)}
	if s.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.username),
			mail.WithPassword(s.password),
		)
	}

	client, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return err
	}

	return client.DialAndSend(msg)
}

// SendAsync delivers a notification email in the background. Failures are
// logged and never surface to the caller.
func (s *MailService) SendAsync(to, subject, body string) {
	go func() {
		if err := s.Send(to, subject, body); err != nil {
			log.Printf("[Mail] failed to send %q to %s: %v", subject, to, err)
		}
	}()
}

package email

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// Settings comes straight from config; the server has a single fixed
// outbound mailbox.
type Settings struct {
	Host      string
	Port      int
	Username  string
	Password  string
	TLSMode   string // "tls", "starttls" (default), or "none"
	FromName  string
	FromEmail string
}

type Message struct {
	ToEmail  string
	Subject  string
	TextBody string
}

type Sender struct {
	settings Settings
}

func NewSender(settings Settings) *Sender {
	return &Sender{settings: settings}
}

// Enabled reports whether outbound mail is configured at all. Callers
// treat a disabled sender as a degraded, non-fatal condition.
func (s *Sender) Enabled() bool {
	return s != nil && s.settings.Host != "" && s.settings.FromEmail != ""
}

func (s *Sender) Send(msg Message) error {
	if !s.Enabled() {
		return fmt.Errorf("smtp not configured")
	}

	addr := fmt.Sprintf("%s:%d", s.settings.Host, s.settings.Port)
	client, err := s.connect(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.settings.Username != "" {
		authz := smtp.PlainAuth("", s.settings.Username, s.settings.Password, s.settings.Host)
		if err := client.Auth(authz); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.settings.FromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := client.Rcpt(msg.ToEmail); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}

	from := s.settings.FromEmail
	if s.settings.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.settings.FromName, s.settings.FromEmail)
	}
	if _, err := writer.Write([]byte(buildMessage(from, msg.ToEmail, msg.Subject, msg.TextBody))); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	if err := client.Quit(); err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
		return fmt.Errorf("smtp quit: %w", err)
	}
	return nil
}

func (s *Sender) connect(addr string) (*smtp.Client, error) {
	tlsMode := s.settings.TLSMode
	if tlsMode == "" {
		tlsMode = "starttls"
	}
	switch tlsMode {
	case "tls":
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.settings.Host, MinVersion: tls.VersionTLS12})
		if err != nil {
			return nil, fmt.Errorf("smtp tls dial: %w", err)
		}
		client, err := smtp.NewClient(conn, s.settings.Host)
		if err != nil {
			return nil, fmt.Errorf("smtp client: %w", err)
		}
		return client, nil
	default:
		client, err := smtp.Dial(addr)
		if err != nil {
			return nil, fmt.Errorf("smtp dial: %w", err)
		}
		if tlsMode == "starttls" {
			if err := client.StartTLS(&tls.Config{ServerName: s.settings.Host, MinVersion: tls.VersionTLS12}); err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("smtp starttls: %w", err)
			}
		}
		return client, nil
	}
}

func buildMessage(from, to, subject, body string) string {
	lines := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}
	return strings.Join(lines, "\r\n")
}

package service

import (
	"fmt"
	"net/url"
	"strings"

	"accounthub/internal/email"
)

// MailService turns tokens into delivered links. It is best-effort by
// contract: the auth flows keep going when delivery fails.
type MailService struct {
	Sender  *email.Sender
	BaseURL string
	AppName string
}

func (s *MailService) appName() string {
	if s.AppName != "" {
		return s.AppName
	}
	return "Accounthub"
}

func (s *MailService) Enabled() bool {
	return s != nil && s.Sender.Enabled()
}

func (s *MailService) VerificationLink(rawToken string) string {
	return s.BaseURL + "/verify-email/" + url.PathEscape(rawToken)
}

func (s *MailService) ResetLink(rawToken string) string {
	return s.BaseURL + "/reset-password/" + url.PathEscape(rawToken)
}

func (s *MailService) SendVerification(toEmail, name, rawToken string) error {
	if name == "" {
		name = "there"
	}
	body := strings.Join([]string{
		fmt.Sprintf("Hi %s,", name),
		"",
		"Welcome! Please verify your email address by opening this link:",
		s.VerificationLink(rawToken),
		"",
		"The link is valid for 24 hours.",
		"If you did not create an account, you can ignore this email.",
	}, "\n")

	return s.Sender.Send(email.Message{
		ToEmail:  toEmail,
		Subject:  fmt.Sprintf("Verify your %s email", s.appName()),
		TextBody: body,
	})
}

func (s *MailService) SendPasswordReset(toEmail, rawToken string) error {
	body := strings.Join([]string{
		"You requested a password reset.",
		"",
		"Reset your password using this link:",
		s.ResetLink(rawToken),
		"",
		"The link is valid for 24 hours.",
		"If you did not request this, you can ignore this email.",
	}, "\n")

	return s.Sender.Send(email.Message{
		ToEmail:  toEmail,
		Subject:  fmt.Sprintf("Reset your %s password", s.appName()),
		TextBody: body,
	})
}

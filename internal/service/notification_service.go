package service

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	cfg "github.com/simplifika/postline/configs"
)

// Notifier sends the transactional emails the pipeline produces. Failures are
// logged, never propagated; no state transition depends on an email landing.
type Notifier interface {
	SendVerificationCode(email, code string)
	SendDowngradeNotice(email string, deactivatedCount int)
	SendDeletionWarning(email string, postCount int)
	SendAccountBlocked(email string)
}

type NotificationService struct {
	config *cfg.Config
}

func NewNotificationService(c *cfg.Config) *NotificationService {
	return &NotificationService{config: c}
}

func (s *NotificationService) SendVerificationCode(email, code string) {
	subject := "Your sign-in code"
	body := fmt.Sprintf("Your verification code is %s. It expires in 15 minutes.", code)
	s.send(email, subject, body)
}

func (s *NotificationService) SendDowngradeNotice(email string, deactivatedCount int) {
	subject := "Your plan changed"
	body := fmt.Sprintf(
		"Your subscription moved to the free plan. "+
			"%d scheduled post(s) over the free limit were deactivated and will not be published. "+
			"Upgrade again to reactivate them.", deactivatedCount)
	s.send(email, subject, body)
}

func (s *NotificationService) SendDeletionWarning(email string, postCount int) {
	subject := "Deactivated posts will be deleted soon"
	body := fmt.Sprintf(
		"%d of your deactivated post(s) will be permanently deleted in 7 days. "+
			"Upgrade your plan to keep them.", postCount)
	s.send(email, subject, body)
}

func (s *NotificationService) SendAccountBlocked(email string) {
	subject := "Your account has been blocked"
	body := "Your account was blocked after 30 days of unresolved payment issues. " +
		"Contact support to restore access."
	s.send(email, subject, body)
}

func (s *NotificationService) send(to, subject, body string) {
	if s.config.SMTP.Host == "" {
		slog.Info("smtp not configured; dropping email", "to", to, "subject", subject)
		return
	}

	msg := strings.Join([]string{
		"From: " + s.config.SMTP.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	addr := s.config.SMTP.Host + ":" + s.config.SMTP.Port
	auth := smtp.PlainAuth("", s.config.SMTP.Username, s.config.SMTP.Password, s.config.SMTP.Host)

	err := smtp.SendMail(addr, auth, s.config.SMTP.From, []string{to}, []byte(msg))
	if err != nil {
		slog.Info(err.Error())
		return
	}
	slog.Info("email sent", "to", to, "subject", subject)
}

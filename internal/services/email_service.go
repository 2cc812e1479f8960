package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"boardly/internal/config"

	"github.com/sirupsen/logrus"
)

// EmailService sends plain-text mail via SMTP. When disabled it logs the
// message instead of sending, which keeps automations usable in dev.
type EmailService struct {
	cfg    config.EmailConfig
	logger *logrus.Logger

	// send is swappable for tests
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailService(cfg config.EmailConfig, logger *logrus.Logger) *EmailService {
	if logger == nil {
		logger = logrus.New()
	}
	return &EmailService{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// SendEmail implements EmailSender.
func (s *EmailService) SendEmail(ctx context.Context, to, subject, body string) error {
	if to == "" || subject == "" {
		return fmt.Errorf("to and subject required")
	}
	if !s.cfg.Enabled {
		s.logger.Infof("email (disabled): to=%s subject=%q", to, subject)
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(addr, auth, s.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

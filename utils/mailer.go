package utils

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/cppla/socialbbs/config"
	"github.com/cppla/socialbbs/models"
)

// Mailer delivers password reset links over SMTP.
type Mailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	resetURL string
	logger   *zap.Logger
}

// NewMailer builds a Mailer from SMTP settings. When SMTP is not configured the
// mailer only logs the reset link.
func NewMailer(cfg config.AppConfig, logger *zap.Logger) *Mailer {
	m := &Mailer{
		from:     cfg.SMTPFrom,
		fromName: cfg.SMTPFromName,
		resetURL: cfg.ResetURLBase,
		logger:   logger,
	}
	if m.fromName == "" {
		m.fromName = "SocialBBS"
	}
	if cfg.SMTPHost != "" && cfg.SMTPFrom != "" {
		m.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return m
}

// SendResetEmail mails the reset link for token to the user.
func (m *Mailer) SendResetEmail(ctx context.Context, user models.User, token string) error {
	link := m.resetLink(token)
	if m.dialer == nil {
		m.logger.Warn("smtp not configured, reset link not mailed",
			zap.Uint("user_id", user.ID), zap.String("email", user.Email))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", user.Email)
	msg.SetHeader("Subject", "Password reset")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nTo reset your password, visit:\n%s\n\nThe link is valid for a limited time. If you did not request this, ignore this email.\n",
		user.Username, link))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

func (m *Mailer) resetLink(token string) string {
	return m.resetURL + "?token=" + url.QueryEscape(token)
}

package email

import (
	"context"
	"fmt"
	"log"
	"net/smtp"

	"github.com/gahimbaref/Rentema-sub002/internal/config"
)

// Sender delivers one outbound message. kind identifies which notification
// the message is (questionnaire, slot_offer, ...) so mock sinks can key on
// it; rawMessage is the complete RFC 5322 payload including headers.
type Sender interface {
	Send(ctx context.Context, to []string, kind, subject string, rawMessage []byte) error
}

// SMTPSender delivers via net/smtp.
type SMTPSender struct {
	cfg  *config.Config
	auth smtp.Auth
	addr string
}

// NewSMTPSender builds the production sender, falling back to a logging
// sender when no SMTP host is configured.
func NewSMTPSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		log.Println("SMTP host not configured, using logging email sender.")
		return &LoggingSender{cfg: cfg}
	}

	auth := smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost)
	return &SMTPSender{
		cfg:  cfg,
		auth: auth,
		addr: fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
	}
}

func (s *SMTPSender) Send(ctx context.Context, to []string, kind, subject string, rawMessage []byte) error {
	if err := smtp.SendMail(s.addr, s.auth, s.cfg.SmtpFromAddress, to, rawMessage); err != nil {
		log.Printf("Failed to send %s email via SMTP to %v: %v", kind, to, err)
		return fmt.Errorf("smtp error: %w", err)
	}
	log.Printf("Email sent via SMTP to %v (kind: %s, subject: %s)", to, kind, subject)
	return nil
}

// LoggingSender logs messages instead of delivering them. Used in
// development when SMTP is not configured.
type LoggingSender struct {
	cfg *config.Config
}

func (s *LoggingSender) Send(ctx context.Context, to []string, kind, subject string, rawMessage []byte) error {
	log.Printf("--- Email (logged, not sent) ---")
	log.Printf("To: %v", to)
	log.Printf("Kind: %s", kind)
	log.Printf("Subject: %s", subject)
	log.Println(string(rawMessage))
	log.Printf("--- End email ---")
	return nil
}

// internal/app/system/mailer/mailer.go
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Email is a single outbound message with both plain-text and HTML bodies.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Config configures the SMTP transport. An empty Host selects log-only
// mode: Send logs the message instead of delivering it, which is what
// development and test environments use.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends email over SMTP, or logs it when no host is configured.
type Mailer struct {
	cfg Config
	log *zap.Logger
}

// New builds a Mailer. logger must not be nil.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg, log: logger}
}

// Send delivers a single message. In log-only mode the text body is
// written to the log at info level and no network I/O happens.
func (m *Mailer) Send(msg Email) error {
	if msg.To == "" {
		return fmt.Errorf("mailer: message has no recipient")
	}

	if m.cfg.Host == "" {
		m.log.Info("mailer: log-only mode, not sending",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.String("body", msg.TextBody))
		return nil
	}

	raw := m.buildMIME(msg)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", msg.To, err)
	}
	m.log.Info("mailer: sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

// buildMIME renders a multipart/alternative message so clients can pick
// the text or HTML body.
func (m *Mailer) buildMIME(msg Email) []byte {
	boundary := "=_part_" + uuid.NewString()

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Message-ID: <%s@comptoir>\r\n", uuid.NewString())
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.TextBody)
	b.WriteString("\r\n")

	if msg.HTMLBody != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		b.WriteString(msg.HTMLBody)
		b.WriteString("\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

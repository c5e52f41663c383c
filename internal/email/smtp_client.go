package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/brandon/onthisday/internal/config"
)

// Transport delivers an encoded message
type Transport interface {
	Send(ctx context.Context, from string, to []string, raw []byte) error
}

// SMTPClient delivers messages over SMTP. Port 465 uses implicit TLS,
// any other port upgrades with STARTTLS when the server offers it.
type SMTPClient struct {
	host   string
	port   int
	dialer *gomail.Dialer
	logger *logrus.Logger
}

// NewSMTPClient creates a new SMTP client
func NewSMTPClient(cfg *config.MailConfig, logger *logrus.Logger) (*SMTPClient, error) {
	host, port, err := ResolveSMTP(cfg)
	if err != nil {
		return nil, err
	}

	dialer := gomail.NewDialer(host, port, cfg.SMTPUsername, cfg.SMTPPassword)
	dialer.TLSConfig = &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	return &SMTPClient{
		host:   host,
		port:   port,
		dialer: dialer,
		logger: logger,
	}, nil
}

// Addr returns host:port of the SMTP server
func (c *SMTPClient) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// Send opens a session, which connects and authenticates, then delivers raw
func (c *SMTPClient) Send(ctx context.Context, from string, to []string, raw []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	log := c.logger.WithField("smtp", c.Addr())

	session, err := c.dialer.Dial()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer session.Close()
	log.Debug("SMTP connection verified")

	if err := session.Send(from, to, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	log.WithField("recipients", len(to)).Info("Email sent")
	return nil
}

package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"github.com/brandon/onthisday/internal/config"
)

// Archiver keeps a copy of a delivered message
type Archiver interface {
	Archive(ctx context.Context, raw []byte, date time.Time) error
}

// IMAPArchiver appends delivered digests to a mailbox of the sending account
type IMAPArchiver struct {
	config *config.MailConfig
	logger *logrus.Logger
}

// NewIMAPArchiver creates an archiver for cfg's IMAP settings
func NewIMAPArchiver(cfg *config.MailConfig, logger *logrus.Logger) *IMAPArchiver {
	return &IMAPArchiver{
		config: cfg,
		logger: logger,
	}
}

// Archive stores raw in the archive folder, flagged as seen
func (a *IMAPArchiver) Archive(ctx context.Context, raw []byte, date time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", a.config.IMAPHost, a.config.IMAPPort)

	c, err := client.DialTLS(addr, &tls.Config{
		ServerName: a.config.IMAPHost,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer c.Logout() //nolint:errcheck

	if err := c.Login(a.config.SMTPUsername, a.config.SMTPPassword); err != nil {
		return fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	if err := c.Append(a.config.ArchiveFolder, []string{imap.SeenFlag}, date, bytes.NewBuffer(raw)); err != nil {
		return fmt.Errorf("failed to append to %s: %w", a.config.ArchiveFolder, err)
	}

	a.logger.WithFields(logrus.Fields{
		"imap":   addr,
		"folder": a.config.ArchiveFolder,
	}).Info("Archived digest")
	return nil
}

package email

import (
	"fmt"

	"github.com/brandon/onthisday/internal/config"
)

type smtpEndpoint struct {
	host string
	port int
}

// wellKnownServices maps mail service names to their submission endpoints
var wellKnownServices = map[string]smtpEndpoint{
	"gmail":      {"smtp.gmail.com", 465},
	"googlemail": {"smtp.gmail.com", 465},
	"outlook":    {"smtp-mail.outlook.com", 587},
	"hotmail":    {"smtp-mail.outlook.com", 587},
	"outlook365": {"smtp.office365.com", 587},
	"office365":  {"smtp.office365.com", 587},
	"yahoo":      {"smtp.mail.yahoo.com", 465},
	"icloud":     {"smtp.mail.me.com", 587},
	"zoho":       {"smtp.zoho.com", 465},
	"gmx":        {"mail.gmx.com", 587},
	"fastmail":   {"smtp.fastmail.com", 465},
	"yandex":     {"smtp.yandex.ru", 465},
	"mail.ru":    {"smtp.mail.ru", 465},
}

// ResolveSMTP returns the SMTP endpoint for cfg. An explicit SMTP_HOST wins
// over SERVICE_NAME; an explicit SMTP_PORT wins over the service's port.
func ResolveSMTP(cfg *config.MailConfig) (string, int, error) {
	host, port := cfg.SMTPHost, cfg.SMTPPort

	if host == "" {
		svc, ok := wellKnownServices[cfg.Service]
		if !ok {
			return "", 0, fmt.Errorf("unknown mail service %q and no SMTP_HOST set", cfg.Service)
		}
		host = svc.host
		if port == 0 {
			port = svc.port
		}
	}
	if port == 0 {
		port = 587
	}
	return host, port, nil
}

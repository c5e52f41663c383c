package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"PORT", "LOG_LEVEL", "CORS_ORIGINS",
	"NAS_IP", "USER_ID", "USER_PASSWORD", "FOTO_TEAM", "NAS_INSECURE_TLS", "NAS_PAGE_RATE", "NAS_TIMEOUT",
	"SERVICE_NAME", "SMTP_HOST", "SMTP_PORT", "SEND_EMAIL", "SEND_EMAIL_PASSWORD", "RECEIVE_EMAIL",
	"EMAIL_SUBJECT", "VIEW_URL", "RETRY_BUDGET", "RETRY_DELAY", "IMAP_HOST", "IMAP_PORT", "IMAP_ARCHIVE_FOLDER",
	"SEND_BY", "EMAIL_SCHEDULE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("NAS_IP", "nas.local:5001")
	t.Setenv("USER_ID", "alice")
	t.Setenv("USER_PASSWORD", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.NAS.TeamSpace)
	assert.True(t, cfg.NAS.InsecureTLS)
	assert.Equal(t, 10.0, cfg.NAS.PageRate)
	assert.Equal(t, 60*time.Second, cfg.NAS.Timeout)
	assert.Equal(t, DefaultSubject, cfg.Mail.Subject)
	assert.Equal(t, "http://localhost:8080/", cfg.Mail.ViewURL)
	assert.Equal(t, 5, cfg.Mail.RetryBudget)
	assert.Equal(t, 15*time.Minute, cfg.Mail.RetryDelay)
	assert.Equal(t, "09:00", cfg.Schedule.At)
	assert.Empty(t, cfg.Schedule.SendBy)
	assert.False(t, cfg.MailEnabled())
	assert.False(t, cfg.Mail.ArchiveEnabled())
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NAS_IP", "https://nas.example.com/")
	t.Setenv("USER_ID", "alice")
	t.Setenv("USER_PASSWORD", "secret")
	t.Setenv("FOTO_TEAM", "true")
	t.Setenv("PORT", "9999")
	t.Setenv("SERVICE_NAME", " Gmail ")
	t.Setenv("SEND_EMAIL", "me@gmail.com")
	t.Setenv("SEND_EMAIL_PASSWORD", "app-password")
	t.Setenv("RECEIVE_EMAIL", "a@example.com, b@example.com,")
	t.Setenv("RETRY_DELAY", "90s")
	t.Setenv("SEND_BY", " week ")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.NAS.TeamSpace)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "http://localhost:9999/", cfg.Mail.ViewURL)
	assert.Equal(t, "gmail", cfg.Mail.Service)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Mail.To)
	assert.Equal(t, 90*time.Second, cfg.Mail.RetryDelay)
	assert.Equal(t, "week", cfg.Schedule.SendBy)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.True(t, cfg.MailEnabled())
}

func TestLoadConfig_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")
	t.Setenv("NAS_INSECURE_TLS", "maybe")
	t.Setenv("RETRY_DELAY", "soon")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.NAS.InsecureTLS)
	assert.Equal(t, 15*time.Minute, cfg.Mail.RetryDelay)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port: 8080,
			NAS:  NASConfig{Host: "nas", Account: "a", Password: "p", PageRate: 1},
			Mail: MailConfig{RetryBudget: 5, IMAPPort: 993},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing host", func(c *Config) { c.NAS.Host = "" }, "NAS_IP"},
		{"missing password", func(c *Config) { c.NAS.Password = "" }, "USER_PASSWORD"},
		{"zero rate", func(c *Config) { c.NAS.PageRate = 0 }, "NAS_PAGE_RATE"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "PORT"},
		{"negative budget", func(c *Config) { c.Mail.RetryBudget = -1 }, "RETRY_BUDGET"},
		{"bad imap port", func(c *Config) { c.Mail.IMAPHost = "imap"; c.Mail.IMAPPort = 0 }, "IMAP_PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMailEnabled(t *testing.T) {
	cfg := &Config{Mail: MailConfig{SMTPUsername: "u", SMTPPassword: "p", To: []string{"x@y"}}}
	assert.False(t, cfg.MailEnabled(), "no host and no service")

	cfg.Mail.SMTPHost = "smtp.example.com"
	assert.True(t, cfg.MailEnabled())

	cfg.Mail.SMTPHost = ""
	cfg.Mail.Service = "gmail"
	assert.True(t, cfg.MailEnabled())

	cfg.Mail.To = nil
	assert.False(t, cfg.MailEnabled())
}

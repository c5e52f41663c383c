package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port        int
	LogLevel    string
	CORSOrigins []string

	NAS      NASConfig
	Mail     MailConfig
	Schedule ScheduleConfig
}

// NASConfig holds the Synology Photos connection settings
type NASConfig struct {
	Host      string
	Account   string
	Password  string
	TeamSpace bool

	// InsecureTLS disables certificate verification for NAS requests only.
	InsecureTLS bool
	PageRate    float64
	Timeout     time.Duration
}

// MailConfig holds the digest delivery settings
type MailConfig struct {
	Service      string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	From         string
	To           []string
	Subject      string
	ViewURL      string

	RetryBudget int
	RetryDelay  time.Duration

	// Optional IMAP archive of delivered digests
	IMAPHost      string
	IMAPPort      int
	ArchiveFolder string
}

// ScheduleConfig holds the digest schedule
type ScheduleConfig struct {
	SendBy string
	At     string
}

const DefaultSubject = "Memories from this day"

// LoadConfig loads configuration from environment variables, reading a
// .env file first when one exists
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return fromEnv(), nil
}

func fromEnv() *Config {
	port := getEnvInt("PORT", 8080)

	cfg := &Config{
		Port:        port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "")),
		NAS: NASConfig{
			Host:        getEnv("NAS_IP", ""),
			Account:     getEnv("USER_ID", ""),
			Password:    getEnv("USER_PASSWORD", ""),
			TeamSpace:   getEnvBool("FOTO_TEAM", false),
			InsecureTLS: getEnvBool("NAS_INSECURE_TLS", true),
			PageRate:    getEnvFloat("NAS_PAGE_RATE", 10),
			Timeout:     getEnvDuration("NAS_TIMEOUT", 60*time.Second),
		},
		Mail: MailConfig{
			Service:       strings.ToLower(strings.TrimSpace(getEnv("SERVICE_NAME", ""))),
			SMTPHost:      getEnv("SMTP_HOST", ""),
			SMTPPort:      getEnvInt("SMTP_PORT", 0),
			SMTPUsername:  getEnv("SEND_EMAIL", ""),
			SMTPPassword:  getEnv("SEND_EMAIL_PASSWORD", ""),
			From:          getEnv("SEND_EMAIL", ""),
			To:            splitList(getEnv("RECEIVE_EMAIL", "")),
			Subject:       getEnv("EMAIL_SUBJECT", DefaultSubject),
			ViewURL:       getEnv("VIEW_URL", fmt.Sprintf("http://localhost:%d/", port)),
			RetryBudget:   getEnvInt("RETRY_BUDGET", 5),
			RetryDelay:    getEnvDuration("RETRY_DELAY", 15*time.Minute),
			IMAPHost:      getEnv("IMAP_HOST", ""),
			IMAPPort:      getEnvInt("IMAP_PORT", 993),
			ArchiveFolder: getEnv("IMAP_ARCHIVE_FOLDER", "Sent"),
		},
		Schedule: ScheduleConfig{
			SendBy: strings.TrimSpace(getEnv("SEND_BY", "")),
			At:     getEnv("EMAIL_SCHEDULE", "09:00"),
		},
	}

	return cfg
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.NAS.Host == "" {
		return fmt.Errorf("NAS_IP is required")
	}
	if c.NAS.Account == "" || c.NAS.Password == "" {
		return fmt.Errorf("USER_ID and USER_PASSWORD are required")
	}
	if c.NAS.PageRate <= 0 {
		return fmt.Errorf("NAS_PAGE_RATE must be positive")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT")
	}
	if c.Mail.RetryBudget < 0 {
		return fmt.Errorf("RETRY_BUDGET must not be negative")
	}
	if c.Mail.SMTPPort < 0 || c.Mail.SMTPPort > 65535 {
		return fmt.Errorf("invalid SMTP_PORT")
	}
	if c.Mail.IMAPHost != "" && (c.Mail.IMAPPort < 1 || c.Mail.IMAPPort > 65535) {
		return fmt.Errorf("invalid IMAP_PORT")
	}
	return nil
}

// MailEnabled reports whether enough mail settings are present to deliver digests
func (c *Config) MailEnabled() bool {
	m := &c.Mail
	if m.SMTPUsername == "" || m.SMTPPassword == "" || len(m.To) == 0 {
		return false
	}
	return m.SMTPHost != "" || m.Service != ""
}

// ArchiveEnabled reports whether delivered digests are copied to an IMAP mailbox
func (m *MailConfig) ArchiveEnabled() bool {
	return m.IMAPHost != "" && m.ArchiveFolder != ""
}

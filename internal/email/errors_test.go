package email

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brandon/onthisday/internal/config"
)

func TestIsTransient(t *testing.T) {
	dialErr := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: os.NewSyscallError("connect", syscall.EHOSTUNREACH),
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"errno", syscall.EHOSTUNREACH, true},
		{"wrapped dial error", fmt.Errorf("failed to connect to SMTP server: %w", dialErr), true},
		{"inside delivery error", &DeliveryError{Stage: "send", Err: dialErr}, true},
		{"message code", errors.New("connect EHOSTUNREACH 10.0.0.2:465"), true},
		{"message text", errors.New("dial tcp: No route to host"), true},
		{"refused", syscall.ECONNREFUSED, false},
		{"auth", errors.New("535 authentication failed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestDeliveryError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := error(&DeliveryError{Stage: "send", Err: cause})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to deliver digest (send): boom", err.Error())

	var de *DeliveryError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &de))
	assert.Equal(t, "send", de.Stage)
}

func TestResolveSMTP(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.MailConfig
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"service", config.MailConfig{Service: "gmail"}, "smtp.gmail.com", 465, false},
		{"service with port", config.MailConfig{Service: "gmail", SMTPPort: 587}, "smtp.gmail.com", 587, false},
		{"explicit host", config.MailConfig{Service: "gmail", SMTPHost: "mail.local"}, "mail.local", 587, false},
		{"explicit host and port", config.MailConfig{SMTPHost: "mail.local", SMTPPort: 2525}, "mail.local", 2525, false},
		{"unknown service", config.MailConfig{Service: "pigeon"}, "", 0, true},
		{"nothing", config.MailConfig{}, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := ResolveSMTP(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}

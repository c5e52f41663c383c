package email

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// DeliveryError is returned when a digest cannot be handed to the mail server
type DeliveryError struct {
	Stage string
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver digest (%s): %v", e.Stage, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// transientSignatures are message fragments of a temporarily unreachable host
var transientSignatures = []string{
	"ehostunreach",
	"no route to host",
	"host is unreachable",
}

// IsTransient reports whether err means the remote host was briefly
// unreachable, the only failure that is retried automatically
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

package synology

import "fmt"

// AuthenticationError is returned when the NAS rejects a login
type AuthenticationError struct {
	// Payload is the raw response body, kept verbatim for diagnostics
	Payload string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %v: %s", e.Err, e.Payload)
	}
	return "authentication failed: " + e.Payload
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// FetchError is returned when a page of the photo listing cannot be retrieved
type FetchError struct {
	Offset     int
	StatusCode int
	Payload    string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("failed to fetch photos at offset %d: %v", e.Offset, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("failed to fetch photos at offset %d: HTTP status %d", e.Offset, e.StatusCode)
	default:
		return fmt.Sprintf("failed to fetch photos at offset %d: %s", e.Offset, e.Payload)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

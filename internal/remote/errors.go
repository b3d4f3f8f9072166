// Package remote provides the shared HTTP plumbing and error taxonomy for
// the GitHub and NexusMods API clients.
package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error variables classifying remote API failures. Callers branch on these
// with errors.Is; the wrapped message carries the response detail.
var (
	// ErrUnauthorized indicates a bad or expired credential. Fatal, never retried.
	ErrUnauthorized = errors.New("unauthorized: check the stored credentials")
	// ErrNotFound indicates the remote resource does not exist
	ErrNotFound = errors.New("remote resource not found")
	// ErrTransient indicates a network or server-side failure that may clear on a later run
	ErrTransient = errors.New("transient remote error")
	// ErrConflict indicates the remote revision moved between read and write
	ErrConflict = errors.New("remote revision conflict")
)

// ClassifyStatus maps an unexpected HTTP status code onto the error
// taxonomy. The response body is folded into the message for diagnostics.
func ClassifyStatus(status int, body []byte) error {
	detail := strings.TrimSpace(string(body))
	if len(detail) > 512 {
		detail = detail[:512]
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrUnauthorized, status, detail)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: status %d: %s", ErrNotFound, status, detail)
	case status == http.StatusConflict || status == http.StatusPreconditionFailed:
		return fmt.Errorf("%w: status %d: %s", ErrConflict, status, detail)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrTransient, status, detail)
	default:
		return fmt.Errorf("unexpected status %d: %s", status, detail)
	}
}

// WrapTransport classifies a transport-level error (DNS, TLS, timeout) as
// transient. A hung call surfaces here once the client deadline fires.
func WrapTransport(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

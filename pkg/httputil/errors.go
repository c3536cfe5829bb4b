package httputil

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed outbound call
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindAuthorization
	KindRateLimit
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuthorization:
		return "authorization"
	case KindRateLimit:
		return "rate_limit"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is returned by DoJSON for every failed call
type Error struct {
	// Service names the remote system ("auth0", "grafana")
	Service string
	// Op is a short description of the call, e.g. "list orgs"
	Op         string
	StatusCode int
	Kind       Kind
	// Body holds the response body when one was read
	Body string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Service, e.Op)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindForStatus maps an HTTP status code to an error kind. 2xx and 3xx map to KindUnknown.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthorization
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= 500:
		return KindTransport
	case status >= 400:
		return KindValidation
	default:
		return KindUnknown
	}
}

// AsError extracts the *Error from err's chain
func AsError(err error) (*Error, bool) {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error
func KindOf(err error) Kind {
	if httpErr, ok := AsError(err); ok {
		return httpErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsServiceKind reports whether err is an *Error of the given kind raised by service
func IsServiceKind(err error, service string, kind Kind) bool {
	httpErr, ok := AsError(err)
	return ok && httpErr.Service == service && httpErr.Kind == kind
}

// Package apperr defines the failure taxonomy shared by the acquisition
// clients, the notification channels and the prefetch planner.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	Unknown Kind = iota
	NotFound
	Unauthorized
	ServiceUnavailable
	Malformed
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Unauthorized:
		return "unauthorized"
	case ServiceUnavailable:
		return "service_unavailable"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error is a classified failure of one operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind so callers can write
// errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound           = &Error{Kind: NotFound}
	ErrUnauthorized       = &Error{Kind: Unauthorized}
	ErrServiceUnavailable = &Error{Kind: ServiceUnavailable}
	ErrMalformed          = &Error{Kind: Malformed}
)

// New builds a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf classifies any error. Unclassified transport failures and
// deadlines count as ServiceUnavailable.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ServiceUnavailable
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ServiceUnavailable
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return ServiceUnavailable
	}
	return Unknown
}

// FromStatus maps an HTTP status code to a Kind. 2xx returns Unknown.
func FromStatus(status int) Kind {
	switch {
	case status >= 200 && status < 300:
		return Unknown
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Unauthorized
	case status == http.StatusNotFound:
		return NotFound
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return ServiceUnavailable
	default:
		return Malformed
	}
}

// Transport classifies an error returned by http.Client.Do. Requests that
// could never have been sent (bad scheme, missing host) are Malformed,
// everything else is ServiceUnavailable.
func Transport(op string, err error) *Error {
	if isURLShapeError(err) {
		return New(Malformed, op, err)
	}
	return New(ServiceUnavailable, op, err)
}

func isURLShapeError(err error) bool {
	msg := err.Error()
	for _, s := range []string{"unsupported protocol scheme", "no Host in request URL", "invalid URL"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

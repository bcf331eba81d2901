package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a provider failure.
type Kind int

const (
	Unknown Kind = iota
	Unauthorized
	NotFound
	Transient
)

func (k Kind) String() string {
	switch k {
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "unauthorized":
		*k = Unauthorized
	case "not_found":
		*k = NotFound
	case "transient":
		*k = Transient
	default:
		*k = Unknown
	}
	return nil
}

// Error is a classified provider failure.
type Error struct {
	Kind     Kind   `json:"kind"`
	Provider string `json:"provider,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Message  string `json:"message"`
	Err      error  `json:"-"`
}

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	err := fmt.Errorf(format, args...)
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Provider == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Provider, e.Symbol, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// For fills in the provider and symbol the error belongs to.
func (e *Error) For(req Request) *Error {
	out := *e
	out.Provider, out.Symbol = req.Provider, req.Symbol
	if out.Message == "" && out.Err != nil {
		out.Message = out.Err.Error()
	}
	return &out
}

// Classify maps any error onto the failure taxonomy. Timeouts, cancellations
// and network errors are transient; anything unrecognized is Unknown.
func Classify(err error) Kind {
	if err == nil {
		return Unknown
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return Transient
	}
	return Unknown
}

// StatusKind maps an HTTP status code onto the failure taxonomy.
func StatusKind(code int) Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return Unauthorized
	case code == http.StatusNotFound:
		return NotFound
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		return Transient
	default:
		return Unknown
	}
}

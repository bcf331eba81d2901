package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"marketbridge/internal/series"
)

// Provider identifiers used in requests and configuration.
const (
	FRED  = "fred"
	Yahoo = "yahoo"
)

// ErrInvalidRequest is wrapped by Request.Validate failures.
var ErrInvalidRequest = errors.New("invalid request")

var validate = validator.New()

// Request names one series to fetch from one provider. A zero End means "up to now".
type Request struct {
	Provider string    `json:"provider" validate:"required"`
	Symbol   string    `json:"symbol" validate:"required"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// Validate checks required fields and date ordering.
func (r Request) Validate() error {
	r.Symbol = strings.TrimSpace(r.Symbol)
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End) {
		return fmt.Errorf("%w: start %s after end %s", ErrInvalidRequest,
			r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
	}
	return nil
}

// Window converts the request dates into a normalizer window.
func (r Request) Window() series.Window {
	return series.Window{Start: r.Start, End: r.End}
}

// Key identifies the request parameters for caching and coalescing.
func (r Request) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", r.Provider, r.Symbol, dateKey(r.Start), dateKey(r.End))
}

func dateKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Result is the outcome of one fetch. Err is nil on success; a successful
// Result may still hold an empty Series when the provider had no data in range.
// Table is set by operations that return a labeled multi-column record.
type Result struct {
	Request Request       `json:"request"`
	Series  series.Series `json:"series"`
	Table   *series.Table `json:"table,omitempty"`
	Err     *Error        `json:"error,omitempty"`
}

// Success builds a successful Result.
func Success(req Request, s series.Series) Result {
	return Result{Request: req, Series: s}
}

// Failure builds a failed Result, classifying err when it is not already an *Error.
func Failure(req Request, err error) Result {
	var pe *Error
	if errors.As(err, &pe) {
		pe = pe.For(req)
	} else {
		pe = (&Error{Kind: Classify(err), Err: err}).For(req)
	}
	return Result{Request: req, Series: series.Empty(req.Symbol), Err: pe}
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Provider fetches one named series. Implementations translate every failure
// into a Result; they never retry and never cache.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, req Request) Result
}

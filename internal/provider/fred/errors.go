package fred

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"marketbridge/internal/provider"
)

// ErrMissingAPIKey is returned when a request is attempted without a key.
var ErrMissingAPIKey = errors.New("fred: api key not set")

// APIError is a non-200 reply from the API.
type APIError struct {
	StatusCode int
	Code       int    `json:"error_code"`
	Message    string `json:"error_message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("fred: unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("fred: %d: %s", e.StatusCode, e.Message)
}

// Kind classifies the reply. FRED reports both a bad key and an unknown series
// as 400 Bad Request, so the message decides.
func (e *APIError) Kind() provider.Kind {
	msg := strings.ToLower(e.Message)
	switch {
	case strings.Contains(msg, "api_key"):
		return provider.Unauthorized
	case strings.Contains(msg, "does not exist"):
		return provider.NotFound
	case e.StatusCode == http.StatusBadRequest:
		return provider.Unknown
	default:
		return provider.StatusKind(e.StatusCode)
	}
}

// Classify maps a client error onto the provider failure taxonomy.
func Classify(err error) provider.Kind {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrMissingAPIKey):
		return provider.Unauthorized
	case errors.As(err, &apiErr):
		return apiErr.Kind()
	default:
		return provider.Classify(err)
	}
}

package social

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/social-autoposter/internal/models"
)

// Poster publishes text for one account and returns the provider's post id
type Poster interface {
	Name() string
	Post(ctx context.Context, text string, creds models.Credentials) (string, error)
}

// ProviderError is a classified posting failure
type ProviderError struct {
	Class      models.ErrorClass
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Class, e.Message)
	}
	return fmt.Sprintf("%s (HTTP %d): %s", e.Class, e.StatusCode, e.Message)
}

// NewProviderError builds a classified error from an HTTP status and response body
func NewProviderError(status int, body []byte) *ProviderError {
	msg := errorMessage(body)
	return &ProviderError{
		Class:      Classify(status, msg),
		StatusCode: status,
		Message:    msg,
	}
}

// Classify maps a provider status and message to an ErrorClass. Duplicate detection
// matches on the message because providers report it under 400, 403 or 422.
func Classify(status int, message string) models.ErrorClass {
	if strings.Contains(strings.ToLower(message), "duplicate") {
		return models.ErrorClassDuplicate
	}
	switch status {
	case http.StatusUnauthorized:
		return models.ErrorClassAuth
	case http.StatusForbidden:
		return models.ErrorClassForbidden
	case http.StatusTooManyRequests:
		return models.ErrorClassRateLimited
	case http.StatusBadRequest:
		return models.ErrorClassBadRequest
	case http.StatusServiceUnavailable:
		return models.ErrorClassUnavailable
	}
	return models.ErrorClassOther
}

// ClassOf returns the class of err; unclassified errors are ErrorClassOther
func ClassOf(err error) models.ErrorClass {
	if err == nil {
		return models.ErrorClassNone
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Class
	}
	return models.ErrorClassOther
}

// errorMessage pulls a human readable message out of the provider payloads we know
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"detail", "message", "errors.0.message", "title", "error.message"} {
			if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}

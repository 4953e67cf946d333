package harbor

import (
	"fmt"
	"net/http"

	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
)

// StatusNetworkError is the status assigned to transport failures.
const StatusNetworkError = http.StatusServiceUnavailable

// APIError is returned for every failed Harbor call: HTTP status >= 400,
// transport failures (status 503) and client-side misconfiguration.
type APIError struct {
	Message string
	Status  int
	// Payload is the decoded response body, when there was one.
	Payload any
	Cause   error

	// local marks errors raised before any request was sent.
	local bool
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether retrying on a later cycle may succeed.
func (e *APIError) IsTransient() bool {
	if e.local {
		return false
	}

	return e.Status >= http.StatusInternalServerError ||
		e.Status == http.StatusTooManyRequests ||
		e.Status == http.StatusRequestTimeout
}

// IsRejection reports whether Harbor refused the request itself.
func (e *APIError) IsRejection() bool {
	return e.Status >= http.StatusBadRequest && e.Status < http.StatusInternalServerError &&
		e.Status != http.StatusTooManyRequests && e.Status != http.StatusRequestTimeout
}

// Reason extracts a human readable rejection reason from the payload.
// Harbor error bodies are usually {"message": ...} or {"error": ...}.
func (e *APIError) Reason() string {
	switch payload := e.Payload.(type) {
	case map[string]any:
		for _, key := range []string{"message", "error", "reason", "detail"} {
			if value, ok := payload[key]; ok {
				if text, ok := value.(string); ok && text != "" {
					return text
				}

				if nested, ok := value.(map[string]any); ok {
					if text, ok := nested["message"].(string); ok && text != "" {
						return text
					}
				}
			}
		}
	case string:
		if payload != "" {
			return payload
		}
	}

	return e.Message
}

// ToResponse renders the error body served by the host surface.
func (e *APIError) ToResponse() map[string]any {
	body := map[string]any{"message": e.Message}
	if e.Payload != nil {
		body["payload"] = e.Payload
	}

	return map[string]any{"error": body}
}

func newStatusError(status int, payload any) *APIError {
	return &APIError{
		Message: fmt.Sprintf("Harbor request failed with status %d", status),
		Status:  status,
		Payload: payload,
		Cause:   nil,
		local:   false,
	}
}

func newLocalError(message string) *APIError {
	return &APIError{
		Message: message,
		Status:  http.StatusInternalServerError,
		Payload: nil,
		Cause:   nil,
		local:   true,
	}
}

func newNetworkError(cause error) *APIError {
	return &APIError{
		Message: fmt.Sprintf("Network error: %v", cause),
		Status:  StatusNetworkError,
		Payload: nil,
		Cause:   cause,
		local:   false,
	}
}

// AsAPIError returns the APIError in err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	return nil, false
}

// Classify maps a Harbor failure onto the connector error taxonomy.
// Errors that are not APIErrors pass through unchanged.
func Classify(err error, message string) error {
	if err == nil {
		return nil
	}

	apiErr, ok := AsAPIError(err)
	if !ok {
		return err
	}

	switch {
	case apiErr.IsTransient():
		return errors.Wrap(errors.ErrCodeTransientNetwork, message, err)
	case apiErr.Status == http.StatusNotFound:
		return errors.Wrap(errors.ErrCodeExchangeNotFound, message, err)
	default:
		return errors.Wrap(errors.ErrCodeExchangeRequest, message, err)
	}
}

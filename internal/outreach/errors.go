package outreach

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx answer from the outreach API.
type APIError struct {
	StatusCode int
	// Detail is the API's own explanation, taken from the {detail} payload.
	Detail   string
	fallback string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("outreach: %s (status=%d)", e.Message(), e.StatusCode)
}

// Message is the text shown to the user: the API detail when present,
// otherwise a per-action fallback.
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.fallback != "" {
		return e.fallback
	}
	return fmt.Sprintf("http status %d", e.StatusCode)
}

// decodeAPIError reads {detail} bodies. Validation failures carry a list of
// problems instead of a string; those are flattened to their msg fields.
func decodeAPIError(status int, body []byte, fallback string) *APIError {
	apiErr := &APIError{StatusCode: status, fallback: fallback}
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Detail) == 0 {
		return apiErr
	}
	var text string
	if err := json.Unmarshal(parsed.Detail, &text); err == nil {
		apiErr.Detail = strings.TrimSpace(text)
		return apiErr
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(parsed.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		apiErr.Detail = strings.Join(msgs, "; ")
	}
	return apiErr
}

// UserMessage returns the text to surface for a failed outreach call.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}

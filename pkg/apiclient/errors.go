package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/eltafawook-admin/pkg/errors"
)

const fallbackMessage = "Request failed"

// StatusError is returned for every non-2xx response from the remote API.
type StatusError struct {
	Status  int
	Body    any
	Message string
}

func (e *StatusError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("remote api status %d: %s", e.Status, e.Message)
}

// StatusCode exposes the HTTP status for error dumps.
func (e *StatusError) StatusCode() int {
	if e == nil {
		return 0
	}
	return e.Status
}

// ResponseBody exposes the parsed response body for error dumps.
func (e *StatusError) ResponseBody() any {
	if e == nil {
		return nil
	}
	return e.Body
}

// NewStatusError builds the typed failure returned for a non-2xx response.
func NewStatusError(status int, body Body) error {
	se := &StatusError{
		Status:  status,
		Body:    body.Value(),
		Message: messageFor(status, body.Value()),
	}
	return pkgerrors.Wrap(pkgerrors.CodeForStatus(status), se, se.Message)
}

// MessageOf returns the remote message carried by err, or err's text.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

// StatusOf returns the remote HTTP status carried anywhere in err's chain.
func StatusOf(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, true
	}
	return 0, false
}

// HasStatus reports whether err carries one of the provided remote statuses.
func HasStatus(err error, statuses ...int) bool {
	status, ok := StatusOf(err)
	if !ok {
		return false
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsNotImplemented reports whether the remote API rejected the route itself
// (404 or 405) rather than the request.
func IsNotImplemented(err error) bool {
	return HasStatus(err, http.StatusNotFound, http.StatusMethodNotAllowed)
}

// messageFor derives the operator-facing message from a failed response body.
func messageFor(status int, body any) string {
	if obj, ok := body.(map[string]any); ok {
		if list, ok := obj["detail"].([]any); ok {
			parts := make([]string, 0, len(list))
			for _, entry := range list {
				parts = append(parts, detailEntryMessage(entry))
			}
			return strings.Join(parts, "; ")
		}
		if msg := nonEmptyString(obj["detail"]); msg != "" {
			return msg
		}
		if msg := nonEmptyString(obj["message"]); msg != "" {
			return msg
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fallbackMessage
}

func detailEntryMessage(entry any) string {
	if obj, ok := entry.(map[string]any); ok {
		if msg := nonEmptyString(obj["msg"]); msg != "" {
			return msg
		}
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprint(entry)
	}
	return string(encoded)
}

func nonEmptyString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if !val {
			return ""
		}
	case float64:
		if val == 0 {
			return ""
		}
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(encoded)
}

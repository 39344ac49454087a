package atlantic

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error represents an Atlantic API error response.
type Error struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("atlantic: %d: %s", e.StatusCode, e.Message)
}

func parseError(statusCode int, body []byte) error {
	var withMessage struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &withMessage); err == nil && withMessage.Message != "" {
		return &Error{StatusCode: statusCode, Message: withMessage.Message}
	}
	return &Error{StatusCode: statusCode, Message: http.StatusText(statusCode)}
}

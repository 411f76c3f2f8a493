package api

import (
	"encoding/json"
	"fmt"

	"github.com/khoahotran/personal-site/pkg/apperror"
)

// Error is a non-2xx response from the remote API.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
	Body    []byte
}

func newError(method, path string, status int, body []byte) *Error {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if json.Unmarshal(body, &envelope) == nil {
		msg = envelope.Message
		if msg == "" {
			msg = envelope.Error
		}
	}
	return &Error{Method: method, Path: path, Status: status, Message: msg, Body: body}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Request failed with status code %d", e.Status)
}

// ServerMessage is the message field of the error envelope, if any.
func (e *Error) ServerMessage() string {
	return e.Message
}

// Unwrap maps the status onto an apperror base so errors.Is works across layers.
func (e *Error) Unwrap() error {
	return apperror.FromHTTPStatus(e.Status)
}

package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type serverErr struct{ msg string }

func (e serverErr) Error() string         { return "status 400" }
func (e serverErr) ServerMessage() string { return e.msg }

func TestToHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewNotFound("experience", "e1"), http.StatusNotFound},
		{NewInvalidInput("Role is required", nil), http.StatusBadRequest},
		{NewUnauthorized("bad token", nil), http.StatusUnauthorized},
		{NewPermissionDenied("admin only"), http.StatusForbidden},
		{NewConflict("post", "slug", "hello"), http.StatusConflict},
		{NewConfirmationRequired("delete post"), http.StatusPreconditionRequired},
		{NewUpstream("Network Error", "GET posts", errors.New("dial")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ToHTTPStatus(tc.err), tc.err.Error())
	}
}

func TestFromHTTPStatus(t *testing.T) {
	assert.Equal(t, ErrNotFound, FromHTTPStatus(http.StatusNotFound))
	assert.Equal(t, ErrPermission, FromHTTPStatus(http.StatusForbidden))
	assert.Equal(t, ErrInvalidInput, FromHTTPStatus(http.StatusUnprocessableEntity))
	assert.Equal(t, ErrUpstream, FromHTTPStatus(http.StatusServiceUnavailable))
}

func TestUserMessage(t *testing.T) {
	wrapped := NewUpstream("Network Error", "PATCH posts/1", serverErr{msg: "Order must be unique"})
	assert.Equal(t, "Order must be unique", UserMessage(wrapped, "Failed to save"))
	assert.Equal(t, "Network Error", UserMessage(NewUpstream("Network Error", "", errors.New("dial")), "Failed"))
	assert.Equal(t, "Failed to save", UserMessage(errors.New(""), "Failed to save"))
	assert.Equal(t, "Failed", UserMessage(nil, "Failed"))
	assert.Equal(t, "plain", UserMessage(fmt.Errorf("plain"), "Failed"))
}

func TestAppErrorMatchesBaseAndCause(t *testing.T) {
	cause := errors.New("dial tcp")
	err := NewUpstream("Network Error", "", cause)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, cause)
}

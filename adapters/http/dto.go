package http

import (
	"github.com/gin-gonic/gin"

	"github.com/khoahotran/personal-site/internal/console"
	"github.com/khoahotran/personal-site/internal/domain/contact"
	"github.com/khoahotran/personal-site/internal/domain/profile"
	"github.com/khoahotran/personal-site/internal/manager"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// contactRequest is the public contact form. Binding rejects the obvious
// cases before the use case runs its own checks.
type contactRequest struct {
	Name    string         `json:"name" binding:"required"`
	Email   string         `json:"email" binding:"required,email"`
	Topic   string         `json:"topic"`
	Message string         `json:"message" binding:"required"`
	Type    string         `json:"type"`
	Meta    map[string]any `json:"meta"`
}

func (r contactRequest) submission() contact.Submission {
	return contact.Submission{
		Name:    r.Name,
		Email:   r.Email,
		Topic:   r.Topic,
		Message: r.Message,
		Type:    r.Type,
		Meta:    r.Meta,
	}
}

type sessionResponse struct {
	State   string                `json:"state"`
	Admin   *profile.AdminProfile `json:"admin,omitempty"`
	Notices []manager.Notice      `json:"notices"`
}

// consoleResponse wraps every console payload with the notices raised while
// serving it, the JSON stand-in for toasts.
type consoleResponse struct {
	Data    any              `json:"data,omitempty"`
	Notices []manager.Notice `json:"notices"`
}

type qualificationsRequest struct {
	Qualifications []profile.QualificationForm `json:"qualifications"`
}

func respond(c *gin.Context, status int, con *console.Console, data any) {
	c.JSON(status, consoleResponse{Data: data, Notices: con.Inbox.Drain()})
}

// respondError hands err to ErrorMiddleware. The notices the failure raised
// repeat its message, so they are dropped rather than shown twice.
func respondError(c *gin.Context, con *console.Console, err error) {
	con.Inbox.Drain()
	c.Error(err)
}

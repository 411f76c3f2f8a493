package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/personal-site/internal/console"
	"github.com/khoahotran/personal-site/internal/manager"
	"github.com/khoahotran/personal-site/internal/session"
	"github.com/khoahotran/personal-site/pkg/apperror"
	"github.com/khoahotran/personal-site/pkg/logger"
)

type AuthHandler struct {
	registry *console.Registry
	logger   logger.Logger
}

func NewAuthHandler(reg *console.Registry, log logger.Logger) *AuthHandler {
	return &AuthHandler{registry: reg, logger: log}
}

func (h *AuthHandler) Login(c *gin.Context) {
	con, _ := GetConsoleFromGinContext(c)
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("Email and password are required", err))
		return
	}

	admin, err := con.Session.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn("console login failed", zap.String("console", con.ID), zap.Error(err))
		base := apperror.ErrUnauthorized
		for _, b := range []error{apperror.ErrInvalidInput, apperror.ErrUpstream} {
			if errors.Is(err, b) {
				base = b
			}
		}
		c.Error(apperror.NewAppError(base, apperror.UserMessage(err, session.LoginFailedMessage), "", err))
		return
	}
	con.Inbox.Notify(manager.Notice{Level: manager.LevelSuccess, Message: "Welcome back, " + admin.FullName()})
	c.JSON(http.StatusOK, sessionResponse{State: string(session.StateAuthenticated), Admin: admin, Notices: con.Inbox.Drain()})
}

// Logout always ends the local session; a failed server call is only logged.
func (h *AuthHandler) Logout(c *gin.Context) {
	con, _ := GetConsoleFromGinContext(c)
	if err := con.Session.Logout(c.Request.Context()); err != nil {
		h.logger.Warn("server logout failed", zap.String("console", con.ID), zap.Error(err))
	}
	h.registry.Drop(con.ID)
	c.JSON(http.StatusOK, sessionResponse{State: string(session.StateAnonymous), Notices: []manager.Notice{}})
}

func (h *AuthHandler) Me(c *gin.Context) {
	con, _ := GetConsoleFromGinContext(c)
	state := con.Session.State()
	if state == session.StateInit {
		var err error
		if state, err = con.Session.Resolve(c.Request.Context()); err != nil {
			h.logger.Warn("session resolve failed", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, sessionResponse{State: string(state), Admin: con.Session.Profile(), Notices: con.Inbox.Drain()})
}

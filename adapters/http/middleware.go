package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/khoahotran/personal-site/internal/config"
	"github.com/khoahotran/personal-site/internal/console"
	"github.com/khoahotran/personal-site/internal/session"
	"github.com/khoahotran/personal-site/pkg/apperror"
	"github.com/khoahotran/personal-site/pkg/logger"
)

const (
	GinContextKeyConsole   = "console"
	GinContextKeyRequestID = "requestID"
	HeaderRequestID        = "X-Request-ID"
	HeaderConfirm          = "X-Confirm"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(GinContextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

var tracer = otel.Tracer("http_server")

// TracingMiddleware opens a server span per request, continuing a trace the
// caller propagated. Runs after RequestIDMiddleware so the span carries the id.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
			attribute.String("request.id", c.GetString(GinContextKeyRequestID)),
		)
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// ErrorMiddleware renders the last error a handler attached with c.Error.
func ErrorMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := apperror.ToHTTPStatus(err)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.String("request_id", c.GetString(GinContextKeyRequestID)),
		}
		reqLog := logger.WithTrace(c.Request.Context(), log)
		if status >= http.StatusInternalServerError {
			reqLog.Error("request failed", err, fields...)
		} else {
			reqLog.Warn("request rejected", append(fields, zap.Error(err))...)
		}

		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			appErr = apperror.NewAppError(baseOf(status), apperror.UserMessage(err, http.StatusText(status)), "", err)
		} else if msg := apperror.UserMessage(err, appErr.Message); msg != appErr.Message {
			appErr = apperror.NewAppError(appErr.BaseError, msg, appErr.Details, appErr.Err)
		}
		c.JSON(status, appErr.ToJSON())
	}
}

func baseOf(status int) error {
	if status == http.StatusInternalServerError {
		return apperror.ErrInternal
	}
	return apperror.FromHTTPStatus(status)
}

// ConsoleMiddleware attaches the caller's console, opening one and setting the
// session cookie when the browser has none.
func ConsoleMiddleware(reg *console.Registry, cfg config.Config) gin.HandlerFunc {
	name := cfg.Session.CookieName
	if name == "" {
		name = "console_session"
	}
	maxAge := int(cfg.Session.TTL.Seconds())
	return func(c *gin.Context) {
		id, _ := c.Cookie(name)
		con, err := reg.Open(c.Request.Context(), id)
		if err != nil {
			c.Error(apperror.NewInternal("failed to open console", err))
			c.Abort()
			return
		}
		if con.ID != id {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(name, con.ID, maxAge, "/", "", cfg.Session.Secure, true)
		}
		c.Set(GinContextKeyConsole, con)
		c.Next()
	}
}

// AuthMiddleware resolves the session on first use and rejects anonymous callers.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		con, ok := GetConsoleFromGinContext(c)
		if !ok {
			c.Error(apperror.NewInternal("console not found in context", nil))
			c.Abort()
			return
		}
		if !con.Session.IsAuthenticated() {
			state, err := con.Session.Resolve(c.Request.Context())
			if err != nil && state != session.StateAuthenticated {
				c.Error(err)
				c.Abort()
				return
			}
			if state != session.StateAuthenticated {
				c.Error(apperror.NewAppError(apperror.ErrUnauthorized, "Login required", "no admin session", nil))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

func GetConsoleFromGinContext(c *gin.Context) (*console.Console, bool) {
	v, ok := c.Get(GinContextKeyConsole)
	if !ok {
		return nil, false
	}
	con, ok := v.(*console.Console)
	return con, ok
}

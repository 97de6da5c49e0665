package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/internal/service"
	"github.com/noah-isme/stages-admin/internal/session"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
	"github.com/noah-isme/stages-admin/pkg/logger"
	"github.com/noah-isme/stages-admin/pkg/middleware/requestid"
	"github.com/noah-isme/stages-admin/pkg/response"
)

// ContextSessionKey is the gin context key storing the resolved session.
const ContextSessionKey = "currentSession"

// LoginPath is where unauthenticated page requests are sent.
const LoginPath = "/login"

type sessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Session, error)
}

// Session requires a live session cookie. Page requests without one are
// redirected to the login page, JSON requests get a 401.
func Session(resolver sessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(cookieName)
		sess, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			deny(c)
			return
		}
		SetSession(c, sess)
		c.Next()
	}
}

// OptionalSession attaches the session when the cookie resolves and lets
// anonymous requests through.
func OptionalSession(resolver sessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, _ := c.Cookie(cookieName); token != "" {
			if sess, err := resolver.Resolve(c.Request.Context(), token); err == nil {
				SetSession(c, sess)
			}
		}
		c.Next()
	}
}

// SetSession exposes sess to the rest of the chain and to access logs.
func SetSession(c *gin.Context, sess *models.Session) {
	c.Set(ContextSessionKey, sess)
	c.Set(logger.UserKey, sess.User.Username)
	c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sess))
}

// CurrentSession returns the session attached by Session.
func CurrentSession(c *gin.Context) (*models.Session, bool) {
	v, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*models.Session)
	return sess, ok && sess != nil
}

// Caller describes the current user for service calls.
func Caller(c *gin.Context) service.Caller {
	sess, _ := CurrentSession(c)
	actor := models.AuditActor{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		RequestID: requestid.Value(c),
	}
	if sess != nil {
		actor.Username = sess.User.Username
		actor.Role = string(sess.User.Role)
	}
	return service.Caller{Credentials: session.Credentials(sess), Actor: actor}
}

// WantsJSON reports whether the request belongs to the JSON surface.
func WantsJSON(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/") ||
		strings.Contains(c.GetHeader("Accept"), "application/json")
}

func deny(c *gin.Context) {
	if WantsJSON(c) {
		response.Error(c, appErrors.ErrUnauthorized)
		c.Abort()
		return
	}
	target := LoginPath
	if c.Request.Method == http.MethodGet && c.Request.URL.Path != "/" {
		target += "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
	}
	c.Redirect(http.StatusSeeOther, target)
	c.Abort()
}

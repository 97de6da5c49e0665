package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stages-admin/internal/session"
	appErrors "github.com/noah-isme/stages-admin/pkg/errors"
	"github.com/noah-isme/stages-admin/pkg/response"
)

// RequirePermission lets the request through when the session passes
// permission (a permission flag or a role name). Otherwise denied renders
// the refusal; JSON requests, or a nil denied, get a 403 envelope.
func RequirePermission(permission string, denied gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := CurrentSession(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if session.HasPermission(sess, permission) {
			c.Next()
			return
		}
		if denied == nil || WantsJSON(c) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		denied(c)
		c.Abort()
	}
}

package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stages-admin/internal/service"
)

// Audit records action on resource once the handler has answered without
// error. Requests that end without a session (a failed login) are skipped.
func Audit(auditSvc *service.AuditService, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() >= 400 {
			return
		}
		if _, ok := CurrentSession(c); !ok {
			return
		}
		auditSvc.Record(Caller(c).Actor, action, resource, c.Param("id"), map[string]interface{}{
			"path":   c.FullPath(),
			"method": c.Request.Method,
		})
	}
}

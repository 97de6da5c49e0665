package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stages-admin/internal/service"
)

// Metrics records one observation per request, labelled by route template
// so ids do not explode the label space. Unmatched paths share one label.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

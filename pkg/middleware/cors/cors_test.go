package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.GET("/api/options/divisions", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestAllowedOriginIsReflected(t *testing.T) {
	r := newRouter([]string{"http://intranet.test/"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/options/divisions", nil)
	req.Header.Set("Origin", "http://intranet.test")
	r.ServeHTTP(rec, req)

	assert.Equal(t, "http://intranet.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownOriginIsNotReflected(t *testing.T) {
	r := newRouter([]string{"http://intranet.test"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/options/divisions", nil)
	req.Header.Set("Origin", "http://evil.test")
	r.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightShortCircuits(t *testing.T) {
	r := newRouter(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/options/divisions", nil)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

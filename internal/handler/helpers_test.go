package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stages-admin/internal/middleware"
	"github.com/noah-isme/stages-admin/internal/models"
	"github.com/noah-isme/stages-admin/internal/service"
	"github.com/noah-isme/stages-admin/pkg/export"
	"github.com/noah-isme/stages-admin/web"
)

var (
	rendererOnce sync.Once
	testRenderer *Renderer
	rendererErr  error
)

func renderer(t *testing.T) *Renderer {
	t.Helper()
	rendererOnce.Do(func() { testRenderer, rendererErr = NewRenderer(web.Templates) })
	require.NoError(t, rendererErr)
	return testRenderer
}

func editor() *models.Session {
	return &models.Session{
		ID:   "sid-1",
		User: models.User{Username: "awa", Role: models.RoleGestionnaire, Permissions: models.Permissions{CanEdit: true, CanValidate: true}},
	}
}

func consultant() *models.Session {
	return &models.Session{
		ID:   "sid-2",
		User: models.User{Username: "moussa", Role: models.RoleConsultant},
	}
}

// newContext builds a gin context with the page renderer and, when sess is
// non-nil, a resolved session.
func newContext(t *testing.T, sess *models.Session, req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, engine := gin.CreateTestContext(rec)
	engine.HTMLRender = renderer(t)
	c.Request = req
	if sess != nil {
		middleware.SetSession(c, sess)
	}
	return c, rec
}

// call runs handler on c and flushes the status the way the engine does once
// the chain returns. Without it a POST redirect, which writes no body, would
// leave the recorder at 200.
func call(c *gin.Context, handler gin.HandlerFunc) {
	handler(c)
	c.Writer.WriteHeaderNow()
}

func get(target string) *http.Request {
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func withParams(c *gin.Context, kv ...string) {
	for i := 0; i+1 < len(kv); i += 2 {
		c.Params = append(c.Params, gin.Param{Key: kv[i], Value: kv[i+1]})
	}
}

// flashOf decodes the flash cookie set on the response.
func flashOf(rec *httptest.ResponseRecorder) string {
	for _, ck := range (&http.Response{Header: rec.Header()}).Cookies() {
		if ck.Name == flashCookie && ck.MaxAge >= 0 {
			v, _ := url.QueryUnescape(ck.Value)
			return v
		}
	}
	return ""
}

func body(rec *httptest.ResponseRecorder) string {
	b, _ := io.ReadAll(rec.Result().Body)
	return string(b)
}

type fakeExporter struct {
	resource string
	format   string
	dataset  export.Dataset
	err      error
}

func (f *fakeExporter) Export(_ context.Context, _ service.Caller, resource, format, _ string, ds export.Dataset) (*service.ExportResult, error) {
	f.resource, f.format, f.dataset = resource, format, ds
	if f.err != nil {
		return nil, f.err
	}
	return &service.ExportResult{URL: "/exports/signed-token", Format: format, ExpiresAt: time.Now().Add(time.Hour)}, nil
}
